// Package config holds the quotecrawl run configuration, the optional
// .quotecrawl site file and the XDG data directory location.
package config
