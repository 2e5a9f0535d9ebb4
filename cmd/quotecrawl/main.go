// Package main provides the entry point for the quotecrawl CLI.
//
// quotecrawl follows the numbered pagination of a quote listing site and
// streams every quote it finds as JSON lines, a JSON array or CSV.
//
// Usage:
//
//	quotecrawl crawl [seed-url...]
//	quotecrawl history [host]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
