// Package database stores crawl history in SQLite.
//
// Every finished crawl branch is saved as one run with its page summaries
// and the records in emission order. Runs are never merged or deduplicated;
// crawling the same site twice stores two runs.
//
// The database is a single quotecrawl.db file in the XDG data directory,
// opened through the CGO-free modernc.org/sqlite driver.
package database
