// Package model defines the core data structures used throughout quotecrawl.
//
// This package contains the following main types:
//   - Record: One quote extracted from a quote block
//   - Origin: Scheme and host of a fetched page, used to absolutize hrefs
//   - Page: A fetched page body with its transport metadata
//   - PageSummary: What one page contributed to a crawl
//   - CrawlReport: The result of crawling one branch from a seed URL
//   - StopReason: Why a branch stopped following next-page links
//
// Several packages (extract, paginate, crawler, output, database) share these
// types, so they live here to keep the import graph acyclic.
//
// The models are serializable to JSON for output and database storage.
package model
