// Package crawler runs the fetch loop of a crawl branch.
//
// A Spider fetches the seed page, extracts its records, emits them, asks the
// pagination driver for the next page and repeats until the driver ends the
// branch. Every page is fully processed before the next fetch is scheduled,
// so the page counter carried between iterations always matches fetch order.
//
// # Usage
//
//	client, _ := transport.NewHTTPClient()
//	spider := crawler.NewSpider(client,
//		crawler.WithEmitter(writer.WriteRecords),
//		crawler.WithMaxPages(50),
//	)
//	report, err := spider.Crawl(ctx, "http://quotes.toscrape.com/")
//
// # Failures
//
// Fetch failures (network errors, non-2xx responses, non-HTML bodies) end
// the branch with model.StopFetchError and are returned as errors. Records
// emitted for earlier pages stay valid. Pagination outcomes are never errors;
// they end the branch with the matching stop reason.
package crawler
