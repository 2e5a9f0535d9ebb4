// Package pipeline runs the steps of one crawl branch in sequence and
// crawls several seeds concurrently.
//
// A branch is a CrawlStep followed by optional PersistStep and MetricsStep.
// Steps that implement Finalizer still run after cancellation or an earlier
// failure, so a cancelled crawl is stored and counted like any other run.
package pipeline
