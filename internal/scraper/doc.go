// Package scraper defines the domain types shared by the job-board sources,
// the pipeline runner and the record stores, together with the markup helpers
// every source uses to turn a document into JobRecords.
package scraper
