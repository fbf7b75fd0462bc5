package scraper

import "errors"

var (
	// ErrExtractionFailed means a document could not be parsed as markup at all.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrDetailFetchFailed means a listing's detail page could not be fetched.
	ErrDetailFetchFailed = errors.New("detail fetch failed")
	// ErrStoreUnavailable means the store connection was never established.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInsertFailed means the store rejected a record.
	ErrInsertFailed = errors.New("insert failed")
)
