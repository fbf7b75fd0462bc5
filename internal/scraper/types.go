package scraper

import "time"

// JobRecord is the normalized form of one job listing.
// Link is the identity key; an empty Link cannot be deduplicated.
type JobRecord struct {
	Company     string    `json:"company"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	DatePosted  time.Time `json:"date_posted"`

	// Captured for logging and the API only; not persisted.
	Source     string `json:"source,omitempty"`
	Location   string `json:"location,omitempty"`
	Salary     string `json:"salary,omitempty"`
	PostedText string `json:"posted_text,omitempty"`
}

// HasLink reports whether the record carries a usable identity key.
func (r JobRecord) HasLink() bool {
	return r.Link != ""
}
