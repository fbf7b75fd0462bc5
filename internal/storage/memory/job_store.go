// Package memory provides an in-process store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

// JobStore keeps listings in memory with the same link-keyed upsert
// semantics as the Postgres store.
type JobStore struct {
	mu       sync.RWMutex
	byLink   map[string]scraper.JobRecord
	order    []string
	unlinked []scraper.JobRecord
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		byLink: make(map[string]scraper.JobRecord),
	}
}

// Upsert inserts the record or overwrites the existing one with the same link.
// Records without a link are always appended.
func (s *JobStore) Upsert(ctx context.Context, record scraper.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !record.HasLink() {
		s.unlinked = append(s.unlinked, record)
		return nil
	}
	if _, exists := s.byLink[record.Link]; !exists {
		s.order = append(s.order, record.Link)
	}
	s.byLink[record.Link] = record
	return nil
}

// Get fetches a record by link.
func (s *JobStore) Get(link string) (scraper.JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byLink[link]
	return rec, ok
}

// List returns linked records in first-insert order followed by unlinked ones.
func (s *JobStore) List() []scraper.JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scraper.JobRecord, 0, len(s.order)+len(s.unlinked))
	for _, link := range s.order {
		out = append(out, s.byLink[link])
	}
	return append(out, s.unlinked...)
}

// Len reports the number of stored rows.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order) + len(s.unlinked)
}
