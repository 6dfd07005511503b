// Package recorder keeps the most recent sensor readings in memory and
// serves them over gRPC.
package recorder

import (
	"sync"
	"time"

	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

// Record is a reading together with where and when it was received.
type Record struct {
	types.Reading
	Topic      string
	ReceivedAt time.Time
}

// Store is a bounded FIFO of records, safe for concurrent use.
type Store struct {
	mu    sync.RWMutex //N readers or 1 writer
	data  []Record
	limit int
}

// NewStore creates a store that keeps at most limit records.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1
	}
	return &Store{
		data:  make([]Record, 0, min(limit, 1024)),
		limit: limit,
	}
}

// Add appends r, dropping the oldest records beyond the limit.
func (s *Store) Add(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = append(s.data, r)
	if len(s.data) > s.limit {
		s.data = append(s.data[:0], s.data[len(s.data)-s.limit:]...)
	}
}

// All returns a copy of every stored record, oldest first.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.data))
	copy(out, s.data)
	return out
}

// BySensor returns the records of one sensor, oldest first.
func (s *Store) BySensor(name string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.data {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// Delete drops every record of one sensor and returns how many went.
func (s *Store) Delete(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data[:0]
	for _, r := range s.data {
		if r.Name != name {
			kept = append(kept, r)
		}
	}
	removed := len(s.data) - len(kept)
	clear(s.data[len(kept):])
	s.data = kept
	return removed
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
