// Package frame holds the most recently published frame and the gocv
// helpers that normalize and encode it. The Store is the only coupling
// point between the source reader and the HTTP layer.
package frame

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Store is a single-slot cache of the latest frame. Publish replaces the
// slot wholesale; Snapshot hands out independent copies. There is no
// history: a concurrent reader either sees the previous frame or the new
// one, never a torn mix of both.
type Store struct {
	mu        sync.Mutex
	slot      gocv.Mat
	ts        time.Time
	published bool
}

func NewStore() *Store {
	return &Store{}
}

// Publish takes ownership of img and makes it the current frame.
// The previously stored Mat is closed.
func (s *Store) Publish(img gocv.Mat, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.published {
		s.slot.Close()
	}
	s.slot = img
	s.ts = ts
	s.published = true
}

// Snapshot returns a clone of the current frame and its capture time.
// The caller owns the clone and must Close it. ok is false until the
// first Publish.
func (s *Store) Snapshot() (img gocv.Mat, ts time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.published {
		return gocv.Mat{}, time.Time{}, false
	}
	return s.slot.Clone(), s.ts, true
}

// Age reports how long ago the current frame was published. ok is false
// until the first Publish.
func (s *Store) Age(now time.Time) (age time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.published {
		return 0, false
	}
	return now.Sub(s.ts), true
}

// Close releases the stored frame. Publish must not be called afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.published {
		s.slot.Close()
		s.published = false
	}
}
