// Package formtest provides a manually driven scheduler for tests.
package formtest

import (
	"sync"
	"time"

	"expensetracker/internal/form"
)

var _ form.Scheduler = (*ManualScheduler)(nil)

// ManualScheduler only runs callbacks when Advance moves its clock past
// their due time. Callbacks run on the goroutine calling Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	start   time.Time
	elapsed time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	s   *ManualScheduler
	due time.Duration
	seq int
	fn  func()
}

// NewManualScheduler returns a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{start: start}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) form.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, due: s.elapsed + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i, p := range t.s.pending {
		if p == t {
			t.s.pending = append(t.s.pending[:i], t.s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Now reports the scheduler's current time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start.Add(s.elapsed)
}

// Pending reports how many callbacks are waiting.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance moves the clock forward by d, running due callbacks in due order.
// Callbacks scheduled while advancing run too if they fall due within d.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.elapsed + d
	for {
		next := -1
		for i, t := range s.pending {
			if t.due > target {
				continue
			}
			if next < 0 || t.due < s.pending[next].due ||
				(t.due == s.pending[next].due && t.seq < s.pending[next].seq) {
				next = i
			}
		}
		if next < 0 {
			break
		}
		t := s.pending[next]
		s.pending = append(s.pending[:next], s.pending[next+1:]...)
		s.elapsed = t.due
		s.mu.Unlock()
		t.fn()
		s.mu.Lock()
	}
	s.elapsed = target
	s.mu.Unlock()
}
