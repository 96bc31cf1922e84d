package analyzer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sozercan/agenicai/internal/sequencer"
)

// runStore keeps runs in memory. Active runs never expire; finished runs are
// dropped once ttl has passed since they finished.
type runStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock clockwork.Clock
	data  map[string]*storeEntry
	order []string
}

type storeEntry struct {
	run        *sequencer.Run
	finishedAt time.Time
}

func newRunStore(ttl time.Duration, clock clockwork.Clock) *runStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &runStore{
		ttl:   ttl,
		clock: clock,
		data:  make(map[string]*storeEntry),
	}
}

func (s *runStore) Put(run *sequencer.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.data[run.ID] = &storeEntry{run: run}
	s.order = append(s.order, run.ID)
}

func (s *runStore) Get(id string) (*sequencer.Run, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	entry, ok := s.data[id]
	if !ok {
		return nil, false
	}
	return entry.run, true
}

// List returns the stored runs in the order they were added.
func (s *runStore) List() []*sequencer.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	out := make([]*sequencer.Run, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].run)
	}
	return out
}

// Active counts runs that have not finished.
func (s *runStore) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.data {
		if !e.run.State().Finished() {
			n++
		}
	}
	return n
}

// Running returns the runs that have not finished, in insertion order.
func (s *runStore) Running() []*sequencer.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*sequencer.Run
	for _, id := range s.order {
		if run := s.data[id].run; !run.State().Finished() {
			out = append(out, run)
		}
	}
	return out
}

func (s *runStore) cleanupLocked() {
	now := s.clock.Now()
	kept := s.order[:0]
	for _, id := range s.order {
		e := s.data[id]
		if e.run.State().Finished() {
			if e.finishedAt.IsZero() {
				e.finishedAt = now
			}
			if now.Sub(e.finishedAt) >= s.ttl {
				delete(s.data, id)
				continue
			}
		}
		kept = append(kept, id)
	}
	s.order = kept
}
