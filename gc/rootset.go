package gc

import (
	"sync"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/errors"
)

// rootSet is the capacity-bounded set of handles suspected of heading a
// cycle. Insertion beyond the cap fails rather than growing; a dropped hint
// is safe because any later decrement to zero is freed by ordinary counting
// and any surviving hint is retried by the background worker.
type rootSet struct {
	items map[scriptruntime.Handle]struct{}
	mu    sync.Mutex
	max   int
}

func newRootSet(max int) *rootSet {
	capHint := max
	if capHint > 1000 {
		capHint = 1000
	}
	return &rootSet{
		items: make(map[scriptruntime.Handle]struct{}, capHint),
		max:   max,
	}
}

func (s *rootSet) add(h scriptruntime.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[h]; ok {
		return nil
	}
	if len(s.items) >= s.max {
		return errors.ResourceLimit(errors.PhaseRoot, "possible_roots", uint64(len(s.items)))
	}
	s.items[h] = struct{}{}
	return nil
}

func (s *rootSet) remove(h scriptruntime.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, h)
}

func (s *rootSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// takeSnapshot atomically drains the set for exclusive use by one pass.
func (s *rootSet) takeSnapshot() []scriptruntime.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil
	}
	roots := make([]scriptruntime.Handle, 0, len(s.items))
	for h := range s.items {
		roots = append(roots, h)
	}
	clear(s.items)
	return roots
}
