package resource

import (
	"sync"
)

// store is the slot array behind a Table. Freed slots are reused last-in
// first-out.
type store struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	class       string
	borrowCount uint32
	valid       bool
}

func newStore() *store {
	return &store{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *store) create(class string, value any) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, false
	}

	e := entry{
		class: class,
		value: value,
		valid: true,
	}

	if len(s.freeList) > 0 {
		handle := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[handle-1] = e
		return handle, true
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries)), true
}

// slot returns the live entry for handle. Callers hold mu.
func (s *store) slot(handle Handle) *entry {
	if handle == 0 || int(handle-1) >= len(s.entries) {
		return nil
	}
	e := &s.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

func (s *store) get(handle Handle) (any, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.slot(handle)
	if e == nil {
		return nil, "", false
	}
	return e.value, e.class, true
}

// drop frees the slot unless it is borrowed.
func (s *store) drop(handle Handle) (value any, class string, ok, borrowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.slot(handle)
	if e == nil {
		return nil, "", false, false
	}
	if e.borrowCount > 0 {
		return nil, "", false, true
	}

	value, class = e.value, e.class
	*e = entry{}
	s.freeList = append(s.freeList, handle)
	return value, class, true, false
}

func (s *store) borrow(handle Handle) (any, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.slot(handle)
	if e == nil {
		return nil, "", false
	}
	e.borrowCount++
	return e.value, e.class, true
}

func (s *store) returnBorrow(handle Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.slot(handle)
	if e == nil || e.borrowCount == 0 {
		return false
	}
	e.borrowCount--
	return true
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.valid {
			count++
		}
	}
	return count
}

func (s *store) each(fn func(Handle, string, any) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, e := range s.entries {
		if e.valid {
			if !fn(Handle(i+1), e.class, e.value) {
				break
			}
		}
	}
}

// close invalidates every slot and returns the values that were live.
func (s *store) close() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var live []any
	for i := range s.entries {
		if s.entries[i].valid {
			live = append(live, s.entries[i].value)
		}
	}
	s.entries = nil
	s.freeList = nil
	return live
}
