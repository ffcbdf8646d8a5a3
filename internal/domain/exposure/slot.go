package exposure

import "sync"

// ObjectPath is a bus object path
type ObjectPath string

// Slot holds an entity's exposure handle. Entities embed it by value; the
// zero Slot is unexposed.
//
// A slot moves through unexposed → exposing → exposed → retired and never
// goes back, so an entity is exported at most once in its life.
type Slot struct {
	mu       sync.Mutex
	path     ObjectPath
	exposing bool
	retired  bool
}

func (s *Slot) slot() *Slot { return s }

// ObjectPath returns the exposure handle, if any
func (s *Slot) ObjectPath() (ObjectPath, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, s.path != ""
}

// Exposed reports whether the slot currently holds a handle
func (s *Slot) Exposed() bool {
	_, ok := s.ObjectPath()
	return ok
}

// Exposable is anything that can be exported on the bus. The unexported
// slot method is satisfied only by embedding Slot.
type Exposable interface {
	ID() uint64
	Kind() Kind
	slot() *Slot
}
