package exposure

import (
	"fmt"
	"sync"
)

// Transport is the bus backend. The manager never calls it with an entity
// or registry lock held.
type Transport interface {
	Export(path ObjectPath, obj Exposable) error
	Unexport(path ObjectPath, obj Exposable) error
	EmitRemoved(path ObjectPath, kind Kind) error
}

// MemoryTransport keeps exported objects in a map. It backs BUS_TYPE=none
// and tests.
type MemoryTransport struct {
	mu       sync.Mutex
	exported map[ObjectPath]Exposable
	removed  []ObjectPath
	changes  []Change

	// FailExport, when set, is consulted before every export
	FailExport func(path ObjectPath, obj Exposable) error
}

// NewMemoryTransport creates an empty in-process transport
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{exported: make(map[ObjectPath]Exposable)}
}

func (t *MemoryTransport) Export(path ObjectPath, obj Exposable) error {
	t.mu.Lock()
	hook := t.FailExport
	t.mu.Unlock()

	if hook != nil {
		if err := hook(path, obj); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.exported[path]; ok {
		return fmt.Errorf("path %s already exported", path)
	}
	t.exported[path] = obj
	return nil
}

func (t *MemoryTransport) Unexport(path ObjectPath, _ Exposable) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.exported, path)
	return nil
}

func (t *MemoryTransport) EmitRemoved(path ObjectPath, _ Kind) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removed = append(t.removed, path)
	return nil
}

// SetFailExport installs or clears the export failure hook
func (t *MemoryTransport) SetFailExport(fn func(path ObjectPath, obj Exposable) error) {
	t.mu.Lock()
	t.FailExport = fn
	t.mu.Unlock()
}

// Exported reports whether path is currently exported
func (t *MemoryTransport) Exported(path ObjectPath) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.exported[path]
	return ok
}

// Len returns the number of exported objects
func (t *MemoryTransport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.exported)
}

// Removed returns the paths announced as removed, in order
func (t *MemoryTransport) Removed() []ObjectPath {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ObjectPath, len(t.removed))
	copy(out, t.removed)
	return out
}

// PropertyNotifier is implemented by transports that announce property
// changes to remote peers
type PropertyNotifier interface {
	PropertyChanged(path ObjectPath, kind Kind, property string, value any) error
}

// Change is a property change seen by a MemoryTransport
type Change struct {
	Path     ObjectPath
	Property string
	Value    any
}

func (t *MemoryTransport) PropertyChanged(path ObjectPath, _ Kind, property string, value any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = append(t.changes, Change{Path: path, Property: property, Value: value})
	return nil
}

// Changes returns the recorded property changes, in order
func (t *MemoryTransport) Changes() []Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Change, len(t.changes))
	copy(out, t.changes)
	return out
}
