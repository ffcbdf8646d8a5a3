package exposure

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

type fakeEntity struct {
	Slot
	id   uint64
	kind Kind
}

func (f *fakeEntity) ID() uint64 { return f.id }
func (f *fakeEntity) Kind() Kind { return f.kind }

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Export(path ObjectPath, obj Exposable) error {
	return m.Called(path, obj).Error(0)
}

func (m *mockTransport) Unexport(path ObjectPath, obj Exposable) error {
	return m.Called(path, obj).Error(0)
}

func (m *mockTransport) EmitRemoved(path ObjectPath, kind Kind) error {
	return m.Called(path, kind).Error(0)
}

func newTestManager() (*Manager, *MemoryTransport) {
	tr := NewMemoryTransport()
	return New(paths.BasePath, tr, WithMetrics(monitoring.NewMetrics())), tr
}

func TestExposeAssignsIDPath(t *testing.T) {
	m, tr := newTestManager()
	e := &fakeEntity{id: 7, kind: KindPool}

	path, err := m.Expose(e)
	require.NoError(t, err)

	assert.Equal(t, ObjectPath("/org/storage/stratis1/7"), path)
	assert.True(t, e.Exposed())
	assert.True(t, tr.Exported(path))

	got, err := m.Resolve(path)
	require.NoError(t, err)
	assert.Same(t, e, got)
}

func TestExposeTwiceIsAlreadyExists(t *testing.T) {
	m, _ := newTestManager()
	e := &fakeEntity{id: 1, kind: KindVolume}

	_, err := m.Expose(e)
	require.NoError(t, err)

	_, err = m.Expose(e)
	assert.Equal(t, status.AlreadyExists, status.CodeOf(err))
	assert.Equal(t, 1, m.Len())
}

func TestUnexposeRetiresSlot(t *testing.T) {
	m, tr := newTestManager()
	e := &fakeEntity{id: 3, kind: KindDevice}

	path, err := m.Expose(e)
	require.NoError(t, err)
	require.NoError(t, m.Unexpose(e))

	assert.False(t, e.Exposed())
	assert.False(t, tr.Exported(path))
	assert.Equal(t, []ObjectPath{path}, tr.Removed())

	_, err = m.Resolve(path)
	assert.ErrorIs(t, err, status.ErrNotFound)

	_, err = m.Expose(e)
	assert.Equal(t, status.BadParam, status.CodeOf(err), "a retired slot must never get a second path")
}

func TestUnexposeWithoutHandleIsNoop(t *testing.T) {
	tr := &mockTransport{}
	m := New(paths.BasePath, tr)

	assert.NoError(t, m.Unexpose(&fakeEntity{id: 9, kind: KindCache}))
	tr.AssertNotCalled(t, "Unexport", mock.Anything, mock.Anything)
	tr.AssertNotCalled(t, "EmitRemoved", mock.Anything, mock.Anything)
}

func TestExportFailureLeavesSlotUnexposed(t *testing.T) {
	tr := &mockTransport{}
	m := New(paths.BasePath, tr)
	e := &fakeEntity{id: 4, kind: KindPool}

	tr.On("Export", ObjectPath("/org/storage/stratis1/4"), e).Return(errors.New("bus gone")).Once()

	_, err := m.Expose(e)
	assert.Equal(t, status.Error, status.CodeOf(err))
	assert.False(t, e.Exposed())
	assert.Equal(t, 0, m.Len())
	tr.AssertExpectations(t)
}

func TestUnexposeTransportErrorStillClearsHandle(t *testing.T) {
	tr := &mockTransport{}
	m := New(paths.BasePath, tr)
	e := &fakeEntity{id: 5, kind: KindVolume}
	path := ObjectPath("/org/storage/stratis1/5")

	tr.On("Export", path, e).Return(nil)
	tr.On("Unexport", path, e).Return(errors.New("unexport failed"))
	tr.On("EmitRemoved", path, KindVolume).Return(nil)

	_, err := m.Expose(e)
	require.NoError(t, err)

	err = m.Unexpose(e)
	assert.Error(t, err)
	assert.False(t, e.Exposed())

	_, err = m.Resolve(path)
	assert.Error(t, err)
	tr.AssertExpectations(t)
}

func TestTransportCalledWithoutSlotLock(t *testing.T) {
	m, tr := newTestManager()
	e := &fakeEntity{id: 11, kind: KindPool}

	// Reading the slot from inside the transport would deadlock if the
	// manager held the slot lock across the call.
	tr.SetFailExport(func(_ ObjectPath, obj Exposable) error {
		_, _ = obj.slot().ObjectPath()
		return nil
	})

	done := make(chan struct{})
	go func() {
		_, _ = m.Expose(e)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expose held the slot lock across Export")
	}
}

func TestExposeAfterTransportPanic(t *testing.T) {
	m, tr := newTestManager()
	e := &fakeEntity{id: 13, kind: KindVolume}

	tr.SetFailExport(func(ObjectPath, Exposable) error { panic("bus connection lost") })
	assert.Panics(t, func() { _, _ = m.Expose(e) })
	assert.False(t, e.Exposed())

	// The slot went back to unexposed rather than staying mid-export
	tr.SetFailExport(nil)
	path, err := m.Expose(e)
	require.NoError(t, err)
	assert.Equal(t, ObjectPath(paths.BasePath+"/13"), path)
}

func TestConcurrentExposeSingleWinner(t *testing.T) {
	m, _ := newTestManager()
	e := &fakeEntity{id: 21, kind: KindPool}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Expose(e); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	m, _ := newTestManager()
	events, cancel := m.Subscribe(4)
	defer cancel()

	e := &fakeEntity{id: 2, kind: KindVolume}
	path, err := m.Expose(e)
	require.NoError(t, err)
	require.NoError(t, m.Unexpose(e))

	added := <-events
	removed := <-events

	assert.Equal(t, EventAdded, added.Type)
	assert.Equal(t, path, added.Path)
	assert.Equal(t, "volume", added.Kind)
	assert.Equal(t, EventRemoved, removed.Type)
	assert.Equal(t, uint64(2), removed.ID)
}

func TestSubscribeIsLossyAndCancelIdempotent(t *testing.T) {
	m, _ := newTestManager()
	events, cancel := m.Subscribe(1)

	for i := uint64(1); i <= 3; i++ {
		_, err := m.Expose(&fakeEntity{id: i, kind: KindDevice})
		require.NoError(t, err)
	}

	first := <-events
	assert.Equal(t, uint64(1), first.ID)

	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)
}

func TestPathsSorted(t *testing.T) {
	m, _ := newTestManager()
	for _, n := range []uint64{3, 1, 2} {
		_, err := m.Expose(&fakeEntity{id: n, kind: KindPool})
		require.NoError(t, err)
	}

	assert.Equal(t, []ObjectPath{
		"/org/storage/stratis1/1",
		"/org/storage/stratis1/2",
		"/org/storage/stratis1/3",
	}, m.Paths())
}

func TestKindInterface(t *testing.T) {
	assert.Equal(t, "org.storage.stratis1.pool", KindPool.Interface())
	assert.Equal(t, "org.storage.stratis1.dev", KindDevice.Interface())
	assert.Equal(t, "cache", KindCache.String())
	assert.Equal(t, "", Kind(99).Interface())
}

func TestChangedOnlyForExposedObjects(t *testing.T) {
	m, tr := newTestManager()
	e := &fakeEntity{id: 8, kind: KindVolume}

	m.Changed(e, "Name", "ignored")
	assert.Empty(t, tr.Changes())

	path, err := m.Expose(e)
	require.NoError(t, err)

	m.Changed(e, "Name", "v2")
	assert.Equal(t, []Change{{Path: path, Property: "Name", Value: "v2"}}, tr.Changes())
}
