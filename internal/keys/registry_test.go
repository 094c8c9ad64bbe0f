package keys

import (
	"sync/atomic"
	"testing"
)

func TestRegisterDispatchUnregister(t *testing.T) {
	r := NewRegistry()
	var calls atomic.Int32

	unregister := r.Register(Escape, func() { calls.Add(1) })
	if r.Count(Escape) != 1 {
		t.Fatalf("Count = %d, want 1", r.Count(Escape))
	}
	if !r.Dispatch(Escape) {
		t.Error("Dispatch should report a handler ran")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}

	unregister()
	unregister()
	if r.Count(Escape) != 0 {
		t.Errorf("Count after unregister = %d", r.Count(Escape))
	}
	if r.Dispatch(Escape) {
		t.Error("Dispatch with no handlers should report false")
	}
	if calls.Load() != 1 {
		t.Errorf("handler ran after unregister")
	}
}

func TestUnregisterRemovesOnlyItsOwnHandler(t *testing.T) {
	r := NewRegistry()
	var first, second atomic.Int32

	u1 := r.Register(Escape, func() { first.Add(1) })
	r.Register(Escape, func() { second.Add(1) })
	u1()
	u1()

	r.Dispatch(Escape)
	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("first=%d second=%d", first.Load(), second.Load())
	}
	if r.Count(Escape) != 1 {
		t.Errorf("Count = %d, want 1", r.Count(Escape))
	}
}

func TestHandlerMayUnregisterItself(t *testing.T) {
	r := NewRegistry()
	var unregister func()
	unregister = r.Register(Escape, func() { unregister() })

	r.Dispatch(Escape)
	if r.Count(Escape) != 0 {
		t.Errorf("Count = %d, want 0", r.Count(Escape))
	}
}

func TestKeysAreIndependent(t *testing.T) {
	r := NewRegistry()
	var hits atomic.Int32
	r.Register("q", func() { hits.Add(1) })

	if r.Dispatch(Escape) {
		t.Error("escape has no handlers")
	}
	if hits.Load() != 0 {
		t.Error("q handler ran for escape")
	}
}
