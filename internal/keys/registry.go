// Package keys is the process-wide key listener registry. It stands in for
// a global keydown listener: whoever registers a handler owns it until the
// returned unregister func is called.
package keys

import "sync"

// Escape is the key name dispatched for the escape key.
const Escape = "esc"

type handler struct {
	id uint64
	fn func()
}

// Registry maps key names to their live handlers. The zero value is not
// usable; call NewRegistry.
type Registry struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]handler)}
}

// Register adds fn as a listener for key. The returned func removes it and
// is safe to call more than once.
func (r *Registry) Register(key string, fn func()) (unregister func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[key] = append(r.handlers[key], handler{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(key, id) })
	}
}

func (r *Registry) remove(key string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hs := r.handlers[key]
	for i, h := range hs {
		if h.id == id {
			hs = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) == 0 {
		delete(r.handlers, key)
		return
	}
	r.handlers[key] = hs
}

// Dispatch invokes every handler registered for key, in registration order.
// Handlers run outside the lock and may unregister themselves.
// Reports whether any handler ran.
func (r *Registry) Dispatch(key string) bool {
	r.mu.Lock()
	hs := append([]handler(nil), r.handlers[key]...)
	r.mu.Unlock()

	for _, h := range hs {
		h.fn()
	}
	return len(hs) > 0
}

// Count returns the number of live handlers for key.
func (r *Registry) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[key])
}
