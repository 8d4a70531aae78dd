// Package activity turns host events (terminal focus, resume from suspend,
// midnight ticks) into activation callbacks.
package activity

import "sync"

// Hub fans a single Signal out to every registered callback, in
// registration order, on the caller's goroutine.
type Hub struct {
	mu        sync.Mutex
	callbacks []func()
}

func NewHub() *Hub {
	return &Hub{}
}

// OnBecameActive registers callback to run on every Signal.
func (h *Hub) OnBecameActive(callback func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, callback)
}

// Signal runs all callbacks synchronously. It returns once every callback
// has finished.
func (h *Hub) Signal() {
	h.mu.Lock()
	cbs := make([]func(), len(h.callbacks))
	copy(cbs, h.callbacks)
	h.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}
