package services

import "sync"

// Emitter fans values out to subscribers. Publish calls every listener
// synchronously, in subscription order. After Close, Publish is a no-op.
type Emitter[T any] struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(T)
	order     []int
	closed    bool
}

func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{listeners: make(map[int]func(T))}
}

// Subscribe registers fn and returns a func that removes it.
// The returned func is safe to call more than once.
func (e *Emitter[T]) Subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return func() {}
	}

	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter[T]) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *Emitter[T]) Publish(v T) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return
	}
	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.listeners[id])
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// Close drops all listeners.
func (e *Emitter[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.listeners = make(map[int]func(T))
	e.order = nil
}
