// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package observable provides a value cell that replays its latest value to
// subscribers.
package observable

import "sync"

// Value holds a single value of type T. Subscribers receive the current
// value on subscription and every later replacement. A subscriber that
// falls behind only keeps the most recent value it has not received.
type Value[T any] struct {
	mu          sync.RWMutex
	value       T
	nextID      uint64
	subscribers map[uint64]chan T
}

// NewValue returns a cell holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial, subscribers: make(map[uint64]chan T)}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the value and notifies subscribers.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = value
	for _, ch := range v.subscribers {
		offer(ch, value)
	}
}

// Subscribe returns a channel primed with the current value and a function
// that closes it.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	ch := make(chan T, 1)
	ch <- v.value
	v.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subscribers, id)
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Subscribers returns the number of active subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subscribers)
}

// offer replaces any undelivered value in ch with value. Callers hold the
// write lock, so they are the only sender.
func offer[T any](ch chan T, value T) {
	select {
	case <-ch:
	default:
	}
	ch <- value
}
