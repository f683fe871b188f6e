// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package observable

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestValue_ReplaysLatest(t *testing.T) {
	t.Parallel()

	v := NewValue[*string](nil)
	ch, unsubscribe := v.Subscribe()
	defer unsubscribe()
	assert.Nil(t, receive(t, ch), "new subscribers receive the current value")

	name := "frank.smith@example.com"
	v.Set(&name)
	assert.Equal(t, &name, receive(t, ch))

	late, unsubscribeLate := v.Subscribe()
	defer unsubscribeLate()
	assert.Equal(t, &name, receive(t, late), "late subscribers receive the latest value")
	assert.Equal(t, &name, v.Get())
}

func TestValue_SlowSubscriberKeepsLatest(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	ch, unsubscribe := v.Subscribe()
	defer unsubscribe()

	for i := 1; i <= 5; i++ {
		v.Set(i)
	}
	assert.Equal(t, 5, receive(t, ch))

	select {
	case got := <-ch:
		t.Fatalf("unexpected extra value %d", got)
	default:
	}
}

func TestValue_InOrderDelivery(t *testing.T) {
	t.Parallel()

	v := NewValue("a")
	ch, unsubscribe := v.Subscribe()
	defer unsubscribe()

	assert.Equal(t, "a", receive(t, ch))
	v.Set("b")
	assert.Equal(t, "b", receive(t, ch))
	v.Set("c")
	assert.Equal(t, "c", receive(t, ch))
}

func TestValue_Unsubscribe(t *testing.T) {
	t.Parallel()

	v := NewValue(1)
	ch, unsubscribe := v.Subscribe()
	assert.Equal(t, 1, v.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, v.Subscribers())

	<-ch // primed value
	_, ok := <-ch
	assert.False(t, ok, "channel is closed")

	v.Set(2)
	assert.Equal(t, 2, v.Get())
}

func TestValue_ConcurrentSetters(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	ch, unsubscribe := v.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v.Set(n)
		}(i)
	}
	wg.Wait()

	var last int
	for {
		select {
		case last = <-ch:
			continue
		default:
		}
		break
	}
	assert.Equal(t, v.Get(), last, "the final delivered value is the stored value")
}
