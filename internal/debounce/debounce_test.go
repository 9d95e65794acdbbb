package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggerCollapsesBurstIntoOneCall(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	d := New(60*time.Millisecond, func(key string) {
		mu.Lock()
		calls = append(calls, key)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		d.Trigger("u-1")
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"u-1"}, calls)
}

func TestTriggerIsIndependentPerKey(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}

	d := New(30*time.Millisecond, func(key string) {
		mu.Lock()
		calls[key]++
		mu.Unlock()
	})

	d.Trigger("a")
	d.Trigger("b")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls["a"])
	assert.Equal(t, 1, calls["b"])
}

func TestStopCancelsPendingFire(t *testing.T) {
	fired := false
	d := New(30*time.Millisecond, func(key string) {
		fired = true
	})

	d.Trigger("u-1")
	d.Stop("u-1")

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired)
}
