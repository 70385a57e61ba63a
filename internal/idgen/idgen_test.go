package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGen_MonotonicPerKind(t *testing.T) {
	g := New()

	assert.Equal(t, int64(1), g.NextOrderID())
	assert.Equal(t, int64(2), g.NextOrderID())
	assert.Equal(t, int64(1), g.NextPositionID())
	assert.Equal(t, int64(3), g.NextOrderID())
}

func TestIDGen_ConcurrentNoDuplicates(t *testing.T) {
	g := New()
	const n = 500
	ids := make([]int64, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			ids[i] = g.NextOrderID()
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestNewClientOrderID_Unique(t *testing.T) {
	a := NewClientOrderID()
	b := NewClientOrderID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
