package ident

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestShort(t *testing.T) {
	id := Short()
	assert.Len(t, id, 6)
	for _, r := range id {
		assert.Contains(t, shortAlphabet, string(r))
	}
}

func TestSequence_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	s := NewSequence(0)
	s.now = func() time.Time { return fixed }

	first := s.Next()
	assert.Equal(t, fixed.UnixMilli(), first)
	assert.Equal(t, first+1, s.Next())
	assert.Equal(t, first+2, s.Next())
}

func TestSequence_SeedAheadOfClock(t *testing.T) {
	s := NewSequence(time.Now().Add(time.Hour).UnixMilli())
	a := s.Next()
	b := s.Next()
	assert.Equal(t, a+1, b)
}

func TestSequence_Concurrent(t *testing.T) {
	s := NewSequence(0)
	var mu sync.Mutex
	seen := make(map[int64]struct{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				v := s.Next()
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}
