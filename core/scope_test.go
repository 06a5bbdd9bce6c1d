package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_ReadStateIsIdempotent(t *testing.T) {
	s := NewScope("s1", map[string]any{"score": 0.75, "name": "pasta"})

	before := s.Snapshot()

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.75, ReadState(s, "score", 0.0))
		assert.Equal(t, 0.0, ReadState(s, "missing", 0.0))
		assert.Equal(t, 1.5, ReadState(s, "name", 1.5), "type mismatch yields default")
	}

	assert.Equal(t, before, s.Snapshot())
	assert.False(t, s.Has("missing"))
}

func TestScope_ReadStateNilScope(t *testing.T) {
	assert.Equal(t, "x", ReadState[string](nil, "k", "x"))
}

func TestScope_SnapshotIsCopy(t *testing.T) {
	initial := map[string]any{"a": 1}
	s := NewScope("s2", initial)

	initial["b"] = 2
	assert.False(t, s.Has("b"), "seed map must be copied")

	snap := s.Snapshot()
	snap["c"] = 3
	assert.False(t, s.Has("c"))
}

func TestScope_ConcurrentDistinctWriters(t *testing.T) {
	s := NewScope("s3", nil)

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			s.Set(fmt.Sprintf("k%02d", i), i)
		}(i)
	}

	wg.Wait()

	keys := s.Keys()
	require.Len(t, keys, 50)
	assert.Equal(t, "k00", keys[0])
	assert.Equal(t, 49, ReadState(s, "k49", -1))
}

func TestScope_Merge(t *testing.T) {
	s := NewScope("s4", map[string]any{"a": "old"})
	s.Merge(map[string]any{"a": "new", "b": true})

	assert.Equal(t, "new", ReadState(s, "a", ""))
	assert.True(t, ReadState(s, "b", false))
}
