package dedupe

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkURL(t *testing.T) {
	t.Parallel()

	s := NewSet()
	require.True(t, s.MarkURL("https://example.com/a"))
	require.False(t, s.MarkURL("https://example.com/a"))
	require.True(t, s.MarkURL("https://example.com/b"))
	require.False(t, s.MarkURL(""))
	require.Equal(t, 2, s.URLCount())
}

func TestMarkDeal(t *testing.T) {
	t.Parallel()

	s := NewSet()
	require.True(t, s.MarkDeal("abcd1234abcd1234"))
	require.False(t, s.MarkDeal("abcd1234abcd1234"))
	require.Equal(t, 1, s.DealCount())
}

func TestMarkURLConcurrent(t *testing.T) {
	t.Parallel()

	s := NewSet()
	const goroutines = 16
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkURL("https://example.com/contested") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins)
}

func TestRunsIsolated(t *testing.T) {
	t.Parallel()

	first := NewSet()
	require.True(t, first.MarkURL("https://example.com/a"))

	// A fresh run starts with a fresh set.
	second := NewSet()
	require.True(t, second.MarkURL("https://example.com/a"))
}

func TestManyDistinctKeys(t *testing.T) {
	t.Parallel()

	s := NewSet()
	for i := 0; i < 1000; i++ {
		require.True(t, s.MarkURL(fmt.Sprintf("https://example.com/%d", i)))
	}
	require.Equal(t, 1000, s.URLCount())
}
