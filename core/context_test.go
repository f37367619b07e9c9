package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextConcurrentAccess tests that context values can be safely accessed concurrently.
func TestContextConcurrentAccess(t *testing.T) {
	ctx := context.Background()

	const numGoroutines = 50
	done := make(chan bool, numGoroutines)

	ctx = withRunID(ctx, 12345)

	for i := range numGoroutines {
		go func(id int) {
			defer func() { done <- true }()

			runID, ok := getRunID(ctx)

			assert.True(t, ok, "Goroutine %d: getRunID should return true", id)
			assert.Equal(t, int64(12345), runID, "Goroutine %d: runID should be 12345", id)
		}(i)
	}

	for range numGoroutines {
		<-done
	}
}

// TestContextIsolation tests that different contexts maintain isolation.
func TestContextIsolation(t *testing.T) {
	baseCtx := context.Background()

	ctx1 := withRunID(baseCtx, 1)
	ctx2 := withRunID(baseCtx, 2)
	ctx3 := context.WithValue(baseCtx, contextKey("other"), true)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		id1, ok1 := getRunID(ctx1)
		assert.True(t, ok1)
		assert.Equal(t, int64(1), id1)
	}()

	go func() {
		defer wg.Done()
		id2, ok2 := getRunID(ctx2)
		assert.True(t, ok2)
		assert.Equal(t, int64(2), id2)
	}()

	go func() {
		defer wg.Done()
		id3, ok3 := getRunID(ctx3)
		assert.False(t, ok3)
		assert.Equal(t, int64(0), id3)
	}()

	wg.Wait()
}
