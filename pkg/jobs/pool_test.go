package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	done := make(chan struct{}, 3)

	pool := NewPool("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		seen[task.ID]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, Options{Workers: 2})

	pool.Start(context.Background())
	defer pool.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, pool.Submit(Task{ID: id, Kind: "noop"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("task did not run")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestPoolRetriesFailedTasks(t *testing.T) {
	attempts := make(chan int, 8)
	pool := NewPool("retry", func(ctx context.Context, task Task) error {
		attempts <- task.Attempt
		if task.Attempt == 0 {
			return errors.New("transient")
		}
		return nil
	}, Options{MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	pool.Start(context.Background())
	defer pool.Stop()

	require.NoError(t, pool.Submit(Task{ID: "flaky", Kind: "noop"}))

	first := <-attempts
	assert.Equal(t, 0, first)
	select {
	case second := <-attempts:
		assert.Equal(t, 1, second)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not retried")
	}
}

func TestPoolRejectsSubmitBeforeStart(t *testing.T) {
	pool := NewPool("idle", func(ctx context.Context, task Task) error { return nil }, Options{})
	require.Error(t, pool.Submit(Task{ID: "early"}))
}
