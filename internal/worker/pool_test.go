package worker

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool[int](context.Background(), 4)
	pool.Start()

	for i := 0; i < 20; i++ {
		i := i
		pool.Submit(func(context.Context) int { return i * i })
	}

	results := pool.Wait()
	require.Len(t, results, 20)
	sort.Ints(results)
	assert.Equal(t, 0, results[0])
	assert.Equal(t, 361, results[19])
}

func TestPoolBacklogBeyondBuffers(t *testing.T) {
	// Submit-everything-then-Wait is how index rebuilds drive the pool.
	// The job count far exceeds queue + results + in-flight capacity, so
	// this hangs unless results are drained during submission.
	pool := NewPool[int](context.Background(), 2)
	pool.Start()

	const jobs = 200
	for i := 0; i < jobs; i++ {
		i := i
		pool.Submit(func(context.Context) int { return i })
	}

	results := pool.Wait()
	require.Len(t, results, jobs)
	sort.Ints(results)
	assert.Equal(t, 0, results[0])
	assert.Equal(t, jobs-1, results[jobs-1])
}

func TestPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool[bool](ctx, 2)
	pool.Start()

	var started atomic.Int32
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	for i := 0; i < 100; i++ {
		pool.Submit(func(jobCtx context.Context) bool {
			started.Add(1)
			select {
			case <-jobCtx.Done():
				return false
			case <-time.After(10 * time.Millisecond):
				return true
			}
		})
	}

	pool.Shutdown()

	assert.Less(t, int(started.Load()), 100, "cancellation must abort queued work")
}

func TestPoolSingleWorkerMinimum(t *testing.T) {
	pool := NewPool[string](context.Background(), 0)
	pool.Start()
	pool.Submit(func(context.Context) string { return "ran" })

	results := pool.Wait()
	require.Len(t, results, 1)
	assert.Equal(t, "ran", results[0])
}
