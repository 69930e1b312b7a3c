package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_AcquireUpToCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sem := NewSemaphore(3)

	for i := 0; i < 3; i++ {
		_, err := sem.Acquire(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, sem.InUse())
	assert.Equal(t, 3, sem.Capacity())
}

func TestSemaphore_MinimumCapacityIsOne(t *testing.T) {
	t.Parallel()

	sem := NewSemaphore(0)
	assert.Equal(t, 1, sem.Capacity())

	sem = NewSemaphore(-5)
	assert.Equal(t, 1, sem.Capacity())
}

func TestSemaphore_BlocksAtCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sem := NewSemaphore(1)
	permit, err := sem.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		p, err := sem.Acquire(ctx)
		if err == nil {
			p.Release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the permit is held")
	case <-time.After(50 * time.Millisecond):
	}

	permit.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should proceed after release")
	}
}

func TestSemaphore_FIFOOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sem := NewSemaphore(1)
	permit, err := sem.Acquire(ctx)
	require.NoError(t, err)

	const waiters = 5
	var (
		mu    sync.Mutex
		order []int
	)
	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		for i := 0; i < waiters; i++ {
			i := i
			go func() {
				started <- struct{}{}
				p, err := sem.Acquire(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				p.Release()
				done <- struct{}{}
			}()
			// Let each waiter enqueue before starting the next, so
			// arrival order is deterministic.
			<-started
			time.Sleep(10 * time.Millisecond)
		}
		permit.Release()
	}()

	for i := 0; i < waiters; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("waiters did not all finish")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, waiters)
	for i, got := range order {
		assert.Equal(t, i, got, "waiters should be admitted in arrival order")
	}
}

func TestSemaphore_AcquireCancelled(t *testing.T) {
	t.Parallel()

	sem := NewSemaphore(1)
	permit, err := sem.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := sem.Acquire(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled acquire did not return")
	}

	// The slot must still be usable after the cancelled waiter left.
	permit.Release()
	p, err := sem.Acquire(context.Background())
	require.NoError(t, err)
	p.Release()
}

func TestSemaphore_DoubleReleaseIsNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sem := NewSemaphore(2)
	permit, err := sem.Acquire(ctx)
	require.NoError(t, err)

	permit.Release()
	permit.Release()
	permit.Release()

	assert.Equal(t, 0, sem.InUse(), "double release must not free more than one slot")
}

func TestSemaphore_BoundsConcurrentWork(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const capacity = 3
	sem := NewSemaphore(capacity)

	var (
		current int64
		peak    int64
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			permit, err := sem.Acquire(ctx)
			if err != nil {
				return
			}
			defer permit.Release()

			n := atomic.AddInt64(&current, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&current, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(capacity))
}
