package batch

import (
	"context"
	"sync"
)

// Semaphore bounds how many batches a job may have in flight at once.
// Waiters are admitted strictly in arrival order, so no batch is starved
// by later arrivals.
type Semaphore struct {
	mu        sync.Mutex
	capacity  int
	available int
	waiters   []chan struct{}
}

// NewSemaphore creates a semaphore with the given number of permits.
// A capacity below one is treated as one.
func NewSemaphore(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	return &Semaphore{
		capacity:  capacity,
		available: capacity,
	}
}

// Acquire blocks until a permit is free or ctx is done. The returned
// Permit releases at most once; a second Release call is a no-op, so a
// deferred release can never over-provision the semaphore.
func (s *Semaphore) Acquire(ctx context.Context) (*Permit, error) {
	s.mu.Lock()
	if s.available > 0 {
		s.available--
		s.mu.Unlock()
		return &Permit{sem: s}, nil
	}

	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return &Permit{sem: s}, nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == ready {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		s.mu.Unlock()
		// A release handed us the permit before the cancellation won the
		// race. Give it back so the slot is not lost.
		s.release()
		return nil, ctx.Err()
	}
}

// InUse reports how many permits are currently held.
func (s *Semaphore) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity - s.available
}

// Capacity returns the fixed permit count.
func (s *Semaphore) Capacity() int {
	return s.capacity
}

// release frees one permit, handing it to the oldest waiter if any.
func (s *Semaphore) release() {
	s.mu.Lock()
	if len(s.waiters) > 0 {
		ready := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.mu.Unlock()
		close(ready)
		return
	}
	if s.available < s.capacity {
		s.available++
	}
	s.mu.Unlock()
}

// Permit is a single-use handle on one semaphore slot.
type Permit struct {
	sem  *Semaphore
	once sync.Once
}

// Release returns the permit to the semaphore. Safe to call more than
// once; only the first call frees the slot.
func (p *Permit) Release() {
	p.once.Do(p.sem.release)
}
