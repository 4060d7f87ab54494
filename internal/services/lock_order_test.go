package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockOrderIsCanonical(t *testing.T) {
	a, b := lockOrder(7, 3)
	require.Equal(t, 3, a)
	require.Equal(t, 7, b)

	a, b = lockOrder(3, 7)
	require.Equal(t, 3, a)
	require.Equal(t, 7, b)
}

// Two opposite-direction transfers between the same pair must not
// deadlock: both goroutines acquire the pair in canonical order.
func TestLockPairOppositeDirections(t *testing.T) {
	s := &BalanceService{}

	done := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := s.lockPair(1, 2)
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := s.lockPair(2, 1)
			unlock()
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lockPair deadlocked")
	}
}

func TestGetMutexIsStablePerUser(t *testing.T) {
	s := &BalanceService{}
	require.Same(t, s.getMutex(42), s.getMutex(42))
	require.NotSame(t, s.getMutex(42), s.getMutex(43))
}
