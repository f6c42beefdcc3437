package trading

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockRegistry_SameUserSerializes(t *testing.T) {
	r := NewLockRegistry()
	var counter int64
	var maxConcurrent int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.WithLock("u1", func() error {
				n := atomic.AddInt64(&counter, 1)
				if n > atomic.LoadInt64(&maxConcurrent) {
					atomic.StoreInt64(&maxConcurrent, n)
				}
				atomic.AddInt64(&counter, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, int64(1), maxConcurrent)
}

func TestLockRegistry_DifferentUsersDoNotShareALock(t *testing.T) {
	r := NewLockRegistry()
	require.NotSame(t, r.lockFor("u1"), r.lockFor("u2"))
	require.Same(t, r.lockFor("u1"), r.lockFor("u1"))
}
