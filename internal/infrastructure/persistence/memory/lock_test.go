package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockerSingleWriter(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Acquire(ctx, "doc", time.Minute); ok {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())

	require.NoError(t, l.Release(ctx, "doc"))
	ok, err := l.Acquire(ctx, "doc", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerTTL(t *testing.T) {
	l := NewLocker()
	now := time.Unix(1000, 0)
	l.nowFn = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "doc", time.Second)
	require.True(t, ok)

	ok, _ = l.Acquire(ctx, "doc", time.Second)
	assert.False(t, ok)

	now = now.Add(2 * time.Second)
	ok, _ = l.Acquire(ctx, "doc", time.Second)
	assert.True(t, ok, "expired lock can be taken over")
}
