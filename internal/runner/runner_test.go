package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProcessesEveryItemExactlyOnce(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := make(map[int]int)

	err := Run(context.Background(), FromSlice(items), func(ctx context.Context, item int) error {
		mu.Lock()
		seen[item]++
		mu.Unlock()
		return nil
	}, WithLimit(5))

	require.NoError(t, err)
	assert.Len(t, seen, len(items))
	for item, count := range seen {
		assert.Equal(t, 1, count, "item %d processed %d times", item, count)
	}
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	const limit = 4
	items := make([]int, 40)
	for i := range items {
		items[i] = i
	}

	var current, peak int64

	err := Run(context.Background(), FromSlice(items), func(ctx context.Context, item int) error {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&current, -1)
		return nil
	}, WithLimit(limit))

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(limit))
	assert.Positive(t, atomic.LoadInt64(&peak))
}

func TestRunReturnsFirstErrorAndStopsPulling(t *testing.T) {
	sentinel := errors.New("boom")
	items := []int{1, 2, 3, 4, 5}

	var processed int64

	err := Run(context.Background(), FromSlice(items), func(ctx context.Context, item int) error {
		atomic.AddInt64(&processed, 1)
		if item == 1 {
			return sentinel
		}
		return nil
	}, WithLimit(1))

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, int64(1), atomic.LoadInt64(&processed))
}

func TestRunCancelsInFlightWorkersOnError(t *testing.T) {
	sentinel := errors.New("boom")
	blocked := make(chan struct{})

	err := Run(context.Background(), FromSlice([]string{"block", "fail"}), func(ctx context.Context, item string) error {
		switch item {
		case "block":
			close(blocked)
			<-ctx.Done()
			return ctx.Err()
		default:
			<-blocked
			return sentinel
		}
	}, WithLimit(2))

	require.ErrorIs(t, err, sentinel)
}

func TestRunSourceErrorAborts(t *testing.T) {
	sentinel := errors.New("source failed")
	calls := 0
	src := SourceFunc[int](func(ctx context.Context) (int, bool, error) {
		calls++
		if calls > 3 {
			return 0, false, sentinel
		}
		return calls, true, nil
	})

	var processed int64
	err := Run(context.Background(), src, func(ctx context.Context, item int) error {
		atomic.AddInt64(&processed, 1)
		return nil
	}, WithLimit(2))

	require.ErrorIs(t, err, sentinel)
	assert.LessOrEqual(t, atomic.LoadInt64(&processed), int64(3))
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan int)

	started := make(chan struct{})
	go func() {
		ch <- 1
		close(started)
	}()
	go func() {
		<-started
		cancel()
	}()

	err := Run(ctx, FromChannel(ch), func(ctx context.Context, item int) error {
		return nil
	}, WithLimit(2))

	require.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptySource(t *testing.T) {
	var processed int64

	err := Run(context.Background(), FromSlice([]int{}), func(ctx context.Context, item int) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt64(&processed))
}

func TestRunInvalidLimit(t *testing.T) {
	testCases := []struct {
		name  string
		limit int
	}{
		{"zero", 0},
		{"negative", -3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Run(context.Background(), FromSlice([]int{1}), func(ctx context.Context, item int) error {
				return nil
			}, WithLimit(tc.limit))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "limit")
		})
	}
}

func TestRunFromChannel(t *testing.T) {
	ch := make(chan string, 8)
	for i := 0; i < 8; i++ {
		ch <- fmt.Sprintf("item-%d", i)
	}
	close(ch)

	var mu sync.Mutex
	seen := make(map[string]bool)

	err := Run(context.Background(), FromChannel(ch), func(ctx context.Context, item string) error {
		mu.Lock()
		seen[item] = true
		mu.Unlock()
		return nil
	}, WithLimit(3))

	require.NoError(t, err)
	assert.Len(t, seen, 8)
}

func TestRunDefaultLimit(t *testing.T) {
	items := make([]int, 300)
	for i := range items {
		items[i] = i
	}

	var current, peak int64
	err := Run(context.Background(), FromSlice(items), func(ctx context.Context, item int) error {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		atomic.AddInt64(&current, -1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(DefaultLimit))
}
