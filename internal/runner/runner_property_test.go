//go:build property

package runner

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRunProperties validates the bounded-concurrency contract over random
// item counts and limits
func TestRunProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: Observed concurrency never exceeds the limit and every item
	// is processed exactly once
	properties.Property("concurrency bounded and items processed exactly once", prop.ForAll(
		func(itemCount int, limit int) bool {
			items := make([]int, itemCount)
			for i := range items {
				items[i] = i
			}

			var current, peak, total int64

			err := Run(context.Background(), FromSlice(items), func(ctx context.Context, item int) error {
				n := atomic.AddInt64(&current, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				atomic.AddInt64(&total, 1)
				atomic.AddInt64(&current, -1)
				return nil
			}, WithLimit(limit))

			if err != nil {
				return false
			}
			return atomic.LoadInt64(&peak) <= int64(limit) &&
				atomic.LoadInt64(&total) == int64(itemCount)
		},
		gen.IntRange(0, 300),
		gen.IntRange(1, 50),
	))

	// Property: Channel-fed sources deliver every value exactly once
	properties.Property("channel sources drain completely", prop.ForAll(
		func(itemCount int, limit int) bool {
			ch := make(chan int, itemCount)
			for i := 0; i < itemCount; i++ {
				ch <- i
			}
			close(ch)

			var total int64
			err := Run(context.Background(), FromChannel(ch), func(ctx context.Context, item int) error {
				atomic.AddInt64(&total, 1)
				return nil
			}, WithLimit(limit))

			return err == nil && atomic.LoadInt64(&total) == int64(itemCount)
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}
