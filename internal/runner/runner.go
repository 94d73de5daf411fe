package runner

import (
	"context"
	"fmt"
)

// DefaultLimit is the concurrency ceiling applied when no WithLimit option
// is given. It bounds open file handles during large site builds.
const DefaultLimit = 200

// Source yields work items one at a time. Next may block until an item is
// available; it returns ok=false once the source is exhausted. Sources
// should honor ctx cancellation while blocked.
type Source[T any] interface {
	Next(ctx context.Context) (item T, ok bool, err error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc[T any] func(ctx context.Context) (T, bool, error)

// Next calls f.
func (f SourceFunc[T]) Next(ctx context.Context) (T, bool, error) {
	return f(ctx)
}

// Worker processes a single item. Workers run concurrently and must be safe
// to call from multiple goroutines.
type Worker[T any] func(ctx context.Context, item T) error

// Option configures a Run invocation.
type Option func(*config)

type config struct {
	limit int
}

// WithLimit caps the number of items processed concurrently.
func WithLimit(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

// completion reports a finished task back to the driver. Slot identifies
// which table entry the task occupied, so the driver frees exactly that
// entry without scanning or comparing task identity.
type completion struct {
	slot int
	err  error
}

// Run pulls items from src and hands each to work, keeping at most the
// configured limit in flight at once. Every yielded item is processed
// exactly once; completion order is unconstrained. The first worker or
// source error cancels the remaining work: no further items are pulled,
// in-flight workers are awaited, and that first error is returned.
// Cancelling ctx aborts the run the same way.
func Run[T any](ctx context.Context, src Source[T], work Worker[T], opts ...Option) error {
	cfg := config{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.limit < 1 {
		return fmt.Errorf("concurrency limit must be at least 1, got %d", cfg.limit)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Free-slot stack over a fixed table of limit entries. A task leases a
	// slot index for its lifetime and reports it back on done.
	free := make([]int, cfg.limit)
	for i := range free {
		free[i] = i
	}
	done := make(chan completion, cfg.limit)

	inFlight := 0
	pulling := true
	var firstErr error

	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		pulling = false
	}

	for pulling || inFlight > 0 {
		if pulling && len(free) > 0 {
			if runCtx.Err() != nil {
				pulling = false
				continue
			}
			item, ok, err := src.Next(runCtx)
			if err != nil {
				fail(err)
				continue
			}
			if !ok {
				pulling = false
				continue
			}

			slot := free[len(free)-1]
			free = free[:len(free)-1]
			inFlight++
			go func(slot int, item T) {
				done <- completion{slot: slot, err: work(runCtx, item)}
			}(slot, item)
			continue
		}

		if inFlight == 0 {
			break
		}
		c := <-done
		free = append(free, c.slot)
		inFlight--
		if c.err != nil {
			fail(c.err)
		}
	}

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// FromSlice returns a Source yielding the elements of items in order.
func FromSlice[T any](items []T) Source[T] {
	i := 0
	return SourceFunc[T](func(ctx context.Context) (T, bool, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		if i >= len(items) {
			return zero, false, nil
		}
		item := items[i]
		i++
		return item, true, nil
	})
}

// FromChannel returns a Source that yields values received from ch until it
// is closed.
func FromChannel[T any](ch <-chan T) Source[T] {
	return SourceFunc[T](func(ctx context.Context) (T, bool, error) {
		var zero T
		select {
		case item, ok := <-ch:
			if !ok {
				return zero, false, nil
			}
			return item, true, nil
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	})
}
