package jobs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type result[T any] struct {
	value T
	err   error
}

// RunOrdered calls produce for indexes 0..n-1 using up to workers goroutines
// and hands each value to consume strictly in index order. At most workers
// values are in flight or awaiting consumption at any time. The first error
// from produce or consume stops the run: consume is never called for the
// failing index or any later one.
func RunOrdered[T any](
	ctx context.Context,
	n, workers int,
	produce func(ctx context.Context, i int) (T, error),
	consume func(i int, v T) error,
) error {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			v, err := produce(ctx, i)
			if err != nil {
				return err
			}
			if err := consume(i, v); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan result[T], n)
	for i := range results {
		results[i] = make(chan result[T], 1)
	}
	slots := make(chan struct{}, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := 0; i < n; i++ {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			i := i
			g.Go(func() error {
				v, err := produce(gctx, i)
				results[i] <- result[T]{value: v, err: err}
				return nil
			})
		}
		return nil
	})

	runErr := func() error {
		for i := 0; i < n; i++ {
			var r result[T]
			select {
			case r = <-results[i]:
			case <-ctx.Done():
				return ctx.Err()
			}
			if r.err != nil {
				return r.err
			}
			if err := consume(i, r.value); err != nil {
				return err
			}
			<-slots
		}
		return nil
	}()

	cancel()
	_ = g.Wait()
	return runErr
}
