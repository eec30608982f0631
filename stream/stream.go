package stream

import (
	"context"
)

// Filter passes on the elements of in for which keep is true.
func Filter[T any](ctx context.Context, keep func(T) bool, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			if !keep(element) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}
