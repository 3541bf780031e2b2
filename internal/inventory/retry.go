package inventory

import (
	"context"
	"errors"
)

// RetryOnConflict runs fn up to attempts times while it fails with
// ErrStoreConflict. Any other error, and the last conflict, is returned as is.
func RetryOnConflict(ctx context.Context, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if !errors.Is(err, ErrStoreConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
