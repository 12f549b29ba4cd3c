// Package ctxutil provides context utility functions.
package ctxutil

import "context"

// Canceled reports the context error once it is done (Canceled or
// DeadlineExceeded) and nil otherwise. Every blocking operation calls it on
// entry so a canceled run stops before starting another subprocess.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
