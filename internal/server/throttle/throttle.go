// Package throttle limits how often an e-mail-keyed action may run within a
// fixed window.
package throttle

import "context"

// Limiter counts one attempt for key and reports whether it is within the limit.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
