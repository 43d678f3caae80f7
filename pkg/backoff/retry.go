package backoff

import (
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// NewRetryBackoff returns a go-retry Backoff that walks the delay table of a.
// Each returned Backoff keeps its own attempt counter and never stops on its
// own; wrap it with retry.WithMaxRetries or retry.WithMaxDuration to bound it.
func NewRetryBackoff(a Algorithm) (retry.Backoff, error) {
	if !a.CanRetry() {
		return nil, fmt.Errorf("%w: %s", ErrNeverRetry, a)
	}

	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return a.Delay(attempt), false
	}), nil
}
