// Package backoff provides the retry-delay policy used when a subscription
// request has to be re-sent after a timeout or a server-reported error.
//
// A policy is one of a small set of named algorithms. Each algorithm maps an
// attempt count (starting at 1) to a delay using four tiers:
//
//  1. First: a short delay for the first retry
//  2. Second: a longer delay for the second retry
//  3. Plateau: a fixed delay up to and including PlateauUntil attempts
//  4. Final: a long delay for every attempt after that
//
// The resulting sequence is monotonically non-decreasing and ends in a
// plateau. For the Default algorithm:
//
//	attempt:  1    2     3..5   6+
//	delay:    2s   10s   30s    5m
//
// # Never
//
// AlgorithmNever marks definitions that must not be retried. Asking it for a
// delay is a programming error and panics; callers check CanRetry first.
//
// # go-retry
//
// NewRetryBackoff adapts an algorithm to github.com/sethvargo/go-retry so
// hosts can drive their own loops (for example dialing the publisher) with
// the same delay table:
//
//	b, err := backoff.NewRetryBackoff(backoff.AlgorithmDefault)
//	err = retry.Do(ctx, retry.WithMaxRetries(5, b), dial)
package backoff
