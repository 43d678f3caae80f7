package backoff

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Policy errors.
var (
	ErrUnknownAlgorithm = errors.New("unknown retry algorithm")
	ErrNeverRetry       = errors.New("algorithm never retries")
)

// Algorithm selects a named retry-delay preset.
type Algorithm uint8

const (
	// AlgorithmDefault is used by definitions that do not pick a preset.
	AlgorithmDefault Algorithm = iota

	// AlgorithmReferencable suits long-lived shared subscriptions; it retries
	// eagerly because many consumers depend on the stream.
	AlgorithmReferencable

	// AlgorithmNonReferencable suits one-off queries; it backs off harder.
	AlgorithmNonReferencable

	// AlgorithmNever disables retries.
	AlgorithmNever
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmDefault:
		return "DEFAULT"
	case AlgorithmReferencable:
		return "REFERENCABLE"
	case AlgorithmNonReferencable:
		return "NON_REFERENCABLE"
	case AlgorithmNever:
		return "NEVER"
	default:
		return "UNKNOWN"
	}
}

// ParseAlgorithm parses an algorithm name (case-insensitive, "-" and "_"
// are interchangeable).
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "default":
		return AlgorithmDefault, nil
	case "referencable":
		return AlgorithmReferencable, nil
	case "non_referencable", "nonreferencable":
		return AlgorithmNonReferencable, nil
	case "never":
		return AlgorithmNever, nil
	default:
		return AlgorithmDefault, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so algorithms can be
// used directly in configuration files.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Tiers is the delay table of one algorithm.
type Tiers struct {
	// First is the delay before the first retry.
	First time.Duration

	// Second is the delay before the second retry.
	Second time.Duration

	// Plateau is the delay for attempts 3 through PlateauUntil.
	Plateau time.Duration

	// PlateauUntil is the last attempt that uses Plateau.
	PlateauUntil int

	// Final is the delay for every attempt after PlateauUntil.
	Final time.Duration
}

// Delay returns the delay for the given attempt (1-based). Attempts below 1
// are treated as 1.
func (t Tiers) Delay(attempt int) time.Duration {
	switch {
	case attempt <= 1:
		return t.First
	case attempt == 2:
		return t.Second
	case attempt <= t.PlateauUntil:
		return t.Plateau
	default:
		return t.Final
	}
}

// Validate checks that the table is non-decreasing.
func (t Tiers) Validate() error {
	if t.First <= 0 {
		return errors.New("first delay must be positive")
	}
	if t.Second < t.First || t.Plateau < t.Second || t.Final < t.Plateau {
		return fmt.Errorf("delays must be non-decreasing: %s, %s, %s, %s",
			t.First, t.Second, t.Plateau, t.Final)
	}
	if t.PlateauUntil < 2 {
		return fmt.Errorf("plateau must extend to at least attempt 2, got %d", t.PlateauUntil)
	}
	return nil
}

// presets holds the delay tables for every retrying algorithm.
var presets = map[Algorithm]Tiers{
	AlgorithmDefault: {
		First:        2 * time.Second,
		Second:       10 * time.Second,
		Plateau:      30 * time.Second,
		PlateauUntil: 5,
		Final:        5 * time.Minute,
	},
	AlgorithmReferencable: {
		First:        1 * time.Second,
		Second:       5 * time.Second,
		Plateau:      20 * time.Second,
		PlateauUntil: 6,
		Final:        2 * time.Minute,
	},
	AlgorithmNonReferencable: {
		First:        5 * time.Second,
		Second:       30 * time.Second,
		Plateau:      60 * time.Second,
		PlateauUntil: 4,
		Final:        10 * time.Minute,
	},
}

// CanRetry reports whether the algorithm produces delays at all.
func (a Algorithm) CanRetry() bool {
	_, ok := presets[a]
	return ok
}

// Tiers returns the delay table of the algorithm.
func (a Algorithm) Tiers() (Tiers, bool) {
	t, ok := presets[a]
	return t, ok
}

// Delay returns the delay before retry number attempt.
// It panics for AlgorithmNever and unknown algorithms.
func (a Algorithm) Delay(attempt int) time.Duration {
	t, ok := presets[a]
	if !ok {
		panic(fmt.Sprintf("backoff: delay requested for %s algorithm", a))
	}
	return t.Delay(attempt)
}

// Sequence returns the first n delays of the algorithm.
func (a Algorithm) Sequence(n int) []time.Duration {
	seq := make([]time.Duration, 0, n)
	for attempt := 1; attempt <= n; attempt++ {
		seq = append(seq, a.Delay(attempt))
	}
	return seq
}
