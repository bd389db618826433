// Package precheck talks to the external account validator.
package precheck

import (
	"context"
	"errors"
)

// ErrUnavailable means the validator could not be reached or answered badly.
// A batch that hits it must not be delivered from.
var ErrUnavailable = errors.New("precheck validator unavailable")

// Options describe how a product's units are validated.
type Options struct {
	Level       int
	Format      string
	Concurrency int
}

// Verdict is the validator's answer for one unit.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Validator checks raw unit contents.
type Validator interface {
	// HealthCheck returns nil when the validator is ready to take a batch.
	HealthCheck(ctx context.Context) error

	// ValidateBatch returns one verdict per content, in input order.
	// Any transport failure fails the whole batch with ErrUnavailable.
	ValidateBatch(ctx context.Context, contents []string, opts Options) ([]Verdict, error)
}

// Disabled is used when no validator is configured. It is never healthy.
type Disabled struct{}

func (Disabled) HealthCheck(ctx context.Context) error {
	return errors.Join(ErrUnavailable, errors.New("no validator configured"))
}

func (Disabled) ValidateBatch(ctx context.Context, contents []string, opts Options) ([]Verdict, error) {
	return nil, errors.Join(ErrUnavailable, errors.New("no validator configured"))
}

// Split partitions items by their verdicts. items and verdicts must have equal length.
func Split[T any](items []T, verdicts []Verdict) (valid, invalid []T) {
	for i, it := range items {
		if i < len(verdicts) && verdicts[i].Valid {
			valid = append(valid, it)
		} else {
			invalid = append(invalid, it)
		}
	}
	return valid, invalid
}
