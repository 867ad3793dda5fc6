package destination

import (
	"context"
	"errors"
)

// Status tags how a stage produced its value.
type Status int

const (
	StatusAbsent Status = iota
	StatusOK
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	default:
		return "absent"
	}
}

// Outcome is the result of a stage that may fall back or produce nothing.
type Outcome[T any] struct {
	Value  T
	Status Status
	Source string
}

// OK wraps a primary-path value.
func OK[T any](v T, source string) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusOK, Source: source}
}

// Degraded wraps a fallback value.
func Degraded[T any](v T, source string) Outcome[T] {
	return Outcome[T]{Value: v, Status: StatusDegraded, Source: source}
}

// Absent is the empty outcome.
func Absent[T any](source string) Outcome[T] {
	return Outcome[T]{Status: StatusAbsent, Source: source}
}

// Present reports whether the outcome carries a value.
func (o Outcome[T]) Present() bool {
	return o.Status != StatusAbsent
}

// Strategy is one step in a fallback chain.
type Strategy[T any] struct {
	Name string
	// Degraded marks a successful result from this step as lower fidelity.
	Degraded bool
	Run      func(ctx context.Context) (T, error)
}

// ErrSkip lets a strategy decline without it being logged as a failure.
var ErrSkip = errors.New("strategy skipped")

// RunChain tries each strategy in order and returns the first success.
// Fatal errors stop the chain and are returned; other failures are reported
// through onFail and the next strategy runs. When every strategy fails the
// outcome is Absent.
func RunChain[T any](ctx context.Context, chain []Strategy[T], onFail func(name string, err error)) (Outcome[T], error) {
	for _, s := range chain {
		v, err := s.Run(ctx)
		if err == nil {
			if s.Degraded {
				return Degraded(v, s.Name), nil
			}
			return OK(v, s.Name), nil
		}
		if IsFatal(err) {
			return Absent[T](s.Name), err
		}
		if onFail != nil && !errors.Is(err, ErrSkip) {
			onFail(s.Name, err)
		}
	}
	return Absent[T]("none"), nil
}
