// Package collective provides the lockstep primitives every rank calls in
// the same order: an all-reduce sum and a barrier.
package collective

import (
	"context"
	"errors"
)

var (
	ErrInvalidGroup = errors.New("collective: invalid group")
	ErrMismatch     = errors.New("collective: ranks entered different collectives")
	ErrClosed       = errors.New("collective: group closed")
)

// Op names the collective a rank entered.
type Op string

const (
	OpAllReduceSum Op = "allreduce_sum"
	OpBarrier      Op = "barrier"
)

// Group is one rank's membership in the worker group. Every member must
// call the same sequence of collectives.
type Group interface {
	Rank() int
	Size() int
	// AllReduceSum returns the sum of v across all ranks once every rank
	// has contributed.
	AllReduceSum(ctx context.Context, v int) (int, error)
	// Barrier returns once every rank has entered it.
	Barrier(ctx context.Context) error
	Close() error
}

// Solo is a group of one.
type Solo struct{}

func (Solo) Rank() int { return 0 }
func (Solo) Size() int { return 1 }

func (Solo) AllReduceSum(ctx context.Context, v int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return v, nil
}

func (Solo) Barrier(ctx context.Context) error {
	return ctx.Err()
}

func (Solo) Close() error { return nil }
