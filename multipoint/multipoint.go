// Package multipoint implements spec.md §4.2's MultipointExp: exponentiation
// that stops at a strictly increasing sequence of checkpoints ("points"),
// calling back at each one (for proof-point recording), optionally raised
// through a base b per segment with sliding-window multiplication.
package multipoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/prst-go/prst/exp"
	"github.com/prst-go/prst/giant"
)

// ErrPointsNotIncreasing rejects a malformed point sequence.
var ErrPointsNotIncreasing = errors.New("multipoint: points must be strictly increasing")

// OnPoint is called each time a point is reached (including point 0, the
// start). It returns whether this point is "value-bearing" (should be
// stored with full precision, e.g. as a Pietrzak proof point) versus
// index-only; a non-nil error aborts the run.
type OnPoint func(index int, pos int, x *giant.Giant) (valueBearing bool, err error)

// Run advances x0 through points[0]..points[len-1], raising x to the power
// b once per unit step between consecutive points (degenerating to a plain
// square when b == 2). points[0] must be the position x0 already
// represents. If tail is non-nil, one final x *= tail step runs after the
// last point, counted as one extra iteration and reported via onPoint with
// index == len(points).
func Run(n *big.Int, x0 *giant.Giant, b *big.Int, points []int, tail *giant.Giant, onPoint OnPoint) (*giant.Giant, error) {
	if len(points) == 0 {
		return nil, errors.New("multipoint: no points")
	}
	for i := 1; i < len(points); i++ {
		if points[i] <= points[i-1] {
			return nil, ErrPointsNotIncreasing
		}
	}

	x := x0.Clone()
	squareOnly := b.Cmp(big.NewInt(2)) == 0

	if onPoint != nil {
		if _, err := onPoint(0, points[0], x); err != nil {
			return nil, err
		}
	}

	for i := 1; i < len(points); i++ {
		delta := points[i] - points[i-1]
		for step := 0; step < delta; step++ {
			if squareOnly {
				x.Square()
				continue
			}
			next, err := exp.SlidingWindowExp(n, x, b, nil)
			if err != nil {
				return nil, fmt.Errorf("multipoint: segment step %d of point %d: %w", step, i, err)
			}
			x = next
		}
		if onPoint != nil {
			if _, err := onPoint(i, points[i], x); err != nil {
				return nil, err
			}
		}
	}

	if tail != nil {
		x.Mul(tail)
		if onPoint != nil {
			if _, err := onPoint(len(points), points[len(points)-1], x); err != nil {
				return nil, err
			}
		}
	}

	return x, nil
}
