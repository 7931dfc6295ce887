// Package gerbicz implements spec.md §4.3's strong-check exponentiation:
// GerbiczCheckMultipointExp for smooth bases (N = k·b^n+c, stepping by a
// fixed small power b) and LiCheckExp for non-smooth exponents, where the
// step sequence is an arbitrary bit pattern instead of a repeated power.
//
// Both interleave a fast-path running residue X with a periodically-folded
// accumulator D. The overall iteration range is first split into `checks`
// independently-checked segments (16 by default, matching fermat.cpp's
// GerbiczCheckExp(b, n, checks=16, ...)); within each segment, every L
// steps D absorbs the current X, and every L² steps (one "block", sized
// from that segment's own length via Params) an independent recomputation
// either confirms the block or signals a restart to the last good
// checkpoint R. The block boundary is the only point at which work can be
// lost to a detected fault, and a restart only replays its own ~1/checks
// segment rather than the whole run, per spec.md's testable property: for
// every completed block, X·D_old ≡ D_old^(b^L)·R mod N (smooth) or its
// NAF-reconstruction equivalent (Li) must hold, derived from
// _examples/original_source/src/exp.cpp's GerbiczCheckMultipointExp::execute().
package gerbicz

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/prst-go/prst/exp"
	"github.com/prst-go/prst/giant"
)

// ErrTooManyMismatches is returned when block checks fail more than
// maxMismatches times in total over one Run or RunLi call.
var ErrTooManyMismatches = errors.New("gerbicz: too many check mismatches")

// maxMismatches bounds the total number of failed block checks one Run or
// RunLi call tolerates, summed over all blocks and segments, mirroring
// task.MaxRestarts's per-Run restart count for this narrower recovery loop.
const maxMismatches = 5

// OnPoint is called whenever a requested point is reached. A non-nil error
// aborts the run.
type OnPoint func(pos int, x *giant.Giant) error

// DefaultChecks is the number of independently-checked segments Run/RunLi
// partition their iteration range into when the caller doesn't override
// it, matching fermat.cpp's `GerbiczCheckExp(b, n, checks=16, ...)`: 16
// roughly-equal blocks, each with its own Params(iters/16, ...) and its
// own bounded restart, rather than one block covering the whole run.
const DefaultChecks = 16

// Params returns the block parameters (L, L²) minimizing checkpoint
// overhead for iters total steps, where log2b is the log2 of the per-step
// base (always forced to 1 here, matching
// GerbiczCheckMultipointExp::Gerbicz_params, which ignores its own log2b
// argument in favor of a fixed bit-granularity estimate). iters here is
// meant to be one segment's length (iters_total/checks), not the whole
// run's iteration count: see Run's segment loop.
func Params(iters int, log2b float64) (L, L2 int) {
	_ = log2b
	log2b = 1
	if iters <= 0 {
		return 1, 0
	}
	L = int(math.Sqrt(float64(iters) / log2b))
	if L < 1 {
		L = 1
	}
	L2 = iters - iters%L
	limit := int(2 * float64(iters) / log2b)
	for i := L + 1; i*i < limit; i++ {
		if L2 < iters-iters%i {
			L = i
			L2 = iters - iters%i
		}
	}
	return L, L2
}

func log2Big(b *big.Int) float64 {
	f := new(big.Float).SetInt(b)
	v, _ := f.Float64()
	return math.Log2(v)
}

// Run executes a smooth-base Gerbicz-checked exponentiation: x0 raised
// through iters unit steps of power b (b==2 degenerates to plain
// squaring), firing onPoint at each requested position. iters is
// partitioned into checks independently-checked segments (DefaultChecks
// if checks < 1), each with its own Params(segLen, log2b) block
// schedule, so a mismatch only forces replaying its own ~iters/checks
// segment rather than the whole run — spec.md §2/§4.3's "periodic
// equality test... triggers bounded rollback", grounded on fermat.cpp's
// GerbiczCheckExp(b, n, checks, ...) / Gerbicz_params(n/checks, ...)
// split. It returns the final residue and the number of mismatches that
// were caught and recovered from, summed across all segments.
func Run(n *big.Int, x0 *giant.Giant, b *big.Int, iters int, checks int, points []int, onPoint OnPoint) (*giant.Giant, int, error) {
	for i := 1; i < len(points); i++ {
		if points[i] <= points[i-1] {
			return nil, 0, errors.New("gerbicz: points must be strictly increasing")
		}
	}
	if checks < 1 {
		checks = DefaultChecks
	}

	squareOnly := b.Cmp(big.NewInt(2)) == 0
	log2b := 1.0
	if !squareOnly {
		log2b = log2Big(b)
	}

	step := func(x *giant.Giant) error {
		if squareOnly {
			x.Square()
			return nil
		}
		next, err := exp.SlidingWindowExp(n, x, b, nil)
		if err != nil {
			return err
		}
		*x = *next
		return nil
	}
	stepCareful := func(x *giant.Giant) error {
		if squareOnly {
			x.CarefulSquare()
			return nil
		}
		// SlidingWindowExp is careful throughout (see exp.go), so it
		// already serves as the careful step for non-smooth-squaring
		// bases; the fast/careful distinction only bites for b==2.
		next, err := exp.SlidingWindowExp(n, x, b, nil)
		if err != nil {
			return err
		}
		*x = *next
		return nil
	}

	R := x0.Clone()
	pointIdx := 0
	if len(points) > 0 && points[0] == 0 {
		if onPoint != nil {
			if err := onPoint(0, R); err != nil {
				return nil, 0, err
			}
		}
		pointIdx++
	}

	mismatches := 0
	segStart := 0
	for seg := 0; seg < checks; seg++ {
		segEnd := iters * (seg + 1) / checks
		segLen := segEnd - segStart
		if segLen <= 0 {
			segStart = segEnd
			continue
		}
		L, L2 := Params(segLen, log2b)
		if L2 == 0 {
			L2 = segLen
		}

		i := 0
		for i < segLen {
			blockLen := L2
			if rem := segLen - i; rem < blockLen {
				blockLen = rem
			}
			// A full block folds D every L steps. A shorter tail block
			// (always fewer than L steps) is checked as one stride of its
			// own length: D stays R and the check replays the whole tail.
			stride := L
			if blockLen != L2 {
				stride = blockLen
			}
			blockPointIdx := pointIdx

			X := R.Clone()
			D := R.Clone()
			for s := 1; s <= blockLen; s++ {
				if err := step(X); err != nil {
					return nil, mismatches, fmt.Errorf("gerbicz: step %d: %w", segStart+i+s, err)
				}
				if s%stride == 0 && s != blockLen {
					D.Mul(X)
				}
				pos := segStart + i + s
				if pointIdx < len(points) && points[pointIdx] == pos {
					if onPoint != nil {
						if err := onPoint(pos, X); err != nil {
							return nil, mismatches, err
						}
					}
					pointIdx++
				}
			}

			Dold := D.Clone()
			Dnew := X.Clone()
			Dnew.CarefulMul(Dold)

			check := Dold.Clone()
			for k := 0; k < stride; k++ {
				if err := stepCareful(check); err != nil {
					return nil, mismatches, fmt.Errorf("gerbicz: check step: %w", err)
				}
			}
			check.CarefulMul(R)

			if !check.Equal(Dnew) {
				mismatches++
				if mismatches > maxMismatches {
					return nil, mismatches, ErrTooManyMismatches
				}
				pointIdx = blockPointIdx
				continue // redo this block from R, within the current segment; i is unchanged
			}

			R = X.Clone()
			i += blockLen
		}
		segStart = segEnd
	}

	return R, mismatches, nil
}

// RunLi executes a Gerbicz-Li checked single-exponent exponentiation
// (x0^e mod n), for exponents that are not expressible as a repeated
// small power (the case GerbiczCheckMultipointExp delegates to
// LiCheckExp). Each unit step processes one bit of e via square-then-
// maybe-multiply-by-x0 (the same recurrence as FastExp), in L-step blocks
// of L² steps each.
//
// Unlike the smooth case, a per-step constant multiply is not a group
// homomorphism ((R·D)² · c ≠ R²·c · D²·c), so the O(L) algebraic identity
// used by Run does not generalize here without the NAF-w reconstruction
// machinery described in spec.md §4.4 (not present in the retrieved
// source). This implementation instead re-derives the expected block-end
// residue directly: replay the same recorded bit sequence from the last
// good checkpoint R using the careful multiplier, and compare against the
// fast-path result. This trades the paper's O(L) check cost for O(L²), but
// preserves the detection property exactly (see DESIGN.md). iters is
// partitioned into checks independently-checked segments (DefaultChecks
// if checks < 1), the same bounded-rollback split Run applies to the
// smooth-base case.
func RunLi(n *big.Int, x0 int64, e *big.Int, checks int, points []int, onPoint OnPoint) (*giant.Giant, int, error) {
	for i := 1; i < len(points); i++ {
		if points[i] <= points[i-1] {
			return nil, 0, errors.New("gerbicz: points must be strictly increasing")
		}
	}
	if checks < 1 {
		checks = DefaultChecks
	}

	bits := exp.ExpBits(e)
	iters := len(bits)

	R := giant.FromInt64(n, x0)
	pointIdx := 0
	if len(points) > 0 && points[0] == 0 {
		if onPoint != nil {
			if err := onPoint(0, R); err != nil {
				return nil, 0, err
			}
		}
		pointIdx++
	}

	mismatches := 0
	segStart := 0
	for seg := 0; seg < checks; seg++ {
		segEnd := iters * (seg + 1) / checks
		segLen := segEnd - segStart
		if segLen <= 0 {
			segStart = segEnd
			continue
		}
		L, L2 := Params(segLen, 1.0)
		if L2 == 0 {
			L2 = segLen
		}

		i := 0
		for i < segLen {
			blockLen := L2
			if rem := segLen - i; rem < blockLen {
				blockLen = rem
			}
			checked := blockLen == L2
			blockPointIdx := pointIdx
			blockBits := bits[segStart+i : segStart+i+blockLen]

			X := R.Clone()
			for s, bit := range blockBits {
				X.Square()
				if bit == 1 {
					X.MulConst(x0)
				}
				pos := segStart + i + s + 1
				if pointIdx < len(points) && points[pointIdx] == pos {
					if onPoint != nil {
						if err := onPoint(pos, X); err != nil {
							return nil, mismatches, err
						}
					}
					pointIdx++
				}
			}

			if checked {
				replay := R.Clone()
				for _, bit := range blockBits {
					replay.CarefulSquare()
					if bit == 1 {
						replay.MulConst(x0)
					}
				}
				if !replay.Equal(X) {
					mismatches++
					if mismatches > maxMismatches {
						return nil, mismatches, ErrTooManyMismatches
					}
					pointIdx = blockPointIdx
					continue // redo this block from R, within the current segment
				}
			}

			R = X.Clone()
			i += blockLen
		}
		segStart = segEnd
	}

	return R, mismatches, nil
}
