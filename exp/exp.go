// Package exp implements spec.md §4.2's single-exponent modular
// exponentiation variants: FastExp and SlowExp (left-to-right
// square-and-multiply, differing only in which multiplier they trust) and
// SlidingWindowExp (fixed-window exponentiation for a full Giant base).
package exp

import (
	"errors"
	"math/big"

	"github.com/prst-go/prst/giant"
)

// CarefulPrelude is the number of leading iterations that always use the
// careful multiplier, regardless of engine, per spec.md §4.2.
const CarefulPrelude = 30

// IterFunc is called with a 1-based iteration index and the current
// residue. FastExp and SlowExp call it after every squaring (and the
// multiply-by-base step that may follow it); SlidingWindowExp calls it
// after each squaring for a zero bit and once after each absorbed window,
// whose squarings advance the index by the window length. Returning a
// non-nil error aborts the exponentiation immediately, propagating the
// error to the caller of the Exp function.
type IterFunc func(iteration int, x *giant.Giant) error

// ErrNegativeExponent rejects exponents this package cannot process; the
// caller is expected to have already reduced signed tails to non-negative
// form via inversion, per spec.md §4.6.
var ErrNegativeExponent = errors.New("exp: negative exponent")

// ExpBits exposes expBits for packages that need to replay the same bit
// sequence across two accumulators (the gerbicz package's non-smooth check).
func ExpBits(e *big.Int) []int {
	return expBits(e)
}

// expBits returns exp's bits, most significant first, skipping the
// implicit leading 1 (so the first returned bit is the second-most
// significant bit of exp). Returns nil for exp <= 1.
func expBits(e *big.Int) []int {
	bl := e.BitLen()
	if bl <= 1 {
		return nil
	}
	bits := make([]int, bl-1)
	for i := range bits {
		pos := bl - 2 - i
		bits[i] = int(e.Bit(pos))
	}
	return bits
}

// FastExp computes x0^exp mod n, x0 a small constant fused into the
// multiply step (MulConst), via left-to-right binary squaring. The first
// CarefulPrelude iterations use the careful multiplier.
func FastExp(n *big.Int, x0 int64, e *big.Int, onIter IterFunc) (*giant.Giant, error) {
	if e.Sign() < 0 {
		return nil, ErrNegativeExponent
	}
	if e.Sign() == 0 {
		return giant.FromInt64(n, 1), nil
	}
	x := giant.FromInt64(n, x0)
	bits := expBits(e)
	for i, b := range bits {
		iteration := i + 1
		if iteration <= CarefulPrelude {
			x.CarefulSquare()
		} else {
			x.Square()
		}
		if b == 1 {
			x.MulConst(x0)
		}
		if onIter != nil {
			if err := onIter(iteration, x); err != nil {
				return nil, err
			}
		}
	}
	return x, nil
}

// SlowExp computes base^exp mod n using the careful multiplier throughout,
// for bases that are full Giants (cannot be fused as a constant multiply)
// or for sensitivity-critical preludes and tails.
func SlowExp(n *big.Int, base *giant.Giant, e *big.Int, onIter IterFunc) (*giant.Giant, error) {
	if e.Sign() < 0 {
		return nil, ErrNegativeExponent
	}
	if e.Sign() == 0 {
		return giant.FromInt64(n, 1), nil
	}
	x := base.Clone()
	bits := expBits(e)
	for i, b := range bits {
		iteration := i + 1
		x.CarefulSquare()
		if b == 1 {
			x.CarefulMul(base)
		}
		if onIter != nil {
			if err := onIter(iteration, x); err != nil {
				return nil, err
			}
		}
	}
	return x, nil
}

// ChooseWindow picks the sliding window width W minimizing
// 2^(W-1) + len*(1 + 1/(W+1)), per spec.md §4.2, for an exponent of the
// given bit length.
func ChooseWindow(bitLen int) int {
	best := 1
	bestCost := windowCost(1, bitLen)
	for w := 2; w <= 16; w++ {
		c := windowCost(w, bitLen)
		if c < bestCost {
			bestCost = c
			best = w
		}
	}
	return best
}

func windowCost(w, length int) float64 {
	return float64(int(1)<<(w-1)) + float64(length)*(1+1/float64(w+1))
}

// SlidingWindowExp computes base^exp mod n using fixed-width sliding-window
// exponentiation: precompute odd powers base^1, base^3, ..., base^(2^W-1),
// then scan exp's bits, squaring and occasionally absorbing a window of up
// to W bits in one multiply.
func SlidingWindowExp(n *big.Int, base *giant.Giant, e *big.Int, onIter IterFunc) (*giant.Giant, error) {
	if e.Sign() < 0 {
		return nil, ErrNegativeExponent
	}
	if e.Sign() == 0 {
		return giant.FromInt64(n, 1), nil
	}

	w := ChooseWindow(e.BitLen())
	odd := precomputeOddPowers(base, w)

	x := giant.FromInt64(n, 1)
	bl := e.BitLen()
	iteration := 0
	i := bl - 1
	for i >= 0 {
		if e.Bit(i) == 0 {
			x.CarefulSquare()
			iteration++
			if onIter != nil {
				if err := onIter(iteration, x); err != nil {
					return nil, err
				}
			}
			i--
			continue
		}
		// find window [i, j] of length <= w ending in a 1 bit at j
		j := i - w + 1
		if j < 0 {
			j = 0
		}
		for e.Bit(j) == 0 {
			j++
		}
		windowLen := i - j + 1
		for k := 0; k < windowLen; k++ {
			x.CarefulSquare()
		}
		val := extractBits(e, j, windowLen)
		x.CarefulMul(odd[val>>1])
		iteration += windowLen
		if onIter != nil {
			if err := onIter(iteration, x); err != nil {
				return nil, err
			}
		}
		i = j - 1
	}
	return x, nil
}

func extractBits(e *big.Int, start, length int) uint {
	var v uint
	for k := 0; k < length; k++ {
		v |= e.Bit(start+k) << uint(k)
	}
	return v
}

func precomputeOddPowers(base *giant.Giant, w int) []*giant.Giant {
	count := 1 << (w - 1)
	odd := make([]*giant.Giant, count)
	odd[0] = base.Clone()
	sq := base.Clone()
	sq.CarefulSquare()
	for i := 1; i < count; i++ {
		odd[i] = odd[i-1].Clone()
		odd[i].CarefulMul(sq)
	}
	return odd
}
