// Package lucas implements spec.md §4.4's Lucas sequence engine: the V-only
// chain (LucasVMulFast; its VAt ladder is what the Morrison N+1 test calls)
// and the combined U/V chain (LucasUVMulFast, with the Gerbicz–Li-style
// checked variant RunUVChecked; no driver in package primality calls it).
//
// The standard doubling recurrences are exactly as spec.md states them:
//
//	V_2k   = V_k² − 2Q^k
//	V_2k+1 = V_k·V_k+1 − P·Q^k
//
// and, for the combined chain, the companion U recurrences
//
//	U_2k   = U_k·V_k
//	U_k+1  = (P·U_k + V_k)/2
//	V_k+1  = (D·U_k + P·V_k)/2,  D = P² − 4Q
//
// Since every modulus here is an odd candidate prime, division by 2 is a
// multiply by the modular inverse of 2 (giant.Half). Q is always ±1, so
// Q^k collapses to a parity bit: 1 when k is even, Q when k is odd.
package lucas

import (
	"errors"
	"math/big"

	"github.com/prst-go/prst/giant"
)

// Arithmetic bundles the modulus and Lucas parameters (P, Q) with the
// multiplier flavor (fast vs careful), mirroring exp package's split.
type Arithmetic struct {
	N       *big.Int
	P, Q    int64
	Careful bool
}

// NewArithmetic returns an Arithmetic for the given parameters.
func NewArithmetic(n *big.Int, p, q int64, careful bool) *Arithmetic {
	return &Arithmetic{N: n, P: p, Q: q, Careful: careful}
}

func (a *Arithmetic) mul(x, y *giant.Giant) *giant.Giant {
	z := x.Clone()
	if a.Careful {
		z.CarefulMul(y)
	} else {
		z.Mul(y)
	}
	return z
}

func (a *Arithmetic) sq(x *giant.Giant) *giant.Giant {
	z := x.Clone()
	if a.Careful {
		z.CarefulSquare()
	} else {
		z.Square()
	}
	return z
}

func qAt(q int64, kEven bool) int64 {
	if kEven {
		return 1
	}
	return q
}

// vDoubleStep advances a (V_k, V_k+1, parity) triple by one bit of the
// target exponent: bit==0 lands on 2k, bit==1 lands on 2k+1.
func vDoubleStep(a *Arithmetic, va, vb *giant.Giant, kEven bool, bit int) (*giant.Giant, *giant.Giant, bool) {
	qk := qAt(a.Q, kEven)
	v2k := a.sq(va)
	v2k.Sub(giant.FromInt64(a.N, 2*qk))
	v2k1 := a.mul(va, vb)
	v2k1.Sub(giant.FromInt64(a.N, a.P*qk))
	if bit == 0 {
		return v2k, v2k1, true
	}
	qk1 := qk * a.Q
	v2k2 := a.sq(vb)
	v2k2.Sub(giant.FromInt64(a.N, 2*qk1))
	return v2k1, v2k2, false
}

// VAt computes V_e mod n for Lucas parameters (P, Q) by running the
// doubling ladder from (V_0, V_1) = (2, P) across e's bits.
func VAt(n *big.Int, p, q int64, e *big.Int, careful bool) *giant.Giant {
	if e.Sign() == 0 {
		return giant.FromInt64(n, 2)
	}
	a := NewArithmetic(n, p, q, careful)
	va := giant.FromInt64(n, 2)
	vb := giant.FromInt64(n, p)
	kEven := true
	bl := e.BitLen()
	for i := bl - 1; i >= 0; i-- {
		bit := int(e.Bit(i))
		va, vb, kEven = vDoubleStep(a, va, vb, kEven, bit)
	}
	return va
}

// FastMul maintains a running Lucas V-chain index, supporting repeated
// "multiply the index by this factor" steps the way LucasVMulFast chains
// prime/giant factors into a single running product.
//
// The real engine mines a near-optimal addition chain ("DAC-S") per small
// prime factor to avoid recomputing the ladder from scratch on every
// multiply. This implementation instead accumulates the exact target
// index and recomputes V via VAt on each multiply: the chain-length
// optimization is a throughput concern the retrieved source didn't supply
// enough of to reproduce faithfully, and dropping it changes no residue
// the tests observe (see DESIGN.md).
type FastMul struct {
	n       *big.Int
	p, q    int64
	careful bool
	index   *big.Int
	v       *giant.Giant
}

// ErrNonPositiveFactor rejects a degenerate chain multiplier.
var ErrNonPositiveFactor = errors.New("lucas: factor must be positive")

// NewFastMul starts a V-chain at the given initial index (V_index).
func NewFastMul(n *big.Int, p, q int64, careful bool, index *big.Int) *FastMul {
	idx := new(big.Int).Set(index)
	return &FastMul{
		n:       n,
		p:       p,
		q:       q,
		careful: careful,
		index:   idx,
		v:       VAt(n, p, q, idx, careful),
	}
}

// MulPrime folds in a small prime factor (mul_prime in the original).
func (f *FastMul) MulPrime(prime int64) error {
	return f.Mul(big.NewInt(prime))
}

// Mul folds an arbitrary positive factor into the running index
// (mul_giant in the original).
func (f *FastMul) Mul(factor *big.Int) error {
	if factor.Sign() <= 0 {
		return ErrNonPositiveFactor
	}
	f.index.Mul(f.index, factor)
	f.v = VAt(f.n, f.p, f.q, f.index, f.careful)
	return nil
}

// Index returns the chain's current accumulated index.
func (f *FastMul) Index() *big.Int {
	return new(big.Int).Set(f.index)
}

// V returns V at the chain's current index.
func (f *FastMul) V() *giant.Giant {
	return f.v.Clone()
}

// UVState is the (U, V, parity) triple threaded through the combined
// U/V chain ladder.
type UVState struct {
	U, V  *giant.Giant
	KEven bool
}

func uvDoubleAndMaybeAdd(a *Arithmetic, s UVState, bit int) UVState {
	qk := qAt(a.Q, s.KEven)
	d := a.P*a.P - 4*a.Q

	u := a.mul(s.U, s.V)
	v := a.sq(s.V)
	v.Sub(giant.FromInt64(a.N, 2*qk))
	kEven := true

	if bit == 1 {
		pu := u.Clone()
		pu.MulConst(a.P)
		numU := pu.Clone()
		numU.Add(v)
		numU.Half()

		du := u.Clone()
		du.MulConst(d)
		pv := v.Clone()
		pv.MulConst(a.P)
		numV := du.Clone()
		numV.Add(pv)
		numV.Half()

		u, v = numU, numV
		kEven = false
	}

	return UVState{U: u, V: v, KEven: kEven}
}

// UVAt computes (U_e, V_e) mod n for Lucas parameters (P, Q), by running
// the combined doubling-and-increment ladder across every bit of e
// (including the leading one, since the ladder starts at index 0, as
// VAt's V-only ladder does too).
func UVAt(n *big.Int, p, q int64, e *big.Int, careful bool) (u, v *giant.Giant) {
	a := NewArithmetic(n, p, q, careful)
	s := UVState{U: giant.FromInt64(n, 0), V: giant.FromInt64(n, 2), KEven: true}
	bl := e.BitLen()
	for i := bl - 1; i >= 0; i-- {
		s = uvDoubleAndMaybeAdd(a, s, int(e.Bit(i)))
	}
	return s.U, s.V
}

// ErrTooManyMismatches is returned once careful block replays have
// disagreed with the fast path more than maxMismatches times in total over
// one RunUVChecked call.
var ErrTooManyMismatches = errors.New("lucas: too many check mismatches")

const maxMismatches = 5

// RunUVChecked computes (U_e, V_e) the way LucasUVMulFast does with its
// Gerbicz–Li check enabled: the exponent is consumed in blocks of L bits,
// each block's fast-path result cross-checked against an independent
// careful replay of the same bit sequence from the last good checkpoint.
//
// The real engine instead folds an additive accumulator D in Lucas-group
// arithmetic and reconstructs the expected block end via a NAF-w
// decomposition, verifying in O(L) rather than O(L²) careful work; that
// reconstruction isn't reproducible from the retrieved source (see
// DESIGN.md), so this implementation uses the same direct block replay as
// gerbicz.RunLi, which preserves the fault-detection property exactly at
// a higher, but still bounded, per-block verification cost.
func RunUVChecked(n *big.Int, p, q int64, e *big.Int, blockBits int) (u, v *giant.Giant, mismatches int, err error) {
	if blockBits < 1 {
		blockBits = 1
	}
	a := NewArithmetic(n, p, q, false)
	ac := NewArithmetic(n, p, q, true)

	bl := e.BitLen()
	allBits := make([]int, bl)
	for i := 0; i < bl; i++ {
		allBits[i] = int(e.Bit(bl - 1 - i))
	}

	r := UVState{U: giant.FromInt64(n, 0), V: giant.FromInt64(n, 2), KEven: true}
	i := 0
	for i < len(allBits) {
		end := i + blockBits
		if end > len(allBits) {
			end = len(allBits)
		}
		block := allBits[i:end]

		x := r
		for _, bit := range block {
			x = uvDoubleAndMaybeAdd(a, x, bit)
		}

		replay := r
		for _, bit := range block {
			replay = uvDoubleAndMaybeAdd(ac, replay, bit)
		}

		if !replay.U.Equal(x.U) || !replay.V.Equal(x.V) {
			mismatches++
			if mismatches > maxMismatches {
				return nil, nil, mismatches, ErrTooManyMismatches
			}
			continue // redo this block from r
		}

		r = x
		i = end
	}

	return r.U, r.V, mismatches, nil
}
