// Package primality implements spec.md §4.6's primality drivers: Fermat
// (the shared probable-prime engine every other test builds on), Proth /
// Pocklington (N = k·2^n+1 and its N−1-factored generalization), Morrison
// (N+1 via the Lucas V chain), and Order (multiplicative order via
// prime-power elimination).
//
// None of these drivers factor N−1 or N+1 themselves; they take the
// caller-supplied prime factors InputNum would have partially factored,
// consistent with spec.md's "partial factorization hooks" non-goal for
// this package.
package primality

import (
	"errors"
	"math/big"

	"github.com/prst-go/prst/exp"
	"github.com/prst-go/prst/gerbicz"
	"github.com/prst-go/prst/giant"
	"github.com/prst-go/prst/lucas"
	"github.com/prst-go/prst/multipoint"
	"github.com/prst-go/prst/proof"
)

// Form is the k·b^n+c number family every driver in this package operates
// on.
type Form struct {
	K int64
	B *big.Int
	N int
	C int64
}

// Value returns k·b^n+c as a *big.Int.
func (f Form) Value() *big.Int {
	v := new(big.Int).Exp(f.B, big.NewInt(int64(f.N)), nil)
	v.Mul(v, big.NewInt(f.K))
	v.Add(v, big.NewInt(f.C))
	return v
}

// EngineResult is the output of a single Fermat-style exponentiation run.
// The YTop/Mus/Remaining fields are only populated when Fermat was called
// with a non-nil proofOpts (spec.md §4.6's "with proof" dispatch): they
// carry the proof.Save certificate a later VerifyFermat call needs to
// replay the middle exponentiation instead of recomputing it.
type EngineResult struct {
	X          *giant.Giant
	Mismatches int

	YTop      *giant.Giant
	Mus       []*giant.Giant
	Remaining int
}

// ErrNotInvertible is returned when a negative tail exponent requires an
// inverse that doesn't exist, itself a gcd(N, x) > 1 witness of
// compositeness.
var ErrNotInvertible = errors.New("primality: tail base not invertible mod N")

// ErrProofRequiresBaseTwo is returned when proof dispatch (ProofOptions,
// or a VerifyFermat call) is attempted against a non-2 smooth base: the
// proof package is scoped to base-2 repeated squaring only (see
// DESIGN.md).
var ErrProofRequiresBaseTwo = errors.New("primality: proof dispatch requires base-2 b")

// ProofOptions requests Fermat's "with proof" dispatch path: instead of
// gerbicz.Run/multipoint.Run over the smooth b^n middle exponentiation,
// Fermat calls proof.Save and returns the resulting certificate alongside
// the usual Fermat residue, per spec.md §4.6. Depth is proof.Save's
// folding depth; Fingerprint identifies this run's input, matching
// input.InputNum's Fingerprint.
type ProofOptions struct {
	Depth       int
	Fingerprint uint32
}

func applyTail(n *big.Int, x *giant.Giant, tail *big.Int) (*giant.Giant, error) {
	if tail.Sign() == 0 {
		return x, nil
	}
	if tail.Sign() > 0 {
		return exp.SlowExp(n, x, tail, nil)
	}
	t, err := exp.SlowExp(n, x, new(big.Int).Neg(tail), nil)
	if err != nil {
		return nil, err
	}
	inv := t.Inverse()
	if inv == nil {
		return nil, ErrNotInvertible
	}
	return inv, nil
}

// Fermat computes base^(k·b^n+c−1) mod N = k·b^n+c, the shared engine
// every other driver in this package calls. The k prefix and c−1 tail use
// SlowExp (exact, small exponents). When proofOpts is nil, the smooth b^n
// middle uses the strong-checked gerbicz.Run (split into
// gerbicz.DefaultChecks independently-checked segments, per fermat.cpp's
// GerbiczCheckExp(b, n, checks=16, ...)) when strongCheck is set,
// multipoint.Run otherwise. When proofOpts is non-nil, the middle instead
// goes through proof.Save, producing a compressed certificate a later
// VerifyFermat call can check without recomputing the chain (spec.md
// §4.6's "with proof" dispatch; requires f.B == 2, per the proof
// package's base-2 scoping).
func Fermat(n *big.Int, f Form, base int64, strongCheck bool, proofOpts *ProofOptions) (*EngineResult, error) {
	x := giant.FromInt64(n, base)

	if f.K != 1 {
		xk, err := exp.SlowExp(n, x, big.NewInt(f.K), nil)
		if err != nil {
			return nil, err
		}
		x = xk
	}

	if proofOpts != nil {
		if f.B.Cmp(big.NewInt(2)) != 0 {
			return nil, ErrProofRequiresBaseTwo
		}
		_, yTop, mus, remaining, err := proof.Save(n, x, f.N, proofOpts.Depth, proofOpts.Fingerprint)
		if err != nil {
			return nil, err
		}
		xt, err := applyTail(n, yTop, big.NewInt(f.C-1))
		if err != nil {
			return nil, err
		}
		return &EngineResult{X: xt, YTop: yTop, Mus: mus, Remaining: remaining}, nil
	}

	var mismatches int
	if strongCheck {
		xb, mm, err := gerbicz.Run(n, x, f.B, f.N, gerbicz.DefaultChecks, nil, nil)
		if err != nil {
			return nil, err
		}
		x, mismatches = xb, mm
	} else {
		xb, err := multipoint.Run(n, x, f.B, []int{0, f.N}, nil, nil)
		if err != nil {
			return nil, err
		}
		x = xb
	}

	xt, err := applyTail(n, x, big.NewInt(f.C-1))
	if err != nil {
		return nil, err
	}
	return &EngineResult{X: xt, Mismatches: mismatches}, nil
}

// ProveFermat is Fermat called with proof dispatch enabled: a convenience
// wrapper around Fermat(n, f, base, false, &ProofOptions{depth,
// fingerprint}).
func ProveFermat(n *big.Int, f Form, base int64, depth int, fingerprint uint32) (*EngineResult, error) {
	return Fermat(n, f, base, false, &ProofOptions{Depth: depth, Fingerprint: fingerprint})
}

// VerifyFermat replays a Fermat "with proof" certificate (res, as produced
// by Fermat or ProveFermat with proofOpts set) via proof.Build/proof.Cert
// instead of recomputing the full b^n middle exponentiation, and returns
// the reconstructed residue an IsPRP call can check. It first runs
// proof.CheckRootOfUnity on the starting anchor, guarding against a
// root-of-unity-substituted witness that would otherwise slip past
// proof.Cert's pure-squaring final check. securitySeed, when non-empty,
// is threaded into proof.Build's post-fold SecurityMultiply (spec.md
// §4.5's ProofSecuritySeed); pass "" to skip it.
func VerifyFermat(n *big.Int, f Form, base int64, res *EngineResult, fingerprint uint32, securitySeed string) (*EngineResult, error) {
	if f.B.Cmp(big.NewInt(2)) != 0 {
		return nil, ErrProofRequiresBaseTwo
	}
	if res == nil || res.YTop == nil || res.Mus == nil {
		return nil, errors.New("primality: VerifyFermat requires a proof-dispatch EngineResult")
	}

	x0 := giant.FromInt64(n, base)
	if f.K != 1 {
		xk, err := exp.SlowExp(n, x0, big.NewInt(f.K), nil)
		if err != nil {
			return nil, err
		}
		x0 = xk
	}

	rootExp := proof.RootOfUnityExponent(n, fingerprint, proof.RootOfUnitySecurityBits)
	if err := proof.CheckRootOfUnity(n, x0, rootExp); err != nil {
		return nil, err
	}

	bx, by, remaining, err := proof.Build(n, x0, res.YTop, f.N, res.Mus, fingerprint, securitySeed)
	if err != nil {
		return nil, err
	}
	if err := proof.Cert(bx, by, remaining); err != nil {
		return nil, err
	}

	xt, err := applyTail(n, res.YTop, big.NewInt(f.C-1))
	if err != nil {
		return nil, err
	}
	return &EngineResult{X: xt}, nil
}

// IsPRP reports whether a Fermat run's residue is consistent with N being
// prime (the plain Fermat test: base^(N−1) ≡ 1).
func (r *EngineResult) IsPRP() bool {
	return r.X.IsOne()
}

func nextPrime(p int64) int64 {
	c := p + 1
	if c%2 == 0 {
		c++
	}
	for !big.NewInt(c).ProbablyPrime(20) {
		c += 2
	}
	return c
}

// genProthBase returns the least prime p with Jacobi(p, n) = −1, per
// spec.md's Proth/Pocklington base selection.
func genProthBase(n *big.Int) int64 {
	p := int64(2)
	for {
		if big.Jacobi(big.NewInt(p), n) == -1 {
			return p
		}
		p = nextPrime(p)
	}
}

// Proth runs the Proth test for N = k·2^n+1: prime iff base^((N−1)/2) ≡ −1
// mod N. The base is chosen automatically via genProthBase.
func Proth(f Form) (prime bool, base int64, result *EngineResult, err error) {
	n := f.Value()
	base = genProthBase(n)
	// (N−1)/2 = k·2^(n−1): run the Fermat engine one squaring short.
	half := f
	half.N--
	result, err = Fermat(n, half, base, true, nil)
	if err != nil {
		return false, base, nil, err
	}
	negOne := new(big.Int).Sub(n, big.NewInt(1))
	prime = result.X.Int().Cmp(negOne) == 0
	return prime, base, result, nil
}

// ErrNeedDifferentBase signals that Pocklington's gcd came back equal to
// N for some factor: inconclusive with this base, retry with the next
// prime base (spec.md's base-bump retry).
var ErrNeedDifferentBase = errors.New("primality: pocklington inconclusive, retry with a different base")

// Pocklington runs the initial a^(N−1) ≡ 1 Fermat pass (grounded on
// pocklington.cpp's Pocklington::run calling Fermat::run before its
// per-factor loop), then checks, for each large prime factor q of N−1,
// that gcd(a^((N−1)/q) − 1, N) = 1. factors must be the caller's partial
// factorization of N−1 (the prime factors large enough to matter for the
// N−1 > sqrt(N) Pocklington criterion).
func Pocklington(n *big.Int, factors []*big.Int, base int64) (prime bool, witness *big.Int, err error) {
	a := giant.FromInt64(n, base)
	nMinus1 := new(big.Int).Sub(n, big.NewInt(1))

	full, err := exp.SlowExp(n, a, nMinus1, nil)
	if err != nil {
		return false, nil, err
	}
	if !full.IsOne() {
		return false, nil, nil
	}

	for _, q := range factors {
		e := new(big.Int).Div(nMinus1, q)
		aq, err := exp.SlowExp(n, a, e, nil)
		if err != nil {
			return false, nil, err
		}
		t := aq.Clone()
		t.Sub(giant.FromInt64(n, 1))
		g := t.GCD()
		if g.Cmp(n) == 0 {
			return false, nil, ErrNeedDifferentBase
		}
		if g.Cmp(big.NewInt(1)) != 0 {
			return false, g, nil
		}
	}
	return true, nil, nil
}

// ErrNeedDifferentP signals Morrison's V_(N+1) residue check failed:
// retry with the next admissible Lucas parameter P.
var ErrNeedDifferentP = errors.New("primality: morrison residue check failed, retry with a different P")

// morrisonQ is fixed at −1, per spec.md's worked examples: it divides out
// one factor of 2 from N+1 for free via BLS, so the q=+1 variant (which
// needs an extra special-cased check at that factor) is out of scope here.
const morrisonQ = int64(-1)

// genMorrisonP returns the least P >= 3 with Kronecker(P²−4Q, N) = −1,
// grounded on morrison.cpp's `for (_P = 3; kronecker(...) == 1; _P++)`:
// the loop advances P while the symbol is 1 and stops at the first P
// whose symbol isn't, i.e. is −1 (or, in the degenerate case, 0 — N
// divides D, itself a factor of N, not handled here).
func genMorrisonP(n *big.Int) int64 {
	p := int64(3)
	for {
		d := p*p - 4*morrisonQ
		if big.Jacobi(big.NewInt(d), n) == -1 {
			return p
		}
		p++
	}
}

// Morrison runs the N+1 test: Lucas V with parameter P chosen as the
// least P >= 3 with Kronecker(P²+4, N) = −1 and Q = −1. factors must be
// the caller's partial factorization of N+1 (the factor of 2 is absorbed
// for free via BLS and need not be supplied).
//
// For each prime q | N+1, primality requires V_{(N+1)/q} ≢ ±2 (mod N):
// if it lands on exactly ±2, this q failed to shrink the order and the
// whole test is inconclusive with this P; any other common factor with N
// is a genuine compositeness witness.
func Morrison(n *big.Int, factors []*big.Int) (prime bool, p int64, witness *big.Int, err error) {
	target := new(big.Int).Add(n, big.NewInt(1))
	p = genMorrisonP(n)

	vTarget := lucas.VAt(n, p, morrisonQ, target, true)
	nMinus2 := new(big.Int).Sub(n, big.NewInt(2))
	if vTarget.Int().Cmp(big.NewInt(2)) != 0 && vTarget.Int().Cmp(nMinus2) != 0 {
		return false, p, nil, ErrNeedDifferentP
	}

	for _, fac := range factors {
		sub := new(big.Int).Div(target, fac)
		vSub := lucas.VAt(n, p, morrisonQ, sub, true)

		minus := vSub.Clone()
		minus.Sub(giant.FromInt64(n, 2))
		gMinus := minus.GCD()

		plus := vSub.Clone()
		plus.Add(giant.FromInt64(n, 2))
		gPlus := plus.GCD()

		if gMinus.Cmp(n) == 0 || gPlus.Cmp(n) == 0 {
			return false, p, nil, ErrNeedDifferentP
		}
		if gMinus.Cmp(big.NewInt(1)) != 0 {
			return false, p, gMinus, nil
		}
		if gPlus.Cmp(big.NewInt(1)) != 0 {
			return false, p, gPlus, nil
		}
	}

	return true, p, nil, nil
}

// PrimeFactor is a prime power q^mult dividing N−1, processed by Order.
type PrimeFactor struct {
	Prime int64
	Mult  int
}

// Order computes the multiplicative order of a mod N, given N−1's
// complete factorization as prime powers: starting from N−1, it
// eliminates each prime-power factor one step at a time as long as
// a^(candidate/prime) stays ≡ 1, stopping at the first step that isn't.
func Order(n *big.Int, a int64, factors []PrimeFactor) (*big.Int, error) {
	order := new(big.Int).Sub(n, big.NewInt(1))
	base := giant.FromInt64(n, a)
	for _, f := range factors {
		for i := 0; i < f.Mult; i++ {
			cand := new(big.Int).Div(order, big.NewInt(f.Prime))
			x, err := exp.SlowExp(n, base, cand, nil)
			if err != nil {
				return nil, err
			}
			if !x.IsOne() {
				break
			}
			order = cand
		}
	}
	return order, nil
}
