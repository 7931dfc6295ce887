// Package input implements spec.md §3's InputNum: the canonical
// description of the number under test, in one of four forms (k·b^n+c,
// factorial n!, primorial n#, or cyclotomic Phi(d,b)), plus the value,
// bit length, fingerprint, and (possibly partial) factorizations of b and
// of N±1 that the primality drivers in package primality consume.
package input

import (
	"fmt"
	"math/big"

	"github.com/prst-go/prst/giant"
)

// Kind discriminates InputNum's four canonical forms.
type Kind int

const (
	// KindKBNC is k·b^n+c.
	KindKBNC Kind = iota
	// KindFactorial is n!.
	KindFactorial
	// KindPrimorial is n#, the product of all primes <= n.
	KindPrimorial
	// KindCyclotomic is the cyclotomic value Phi(d, b).
	KindCyclotomic
)

// Factor is a prime-power term in a (possibly partial) factorization.
type Factor struct {
	Prime *big.Int
	Mult  int
}

// InputNum is the canonical description of one candidate prime, built by
// one of the New* constructors.
type InputNum struct {
	Kind Kind

	// KindKBNC
	K, N int64
	B, C *big.Int

	// KindFactorial / KindPrimorial
	Arg int64

	// KindCyclotomic
	D int64

	value *big.Int

	// BFactors is (a possibly partial) factorization of B, used to derive
	// the smooth step the Gerbicz check exponentiates by.
	BFactors []Factor
	// NFactors is (a possibly partial) factorization of N-1 or N+1,
	// supplied by the caller for the Pocklington/Morrison drivers; this
	// package does not perform factorization itself.
	NFactors []Factor
}

// NewKBNC builds k·b^n+c.
func NewKBNC(k, n int64, b, c *big.Int) *InputNum {
	return &InputNum{Kind: KindKBNC, K: k, N: n, B: new(big.Int).Set(b), C: new(big.Int).Set(c)}
}

// NewFactorial builds n!.
func NewFactorial(n int64) *InputNum {
	return &InputNum{Kind: KindFactorial, Arg: n}
}

// NewPrimorial builds n#, the product of all primes <= n.
func NewPrimorial(n int64) *InputNum {
	return &InputNum{Kind: KindPrimorial, Arg: n}
}

// NewCyclotomic builds Phi(d, b), the d-th cyclotomic polynomial
// evaluated at b. Only the handful of low-degree closed forms spec.md's
// worked examples actually need are supported (see Value).
func NewCyclotomic(d int64, b *big.Int) *InputNum {
	return &InputNum{Kind: KindCyclotomic, D: d, B: new(big.Int).Set(b)}
}

// ErrUnsupportedCyclotomicDegree is returned by Value for a cyclotomic
// degree this package doesn't have a closed form for.
type ErrUnsupportedCyclotomicDegree struct{ D int64 }

func (e ErrUnsupportedCyclotomicDegree) Error() string {
	return fmt.Sprintf("input: unsupported cyclotomic degree %d", e.D)
}

// Value computes and caches N, the number this InputNum describes.
func (in *InputNum) Value() (*big.Int, error) {
	if in.value != nil {
		return in.value, nil
	}
	switch in.Kind {
	case KindKBNC:
		v := new(big.Int).Exp(in.B, big.NewInt(in.N), nil)
		v.Mul(v, big.NewInt(in.K))
		v.Add(v, in.C)
		in.value = v
	case KindFactorial:
		v := big.NewInt(1)
		for i := int64(2); i <= in.Arg; i++ {
			v.Mul(v, big.NewInt(i))
		}
		in.value = v
	case KindPrimorial:
		v := big.NewInt(1)
		for i := int64(2); i <= in.Arg; i++ {
			if big.NewInt(i).ProbablyPrime(20) {
				v.Mul(v, big.NewInt(i))
			}
		}
		in.value = v
	case KindCyclotomic:
		v, err := cyclotomicValue(in.D, in.B)
		if err != nil {
			return nil, err
		}
		in.value = v
	default:
		return nil, fmt.Errorf("input: unknown kind %d", in.Kind)
	}
	return in.value, nil
}

// cyclotomicValue covers the low-degree cases spec.md's examples need:
// Phi(1,b)=b-1, Phi(2,b)=b+1, Phi(3,b)=b^2+b+1, Phi(4,b)=b^2+1,
// Phi(6,b)=b^2-b+1.
func cyclotomicValue(d int64, b *big.Int) (*big.Int, error) {
	b2 := new(big.Int).Mul(b, b)
	switch d {
	case 1:
		return new(big.Int).Sub(b, big.NewInt(1)), nil
	case 2:
		return new(big.Int).Add(b, big.NewInt(1)), nil
	case 3:
		v := new(big.Int).Add(b2, b)
		return v.Add(v, big.NewInt(1)), nil
	case 4:
		return new(big.Int).Add(b2, big.NewInt(1)), nil
	case 6:
		v := new(big.Int).Sub(b2, b)
		return v.Add(v, big.NewInt(1)), nil
	default:
		return nil, ErrUnsupportedCyclotomicDegree{D: d}
	}
}

// BitLen returns the bit length of N.
func (in *InputNum) BitLen() (int, error) {
	v, err := in.Value()
	if err != nil {
		return 0, err
	}
	return v.BitLen(), nil
}

// DisplayText renders the canonical short form used in log lines, e.g.
// "3*2^353+1".
func (in *InputNum) DisplayText() string {
	switch in.Kind {
	case KindKBNC:
		sign := "+"
		c := new(big.Int).Set(in.C)
		if c.Sign() < 0 {
			sign = "-"
			c.Neg(c)
		}
		return fmt.Sprintf("%d*%s^%d%s%s", in.K, in.B.String(), in.N, sign, c.String())
	case KindFactorial:
		return fmt.Sprintf("%d!", in.Arg)
	case KindPrimorial:
		return fmt.Sprintf("%d#", in.Arg)
	case KindCyclotomic:
		return fmt.Sprintf("Phi(%d,%s)", in.D, in.B.String())
	default:
		return "?"
	}
}

// Fingerprint returns a hash of N's canonical form, used to refuse
// checkpoint files belonging to an unrelated run.
func (in *InputNum) Fingerprint() (uint32, error) {
	v, err := in.Value()
	if err != nil {
		return 0, err
	}
	return giant.Fingerprint(v, in.DisplayText()), nil
}

// productOfFactors multiplies out a Factor slice.
func productOfFactors(fs []Factor) *big.Int {
	p := big.NewInt(1)
	for _, f := range fs {
		pw := new(big.Int).Exp(f.Prime, big.NewInt(int64(f.Mult)), nil)
		p.Mul(p, pw)
	}
	return p
}

// FactoredBPart returns the product of BFactors' prime powers, the
// smooth portion of B the Gerbicz check can step by directly.
func (in *InputNum) FactoredBPart() *big.Int {
	return productOfFactors(in.BFactors)
}

// FactoredNPart returns the product of NFactors' prime powers, the
// portion of N-1 (or N+1) the Pocklington/Morrison drivers have
// available to them.
func (in *InputNum) FactoredNPart() *big.Int {
	return productOfFactors(in.NFactors)
}

// IsFullyFactored reports whether the accumulated NFactors already
// multiply out to target (N-1 or N+1, as supplied by the caller) — the
// precondition for Pocklington/Morrison to certify primality outright
// rather than merely raise confidence.
func (in *InputNum) IsFullyFactored(target *big.Int) bool {
	return in.FactoredNPart().Cmp(target) == 0
}

// SmallFactor is a prime-power factor small enough to hand to the
// primality package's int64-keyed driver (Order).
type SmallFactor struct {
	Prime int64
	Mult  int
}

// SmallNFactors flattens NFactors into SmallFactor form, failing if any
// prime factor doesn't fit in an int64.
func (in *InputNum) SmallNFactors() ([]SmallFactor, bool) {
	out := make([]SmallFactor, 0, len(in.NFactors))
	for _, f := range in.NFactors {
		if !f.Prime.IsInt64() {
			return nil, false
		}
		out = append(out, SmallFactor{Prime: f.Prime.Int64(), Mult: f.Mult})
	}
	return out, true
}
