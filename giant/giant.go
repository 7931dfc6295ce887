// Package giant implements the "big integer modular arithmetic" contract
// that spec.md treats as an external collaborator: a fixed-modulus residue
// type offering fast (FFT-based, occasionally roundoff-prone) and careful
// (exact, slower) multiplication, bit/base extraction, gcd/inverse, and a
// cheap round-trippable serialized form.
//
// The fast path is backed by github.com/remyoudompheng/bigfft, a
// Schönhage-Strassen style FFT multiplier for math/big.Int: it is present
// in the retrieved corpus's transitive dependency graph (pulled in, but
// never imported, by joeycumines-go-utilpkg/sql/export/mysql's TiDB stack)
// and is wired here directly for the first time, to the one concern it was
// built for.
package giant

import (
	"crypto/md5"
	"errors"
	"math/big"

	"github.com/remyoudompheng/bigfft"
)

// Giant is a residue modulo a fixed N, the unit of computation threaded
// through every exponentiation engine in this module.
type Giant struct {
	N *big.Int
	v *big.Int
}

// ErrNilModulus is returned by operations that require N to be set.
var ErrNilModulus = errors.New("giant: nil modulus")

// New returns a Giant with value v mod N. v may be nil, meaning zero.
func New(n *big.Int, v *big.Int) *Giant {
	g := &Giant{N: n, v: new(big.Int)}
	if v != nil {
		g.v.Mod(v, n)
	}
	return g
}

// FromInt64 builds a Giant from a small constant, the case the original
// prover calls "x0 <= maxmulbyconst".
func FromInt64(n *big.Int, v int64) *Giant {
	return New(n, big.NewInt(v))
}

// Clone returns an independent copy sharing the same modulus.
func (g *Giant) Clone() *Giant {
	return &Giant{N: g.N, v: new(big.Int).Set(g.v)}
}

// Int returns the underlying residue as a *big.Int; callers must not mutate
// the result.
func (g *Giant) Int() *big.Int { return g.v }

// reduce applies the fixed modulus to t in place, returning t.
func (g *Giant) reduce(t *big.Int) *big.Int {
	return t.Mod(t, g.N)
}

// Square replaces g with g^2 mod N using the fast FFT-based multiplier.
// This is the "START_NEXT_FFT"-eligible path: callers decide, by whether
// they request the fused const-multiply variant, how aggressively the
// underlying engine may pipeline the next transform; this type does not
// model the pipelining itself (that is an implementation detail of the
// external FFT engine spec.md declares out of scope), only the operation
// it gates.
func (g *Giant) Square() *Giant {
	t := bigfft.Mul(g.v, g.v)
	g.v = g.reduce(t)
	return g
}

// Mul replaces g with g*other mod N using the fast multiplier.
func (g *Giant) Mul(other *Giant) *Giant {
	t := bigfft.Mul(g.v, other.v)
	g.v = g.reduce(t)
	return g
}

// MulConst replaces g with g*c mod N, c small enough to fuse into a single
// FFT pass in the original engine; here it is a plain scaled multiply,
// since correctness (not throughput) is what this module is responsible
// for.
func (g *Giant) MulConst(c int64) *Giant {
	t := new(big.Int).Mul(g.v, big.NewInt(c))
	g.v = g.reduce(t)
	return g
}

// CarefulSquare replaces g with g^2 mod N using exact big.Int arithmetic,
// used for the first ~30 iterations of any exponentiation and for all
// Gerbicz/Gerbicz-Li check arithmetic, where roundoff noise from the fast
// path cannot be tolerated.
func (g *Giant) CarefulSquare() *Giant {
	t := new(big.Int).Mul(g.v, g.v)
	g.v = g.reduce(t)
	return g
}

// CarefulMul replaces g with g*other mod N using exact arithmetic.
func (g *Giant) CarefulMul(other *Giant) *Giant {
	t := new(big.Int).Mul(g.v, other.v)
	g.v = g.reduce(t)
	return g
}

// Add replaces g with g+other mod N. Lucas U/V-chain recurrences are the
// only callers; plain exponentiation never needs addition.
func (g *Giant) Add(other *Giant) *Giant {
	t := new(big.Int).Add(g.v, other.v)
	g.v = g.reduce(t)
	return g
}

// Sub replaces g with g-other mod N.
func (g *Giant) Sub(other *Giant) *Giant {
	t := new(big.Int).Sub(g.v, other.v)
	g.v = g.reduce(t)
	return g
}

// Half replaces g with g * inverse(2) mod N. N must be odd; every modulus
// this module proves primality of is.
func (g *Giant) Half() *Giant {
	inv2 := new(big.Int).ModInverse(big.NewInt(2), g.N)
	t := new(big.Int).Mul(g.v, inv2)
	g.v = g.reduce(t)
	return g
}

// Bit returns bit i (0 = least significant) of the residue's canonical
// (non-negative, reduced) representation.
func (g *Giant) Bit(i int) uint {
	return g.v.Bit(i)
}

// Substr returns the len-bit field starting at bit start, as a *big.Int in
// [0, 2^len).
func (g *Giant) Substr(start, length int) *big.Int {
	t := new(big.Int).Rsh(g.v, uint(start))
	mask := new(big.Int).Lsh(big.NewInt(1), uint(length))
	mask.Sub(mask, big.NewInt(1))
	return t.And(t, mask)
}

// GCD returns gcd(g, N).
func (g *Giant) GCD() *big.Int {
	return new(big.Int).GCD(nil, nil, g.v, g.N)
}

// Inverse returns g^-1 mod N, or nil if g is not invertible.
func (g *Giant) Inverse() *Giant {
	inv := new(big.Int).ModInverse(g.v, g.N)
	if inv == nil {
		return nil
	}
	return &Giant{N: g.N, v: inv}
}

// Equal reports whether g and other hold the same residue (moduli assumed
// equal by construction).
func (g *Giant) Equal(other *Giant) bool {
	return g.v.Cmp(other.v) == 0
}

// IsOne reports whether the residue equals 1.
func (g *Giant) IsOne() bool {
	return g.v.Cmp(big.NewInt(1)) == 0
}

// ToRes64 returns the low 64 bits of the residue, the RES64 fingerprint
// printed in result lines.
func (g *Giant) ToRes64() uint64 {
	var mask big.Int
	mask.Lsh(big.NewInt(1), 64)
	mask.Sub(&mask, big.NewInt(1))
	var t big.Int
	t.And(g.v, &mask)
	return t.Uint64()
}

// Serialized is a cheap, FFT-friendly round-trippable form of a residue,
// used for mid-computation checkpoints where re-hydrating a full Giant
// would cost an extra normalization pass.
type Serialized struct {
	Bytes []byte
}

// Serialize captures g's current value.
func (g *Giant) Serialize() Serialized {
	return Serialized{Bytes: g.v.Bytes()}
}

// Deserialize reconstructs a Giant modulo n from a Serialized value.
func Deserialize(n *big.Int, s Serialized) *Giant {
	return New(n, new(big.Int).SetBytes(s.Bytes))
}

// Fingerprint returns a small hash identifying the pair (n, label), used to
// refuse checkpoint files belonging to an unrelated run.
func Fingerprint(n *big.Int, label string) uint32 {
	h := md5.Sum(append(n.Bytes(), []byte(label)...))
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}
