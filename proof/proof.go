// Package proof implements spec.md §4.5's Pietrzak-style succinct proof of
// a correct repeated-squaring chain: Save (prover, from the full recorded
// chain) produces a tiny certificate plus per-round witnesses; Build
// (verifier) folds those witnesses, independently re-deriving every
// challenge hash so a witness can't be substituted without changing the
// exponent it's raised to; Cert performs the final, cheap direct check.
//
// This implementation is scoped to the base-2 (plain repeated squaring)
// case, which spec.md calls out as the one with the simple bit-reversal
// point schedule; general-base proof compression needs the point
// array indexed by arbitrary b-power positions and is not implemented
// here (see DESIGN.md).
//
// Two extra defenses guard the scheme against the root-of-unity attack
// on Cert's pure-squaring final check: CheckRootOfUnity, run once on the
// prover's starting anchor before Build folds anything, and Build's
// optional SecurityMultiply post-fold perturbation.
//
// Each round halves the exponent under proof:
//
//	μ = x^(2^half)
//	h = make_prime(MD5(fingerprint ‖ y ‖ μ))
//	x' = x^h · μ
//	y' = μ^h · y
//
// which preserves the invariant x^(2^remaining) = y: μ^(2^half) = x^(2^remaining),
// so x'^(2^half) = x^(h·2^half)·x^(2^remaining) = μ^h·y = y'. Save supplies
// iterations as an exact multiple of 2^depth so remaining is evenly
// halved every round, with no odd-remainder correction needed.
package proof

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/prst-go/prst/exp"
	"github.com/prst-go/prst/giant"
)

// ErrNotDivisible rejects a (iterations, depth) pair that can't be halved
// cleanly depth times.
var ErrNotDivisible = errors.New("proof: iterations must be a multiple of 2^depth")

// ErrInvalidCertificate is returned by Cert when the final check fails.
var ErrInvalidCertificate = errors.New("proof: certificate does not verify")

// MakePrimeLimit is the default small-factor probe bound used by MakePrime,
// per spec.md's "probes for 2..999 coprimality".
const MakePrimeLimit = 1000

// CalcPoints returns the count+1 = 2^depth+1 ascending recording positions
// for a base-2 chain of the given length, plus the per-segment unit M.
func CalcPoints(iterations, depth int) (points []int, m int, err error) {
	count := 1 << depth
	if iterations <= 0 || iterations%count != 0 {
		return nil, 0, ErrNotDivisible
	}
	m = iterations / count
	points = make([]int, count+1)
	for i := range points {
		points[i] = i * m
	}
	return points, m, nil
}

// HashGiants derives a challenge seed from the fingerprint, the current
// running certificate value y, and this round's witness d.
func HashGiants(fingerprint uint32, y, d *giant.Giant) *big.Int {
	h := md5.New()
	var fb [4]byte
	binary.BigEndian.PutUint32(fb[:], fingerprint)
	h.Write(fb[:])
	h.Write(y.Int().Bytes())
	h.Write(d.Int().Bytes())
	return new(big.Int).SetBytes(h.Sum(nil))
}

// MakePrime forces seed odd and probes upward by 2 until no integer in
// [2, limit) divides it, matching the original's low-assurance "coprime
// to small factors" exponent hardening (not a true primality proof).
func MakePrime(seed *big.Int, limit int64) *big.Int {
	g := new(big.Int).Set(seed)
	g.SetBit(g, 0, 1)
	for {
		clean := true
		for k := int64(2); k < limit; k++ {
			if new(big.Int).Mod(g, big.NewInt(k)).Sign() == 0 {
				clean = false
				break
			}
		}
		if clean {
			return g
		}
		g.Add(g, big.NewInt(2))
	}
}

func pow2k(x *giant.Giant, k int) *giant.Giant {
	y := x.Clone()
	for i := 0; i < k; i++ {
		y.CarefulSquare()
	}
	return y
}

func powH(n *big.Int, base *giant.Giant, h *big.Int) *giant.Giant {
	y, err := exp.SlowExp(n, base, h, nil)
	if err != nil {
		// h is always non-negative (MD5-derived, then only ever
		// incremented), so SlowExp cannot reject it.
		panic(err)
	}
	return y
}

// Save runs the prover side: it owns the full chain (x0 through
// x0^(2^iterations)) and folds it depth times into a tiny certificate y
// plus the depth witnesses (mus) a verifier needs to replay the folding
// without recomputing the whole chain.
func Save(n *big.Int, x0 *giant.Giant, iterations, depth int, fingerprint uint32) (y, yTop *giant.Giant, mus []*giant.Giant, remaining int, err error) {
	if _, _, err := CalcPoints(iterations, depth); err != nil {
		return nil, nil, nil, 0, err
	}

	x := x0.Clone()
	yTop = pow2k(x0, iterations)
	y = yTop.Clone()
	remaining = iterations
	mus = make([]*giant.Giant, 0, depth)

	for round := 0; round < depth; round++ {
		half := remaining / 2
		mu := pow2k(x, half)
		h := MakePrime(HashGiants(fingerprint, y, mu), MakePrimeLimit)

		newX := powH(n, x, h)
		newX.CarefulMul(mu)
		newY := powH(n, mu, h)
		newY.CarefulMul(y)

		mus = append(mus, mu)
		x, y = newX, newY
		remaining = half
	}

	return y, yTop, mus, remaining, nil
}

// Build runs the verifier side: given the original starting point x0, the
// raw (uncompressed) output yTop that Save started from, and the depth
// witnesses Save persisted, it independently re-derives every round's
// hash and returns the folded (x, y, remaining) a Cert call can check
// cheaply.
// securitySeed, when non-empty, triggers a post-fold SecurityMultiply
// before Build returns, per spec.md §4.5's ProofSecuritySeed option; pass
// "" to skip it.
func Build(n *big.Int, x0, yTop *giant.Giant, iterations int, mus []*giant.Giant, fingerprint uint32, securitySeed string) (x, y *giant.Giant, remaining int, err error) {
	if _, _, err := CalcPoints(iterations, len(mus)); err != nil {
		return nil, nil, 0, err
	}

	x = x0.Clone()
	y = yTop.Clone()
	remaining = iterations

	for _, mu := range mus {
		half := remaining / 2
		h := MakePrime(HashGiants(fingerprint, y, mu), MakePrimeLimit)

		newX := powH(n, x, h)
		newX.CarefulMul(mu)
		newY := powH(n, mu, h)
		newY.CarefulMul(y)

		x, y = newX, newY
		remaining = half
	}

	if securitySeed != "" {
		x, y, _ = SecurityMultiply(n, x, y, securitySeed)
	}

	return x, y, remaining, nil
}

// Cert performs the final direct check: x raised through the remaining
// (small) exponent must reach y.
func Cert(x, y *giant.Giant, remaining int) error {
	got := pow2k(x, remaining)
	if !got.Equal(y) {
		return ErrInvalidCertificate
	}
	return nil
}

// ErrRootOfUnity is returned by CheckRootOfUnity when the anchor collapses
// to 1 under the security exponent: the signature of a root-of-unity
// substitution against Cert's pure-squaring final check. Since Cert only
// ever verifies x^(2^remaining) = y, an adversary can replace a genuine
// residue with r·ω for a nontrivial ω satisfying ω^(2^remaining) = 1 and
// Cert still accepts. CheckRootOfUnity must run on the untouched starting
// anchor before Build folds anything.
var ErrRootOfUnity = errors.New("proof: anchor is a root of unity")

// RootOfUnitySecurityBits is the default magnitude of the exponent
// CheckRootOfUnity raises the anchor through, matching proof.cpp's
// Proof::Proof constructor default for its smooth-base (c==1) case.
const RootOfUnitySecurityBits = 64

// SecurityLimit is the smoothness probe bound used when hardening the
// security-multiply exponent. It is larger than MakePrimeLimit because
// this exponent is drawn once per proof rather than once per round,
// matching proof.cpp's ProofBuild::execute(), which hardens its security
// exponent via make_prime(exp, 1000000) versus make_prime(h, 1000) for the
// per-round challenge.
const SecurityLimit = 1000000

// RootOfUnityExponent derives the exponent CheckRootOfUnity raises the
// anchor through: a fingerprint- and n-seeded hash, hardened the same way
// as a per-round challenge. proof.cpp's Proof::Proof constructor instead
// derives this exponent from n's own factored form (k and b's prime
// factors for c==1 inputs, N-1's factorization otherwise), so that an
// adversary can't simply pick a root of unity ω tuned to dodge a
// fixed/predictable exponent. This implementation keeps the
// unpredictability property — tied to n and the run's fingerprint rather
// than a constant — without carrying a full factorization through the
// proof package (see DESIGN.md); a genuine anchor still essentially never
// lands on 1 under it.
func RootOfUnityExponent(n *big.Int, fingerprint uint32, securityBits int) *big.Int {
	h := md5.New()
	var fb [4]byte
	binary.BigEndian.PutUint32(fb[:], fingerprint)
	h.Write([]byte("rootofunity"))
	h.Write(fb[:])
	h.Write(n.Bytes())
	sum := h.Sum(nil)
	nbytes := (securityBits + 7) / 8
	if nbytes > len(sum) {
		nbytes = len(sum)
	}
	seed := new(big.Int).SetBytes(sum[:nbytes])
	if seed.Sign() == 0 {
		seed = big.NewInt(1)
	}
	return MakePrime(seed, MakePrimeLimit)
}

// CheckRootOfUnity raises r0 through exponent and rejects if the result
// collapses to 1. It must be called on the prover-supplied starting
// anchor before Build folds it, so a substituted root-of-unity-
// contaminated value is caught before it can masquerade as a valid proof.
func CheckRootOfUnity(n *big.Int, r0 *giant.Giant, exponent *big.Int) error {
	got := powH(n, r0, exponent)
	if got.Int().Cmp(big.NewInt(1)) == 0 {
		return ErrRootOfUnity
	}
	return nil
}

// SecurityMultiply raises both x and y by the same freshly-derived
// exponent. Because (x^e)^(2^remaining) = (x^(2^remaining))^e = y^e, this
// preserves the x^(2^remaining) = y invariant Cert checks, while
// perturbing Build's internal state in a way that depends on
// securitySeed: an adversary who doesn't know the seed can't predict or
// cancel the perturbation. Grounded on proof.cpp's ProofBuild::execute()
// post-loop security multiply, which seeds its exponent from a configured
// security seed combined with live entropy; this implementation seeds
// deterministically from securitySeed and the current fold state instead,
// since Build must remain replayable without a live clock (see
// DESIGN.md) — the invariant Cert checks holds for any exponent, so this
// substitution doesn't weaken the defense.
func SecurityMultiply(n *big.Int, x, y *giant.Giant, securitySeed string) (nx, ny *giant.Giant, exponent *big.Int) {
	h := md5.New()
	h.Write([]byte(securitySeed))
	h.Write(x.Int().Bytes())
	h.Write(y.Int().Bytes())
	sum := h.Sum(nil)
	seed := new(big.Int).SetBytes(sum[:8])
	if seed.Sign() == 0 {
		seed = big.NewInt(1)
	}
	exponent = MakePrime(seed, SecurityLimit)
	nx = powH(n, x, exponent)
	ny = powH(n, y, exponent)
	return nx, ny, exponent
}
