package primality

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// 3*2^353+1, a genuine Proth prime (spec.md §8's first worked example).
func TestProthAcceptsKnownPrime(t *testing.T) {
	f := Form{K: 3, B: big.NewInt(2), N: 353, C: 1}
	prime, base, res, err := Proth(f)
	require.NoError(t, err)
	require.True(t, prime)
	require.Greater(t, base, int64(0))
	require.Zero(t, res.Mismatches)
}

// 5*2^2+1 = 21 = 3*7 is composite, squarefree (so genProthBase's Jacobi
// search is guaranteed to terminate; a perfect-square composite never has
// a prime with Jacobi symbol -1 and would spin genProthBase forever).
// Proth must reject it.
func TestProthRejectsKnownComposite(t *testing.T) {
	f := Form{K: 5, B: big.NewInt(2), N: 2, C: 1}
	prime, _, _, err := Proth(f)
	require.NoError(t, err)
	require.False(t, prime)
}

func TestFermatIsPRPRoundTripsSmallPrime(t *testing.T) {
	// N = 3*2^6+1 = 193, prime.
	f := Form{K: 3, B: big.NewInt(2), N: 6, C: 1}
	n := f.Value()
	require.Equal(t, big.NewInt(193), n)
	res, err := Fermat(n, f, 5, false, nil)
	require.NoError(t, err)
	require.True(t, res.IsPRP())
}

func TestFermatDetectsCompositeViaNonUnitResidue(t *testing.T) {
	// N = 3*2^4+1 = 49, composite; a Fermat PRP test with base 5 fails.
	f := Form{K: 3, B: big.NewInt(2), N: 4, C: 1}
	n := f.Value()
	require.Equal(t, big.NewInt(49), n)
	res, err := Fermat(n, f, 5, true, nil)
	require.NoError(t, err)
	require.False(t, res.IsPRP())
}

func TestFermatHandlesNegativeTail(t *testing.T) {
	// N = 1*2^10-1 = 1023 = 3*11*31, composite; exercises the c<0 inverse
	// path in applyTail even though the number itself isn't prime. Base 5
	// is coprime to N, so the inverse exists.
	f := Form{K: 1, B: big.NewInt(2), N: 10, C: -1}
	n := f.Value()
	require.Equal(t, big.NewInt(1023), n)
	_, err := Fermat(n, f, 5, false, nil)
	require.NoError(t, err)
}

func TestProveFermatVerifyFermatRoundTripsSmallPrime(t *testing.T) {
	// N = 3*2^8+1 = 769, prime; n = 8 is a multiple of 2^depth = 4.
	f := Form{K: 3, B: big.NewInt(2), N: 8, C: 1}
	n := f.Value()
	const fingerprint = uint32(0xC0FFEE)

	proven, err := ProveFermat(n, f, 5, 2, fingerprint)
	require.NoError(t, err)
	require.True(t, proven.IsPRP())
	require.NotNil(t, proven.YTop)
	require.Len(t, proven.Mus, 2)

	verified, err := VerifyFermat(n, f, 5, proven, fingerprint, "")
	require.NoError(t, err)
	require.True(t, verified.IsPRP())
	require.True(t, verified.X.Equal(proven.X))
}

func TestProveFermatVerifyFermatDetectsCompositeViaNonUnitResidue(t *testing.T) {
	// N = 3*2^4+1 = 49, composite.
	f := Form{K: 3, B: big.NewInt(2), N: 4, C: 1}
	n := f.Value()
	const fingerprint = uint32(42)

	proven, err := ProveFermat(n, f, 5, 2, fingerprint)
	require.NoError(t, err)
	require.False(t, proven.IsPRP())

	verified, err := VerifyFermat(n, f, 5, proven, fingerprint, "")
	require.NoError(t, err)
	require.False(t, verified.IsPRP())
}

func TestFermatRejectsProofDispatchForNonBaseTwo(t *testing.T) {
	f := Form{K: 1, B: big.NewInt(3), N: 4, C: 1}
	n := f.Value()
	_, err := Fermat(n, f, 2, false, &ProofOptions{Depth: 2, Fingerprint: 1})
	require.ErrorIs(t, err, ErrProofRequiresBaseTwo)
}

func TestVerifyFermatRejectsDegenerateAnchor(t *testing.T) {
	// base 1 makes the post-K-multiply anchor x0 == 1, a trivial root of
	// unity: CheckRootOfUnity must reject it before Build ever runs.
	f := Form{K: 3, B: big.NewInt(2), N: 8, C: 1}
	n := f.Value()
	const fingerprint = uint32(7)

	proven, err := ProveFermat(n, f, 1, 2, fingerprint)
	require.NoError(t, err)

	_, err = VerifyFermat(n, f, 1, proven, fingerprint, "")
	require.Error(t, err)
}

func TestPocklingtonSimpleKnownPrime(t *testing.T) {
	// N = 2*3^4+1 = 163, prime. N-1 = 162 = 2*3^4.
	n := big.NewInt(163)
	prime, witness, err := Pocklington(n, []*big.Int{big.NewInt(2), big.NewInt(3)}, 2)
	require.NoError(t, err)
	require.True(t, prime)
	require.Nil(t, witness)
}

func TestPocklingtonDetectsComposite(t *testing.T) {
	// N = 161 = 7*23, N-1 = 160 = 2^5*5.
	n := big.NewInt(161)
	prime, _, err := Pocklington(n, []*big.Int{big.NewInt(2), big.NewInt(5)}, 3)
	require.NoError(t, err)
	require.False(t, prime)
}

// Morrison always tests N+1 (Pocklington handles N-1); spec.md §8 exercises
// it on 3*2^272-1 and 2*5^178-1, both chosen because N+1 is the smooth
// side. N = 193 is a smaller same-shape example: prime, N+1 = 194 = 2*97,
// with the factor of 2 absorbed for free via BLS (Q = -1), so only the 97
// needs to be supplied.
func TestMorrisonAcceptsKnownPrime(t *testing.T) {
	n := big.NewInt(193)
	prime, p, witness, err := Morrison(n, []*big.Int{big.NewInt(97)})
	require.NoError(t, err)
	require.True(t, prime)
	require.Nil(t, witness)
	require.GreaterOrEqual(t, p, int64(3))
}

func TestMorrisonDetectsComposite(t *testing.T) {
	// N = 187 = 11*17, N+1 = 188 = 2^2*47.
	n := big.NewInt(187)
	prime, _, _, err := Morrison(n, []*big.Int{big.NewInt(47)})
	if err != nil {
		require.ErrorIs(t, err, ErrNeedDifferentP)
		return
	}
	require.False(t, prime)
}

func TestOrderDividesNMinus1(t *testing.T) {
	// N = 193, N-1 = 192 = 2^6*3. The order of 2 mod 193 must divide 192.
	n := big.NewInt(193)
	factors := []PrimeFactor{{Prime: 2, Mult: 6}, {Prime: 3, Mult: 1}}
	order, err := Order(n, 2, factors)
	require.NoError(t, err)
	nMinus1 := big.NewInt(192)
	require.Zero(t, new(big.Int).Mod(nMinus1, order).Sign())

	// Independently confirm via direct exponentiation that a^order == 1.
	base := big.NewInt(2)
	chk := new(big.Int).Exp(base, order, n)
	require.Equal(t, big.NewInt(1), chk)
}

func TestOrderFullGroupForPrimitiveRoot(t *testing.T) {
	// 5 is a primitive root mod 23 (order 22 = 2*11).
	n := big.NewInt(23)
	factors := []PrimeFactor{{Prime: 2, Mult: 1}, {Prime: 11, Mult: 1}}
	order, err := Order(n, 5, factors)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(22), order)
}

func TestGenProthBaseGivesNegativeJacobiSymbol(t *testing.T) {
	f := Form{K: 3, B: big.NewInt(2), N: 353, C: 1}
	n := f.Value()
	base := genProthBase(n)
	require.Equal(t, -1, big.Jacobi(big.NewInt(base), n))
}
