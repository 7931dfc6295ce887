package lucas

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// With P=1, Q=-1 the Lucas V/U chains are exactly the Lucas and Fibonacci
// number sequences, giving known-good values to check against without
// reimplementing modular exponentiation by hand.
var (
	lucasNumbers = []int64{2, 1, 3, 4, 7, 11, 18, 29, 47, 76, 123}
	fibNumbers   = []int64{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55}
)

func TestVAtMatchesLucasNumbers(t *testing.T) {
	n := big.NewInt(1000003)
	for k := 0; k < len(lucasNumbers); k++ {
		got := VAt(n, 1, -1, big.NewInt(int64(k)), false)
		require.Equal(t, big.NewInt(lucasNumbers[k]), got.Int(), "V_%d", k)
	}
}

func TestUVAtMatchesFibonacciAndLucas(t *testing.T) {
	n := big.NewInt(1000003)
	u, v := UVAt(n, 1, -1, big.NewInt(10), false)
	require.Equal(t, big.NewInt(fibNumbers[10]), u.Int())
	require.Equal(t, big.NewInt(lucasNumbers[10]), v.Int())
}

func TestVAtAgreesCarefulAndFast(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 128)
	n.Sub(n, big.NewInt(159))
	e := big.NewInt(987654321)
	fast := VAt(n, 3, -1, e, false)
	careful := VAt(n, 3, -1, e, true)
	require.Equal(t, careful.Int(), fast.Int())
}

func TestFastMulChainsIndexMultiplication(t *testing.T) {
	n := big.NewInt(1000003)
	fm := NewFastMul(n, 1, -1, false, big.NewInt(1))
	require.NoError(t, fm.MulPrime(2))
	require.NoError(t, fm.MulPrime(5))
	require.Equal(t, big.NewInt(10), fm.Index())
	require.Equal(t, big.NewInt(lucasNumbers[10]), fm.V().Int())
}

func TestFastMulRejectsNonPositiveFactor(t *testing.T) {
	n := big.NewInt(97)
	fm := NewFastMul(n, 1, -1, false, big.NewInt(1))
	require.ErrorIs(t, fm.Mul(big.NewInt(0)), ErrNonPositiveFactor)
}

func TestRunUVCheckedMatchesDirectLadder(t *testing.T) {
	n := big.NewInt(1000003)
	u, v, mismatches, err := RunUVChecked(n, 1, -1, big.NewInt(10), 3)
	require.NoError(t, err)
	require.Equal(t, 0, mismatches)
	require.Equal(t, big.NewInt(fibNumbers[10]), u.Int())
	require.Equal(t, big.NewInt(lucasNumbers[10]), v.Int())
}

func TestRunUVCheckedLargeExponent(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 96)
	n.Sub(n, big.NewInt(17))
	e := big.NewInt(123457)
	wantU, wantV := UVAt(n, 3, -1, e, true)
	gotU, gotV, mismatches, err := RunUVChecked(n, 3, -1, e, 7)
	require.NoError(t, err)
	require.Equal(t, 0, mismatches)
	require.Equal(t, wantU.Int(), gotU.Int())
	require.Equal(t, wantV.Int(), gotV.Int())
}
