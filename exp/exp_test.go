package exp

import (
	"errors"
	"math/big"
	"testing"

	"github.com/prst-go/prst/giant"
	"github.com/stretchr/testify/require"
)

var errStop = errors.New("stop")

func wantModExp(base, e, n *big.Int) *big.Int {
	return new(big.Int).Exp(base, e, n)
}

func TestFastExpMatchesBigInt(t *testing.T) {
	n := big.NewInt(1000000007)
	e := big.NewInt(123457)
	got, err := FastExp(n, 3, e, nil)
	require.NoError(t, err)
	require.Equal(t, wantModExp(big.NewInt(3), e, n), got.Int())
}

func TestSlowExpMatchesBigInt(t *testing.T) {
	n := big.NewInt(1000000007)
	base := giant.FromInt64(n, 17)
	e := big.NewInt(54321)
	got, err := SlowExp(n, base, e, nil)
	require.NoError(t, err)
	require.Equal(t, wantModExp(big.NewInt(17), e, n), got.Int())
}

func TestSlidingWindowExpMatchesBigInt(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 256)
	n.Sub(n, big.NewInt(189)) // a large odd modulus-ish constant
	base := giant.FromInt64(n, 65537)
	e := new(big.Int).Lsh(big.NewInt(1), 80)
	e.Sub(e, big.NewInt(1))

	got, err := SlidingWindowExp(n, base, e, nil)
	require.NoError(t, err)
	require.Equal(t, wantModExp(big.NewInt(65537), e, n), got.Int())
}

func TestSlidingWindowExpZeroExponent(t *testing.T) {
	n := big.NewInt(97)
	base := giant.FromInt64(n, 5)
	got, err := SlidingWindowExp(n, base, big.NewInt(0), nil)
	require.NoError(t, err)
	require.True(t, got.IsOne())
}

func TestIterFuncCalledOncePerBitAndCanAbort(t *testing.T) {
	n := big.NewInt(1009)
	e := big.NewInt(13) // 1101, 3 bits after leading 1
	count := 0
	_, err := FastExp(n, 2, e, func(i int, x *giant.Giant) error {
		count++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, e.BitLen()-1, count)

	stop := errStop
	_, err = FastExp(n, 2, e, func(i int, x *giant.Giant) error { return stop })
	require.ErrorIs(t, err, stop)
}

func TestChooseWindowGrowsWithLength(t *testing.T) {
	small := ChooseWindow(16)
	large := ChooseWindow(100000)
	require.GreaterOrEqual(t, large, small)
}
