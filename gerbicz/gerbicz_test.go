package gerbicz

import (
	"errors"
	"math/big"
	"testing"

	"github.com/prst-go/prst/giant"
	"github.com/stretchr/testify/require"
)

func TestParamsSaneForSmallCounts(t *testing.T) {
	L, L2 := Params(20, 1)
	require.GreaterOrEqual(t, L, 1)
	require.LessOrEqual(t, L2, 20)
	require.Equal(t, 0, 20%L)
}

func TestParamsZeroIterations(t *testing.T) {
	L, L2 := Params(0, 1)
	require.Equal(t, 1, L)
	require.Equal(t, 0, L2)
}

func TestRunSquareOnlyMatchesBigInt(t *testing.T) {
	n := big.NewInt(1000000007)
	x0 := giant.FromInt64(n, 3)
	got, mismatches, err := Run(n, x0, big.NewInt(2), 20, 4, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, mismatches)

	want := new(big.Int).Exp(big.NewInt(3), new(big.Int).Lsh(big.NewInt(1), 20), n)
	require.Equal(t, want, got.Int())
}

func TestRunGeneralBaseMatchesBigInt(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 160)
	n.Sub(n, big.NewInt(47))
	x0 := giant.FromInt64(n, 5)
	got, mismatches, err := Run(n, x0, big.NewInt(3), 12, 3, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, mismatches)

	exponent := new(big.Int).Exp(big.NewInt(3), big.NewInt(12), nil)
	want := new(big.Int).Exp(big.NewInt(5), exponent, n)
	require.Equal(t, want, got.Int())
}

func TestRunFiresPointsInOrder(t *testing.T) {
	n := big.NewInt(97)
	x0 := giant.FromInt64(n, 2)
	var seen []int
	_, _, err := Run(n, x0, big.NewInt(2), 10, 2, []int{0, 3, 7, 10}, func(pos int, x *giant.Giant) error {
		seen = append(seen, pos)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 3, 7, 10}, seen)
}

func TestRunDetectsPersistentCorruption(t *testing.T) {
	n := big.NewInt(1000000007)
	x0 := giant.FromInt64(n, 3)
	_, _, err := Run(n, x0, big.NewInt(2), 20, 4, []int{5}, func(pos int, x *giant.Giant) error {
		x.MulConst(7) // simulate a bit-flip in the fast accumulator
		return nil
	})
	require.ErrorIs(t, err, ErrTooManyMismatches)
}

func TestRunPropagatesOnPointError(t *testing.T) {
	n := big.NewInt(97)
	x0 := giant.FromInt64(n, 2)
	sentinel := errors.New("stop")
	_, _, err := Run(n, x0, big.NewInt(2), 10, 2, []int{4}, func(pos int, x *giant.Giant) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

// TestRunSegmentsBoundRollback plants a one-time corruption at the last
// position of segment 2 of 4 and confirms Run catches it (at least one
// mismatch) and recovers by replaying the affected block, finishing
// without error.
func TestRunSegmentsBoundRollback(t *testing.T) {
	n := big.NewInt(1000000007)
	x0 := giant.FromInt64(n, 3)
	const iters = 40
	const checks = 4
	triggered := false
	_, mismatches, err := Run(n, x0, big.NewInt(2), iters, checks, []int{iters / 2}, func(pos int, x *giant.Giant) error {
		if pos == iters/2 && !triggered {
			triggered = true
			x.MulConst(7) // corrupt once, only inside the second segment's block
		}
		return nil
	})
	require.NoError(t, err)
	require.Greater(t, mismatches, 0)
}

func TestRunLiMatchesBigInt(t *testing.T) {
	n := big.NewInt(1000000007)
	e := big.NewInt(1<<24 + 12345)
	got, mismatches, err := RunLi(n, 3, e, 4, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, mismatches)

	want := new(big.Int).Exp(big.NewInt(3), e, n)
	require.Equal(t, want, got.Int())
}

func TestRunLiDetectsPersistentCorruption(t *testing.T) {
	n := big.NewInt(1000000007)
	e := big.NewInt(1<<24 + 12345)
	_, _, err := RunLi(n, 3, e, 4, []int{5}, func(pos int, x *giant.Giant) error {
		x.MulConst(11)
		return nil
	})
	require.ErrorIs(t, err, ErrTooManyMismatches)
}

func TestRunLiFiresPointZero(t *testing.T) {
	n := big.NewInt(1000000007)
	e := big.NewInt(1<<10 + 7)
	var first int = -1
	_, _, err := RunLi(n, 2, e, 2, []int{0}, func(pos int, x *giant.Giant) error {
		if first == -1 {
			first = pos
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, first)
}
