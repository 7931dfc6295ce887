package multipoint

import (
	"math/big"
	"testing"

	"github.com/prst-go/prst/giant"
	"github.com/stretchr/testify/require"
)

func TestRunSquaringDegenerateCase(t *testing.T) {
	n := big.NewInt(1000000007)
	x0 := giant.FromInt64(n, 3)
	points := []int{0, 1, 2, 3, 5}

	var visited []int
	got, err := Run(n, x0, big.NewInt(2), points, nil, func(index, pos int, x *giant.Giant) (bool, error) {
		visited = append(visited, pos)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, points, visited)

	want := new(big.Int).Exp(big.NewInt(3), big.NewInt(1<<5), n)
	require.Equal(t, want, got.Int())
}

func TestRunGeneralBase(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 200)
	n.Sub(n, big.NewInt(357))
	x0 := giant.FromInt64(n, 7)
	points := []int{0, 4}

	got, err := Run(n, x0, big.NewInt(960), points, nil, nil)
	require.NoError(t, err)

	want := new(big.Int).Exp(big.NewInt(960), big.NewInt(4), nil)
	want = new(big.Int).Exp(big.NewInt(7), want, n)
	require.Equal(t, want, got.Int())
}

func TestRunRejectsNonIncreasingPoints(t *testing.T) {
	n := big.NewInt(97)
	x0 := giant.FromInt64(n, 2)
	_, err := Run(n, x0, big.NewInt(2), []int{0, 3, 2}, nil, nil)
	require.ErrorIs(t, err, ErrPointsNotIncreasing)
}

func TestRunTailStep(t *testing.T) {
	n := big.NewInt(1000003)
	x0 := giant.FromInt64(n, 5)
	tail := giant.FromInt64(n, 9)
	var sawTail bool
	got, err := Run(n, x0, big.NewInt(2), []int{0, 2}, tail, func(index, pos int, x *giant.Giant) (bool, error) {
		if index == 2 {
			sawTail = true
		}
		return true, nil
	})
	require.NoError(t, err)
	require.True(t, sawTail)

	want := new(big.Int).Exp(big.NewInt(5), big.NewInt(4), n)
	want.Mul(want, big.NewInt(9))
	want.Mod(want, n)
	require.Equal(t, want, got.Int())
}
