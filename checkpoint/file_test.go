package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "run.ckpt"), 7, 0xCAFEBABE)

	ts := TaskState{Kind: KindStateValue, Iteration: 42, X: []byte{1, 2, 3, 4, 5}}
	require.NoError(t, ts.Validate(100))
	require.NoError(t, f.Write(ts))

	got, ok, err := f.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ts, got)
}

func TestReadAbsentFile(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "missing.ckpt"), 1, 1)
	_, ok, err := f.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFingerprintMismatchTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.ckpt")
	f := New(path, 1, 111)
	require.NoError(t, f.Write(TaskState{Kind: KindBare, Iteration: 1}))

	other := New(path, 1, 222)
	_, ok, err := other.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCorruptedHashTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.ckpt")
	f := New(path, 1, 5)
	require.NoError(t, f.Write(TaskState{Kind: KindBare, Iteration: 9}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, ok, err := f.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLLR2Mode(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "run.ll2"), 1, 9, WithLLR2(true))
	ts := TaskState{Kind: KindProduct, Iteration: 3, Depth: 2, X: []byte{9, 9, 9}}
	require.NoError(t, f.Write(ts))

	got, ok, err := f.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ts, got)
}

func TestAddChildAndClear(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "run.ckpt"), 1, 1)
	child := f.AddChild(".proof.0")
	require.NoError(t, child.Write(TaskState{Kind: KindStateValue, Iteration: 0, X: []byte{1}}))
	require.NoError(t, f.Write(TaskState{Kind: KindBare, Iteration: 0}))

	require.NoError(t, f.Clear())

	_, ok, err := f.Read()
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = child.Read()
	require.NoError(t, err)
	require.False(t, ok)
}
