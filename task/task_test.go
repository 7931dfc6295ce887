package task

import (
	"errors"
	"testing"

	"github.com/prst-go/prst/internal/clog"
	"github.com/prst-go/prst/internal/runctx"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	executes     int
	restartUntil int
	setupErr     error
	releaseErr   error
}

func (c *countingTask) Setup(*State) error { return c.setupErr }

func (c *countingTask) Execute(*State) (Result, error) {
	c.executes++
	if c.executes <= c.restartUntil {
		return ResultRestart, errors.New("simulated mismatch")
	}
	return ResultOk, nil
}

func (c *countingTask) Release(*State) error { return c.releaseErr }

func TestRunSucceedsWithoutRestart(t *testing.T) {
	ct := &countingTask{}
	err := Run(runctx.New(), clog.Discard(), ct)
	require.NoError(t, err)
	require.Equal(t, 1, ct.executes)
}

func TestRunRetriesWithinBound(t *testing.T) {
	ct := &countingTask{restartUntil: MaxRestarts}
	err := Run(runctx.New(), clog.Discard(), ct)
	require.NoError(t, err)
	require.Equal(t, MaxRestarts+1, ct.executes)
}

func TestRunAbortsAfterTooManyRestarts(t *testing.T) {
	ct := &countingTask{restartUntil: MaxRestarts + 1}
	err := Run(runctx.New(), clog.Discard(), ct)
	require.ErrorIs(t, err, ErrTooManyRestarts)
}

type abortingTask struct{}

func (abortingTask) Setup(*State) error { return nil }
func (abortingTask) Execute(*State) (Result, error) {
	return ResultAbort, errors.New("fatal")
}
func (abortingTask) Release(*State) error { return nil }

func TestRunPropagatesAbort(t *testing.T) {
	err := Run(runctx.New(), clog.Discard(), abortingTask{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "fatal")
}

func TestRunStopsBeforeExecuteIfAlreadyAborted(t *testing.T) {
	ctx := runctx.New()
	ctx.RequestAbort()
	ct := &countingTask{}
	err := Run(ctx, clog.Discard(), ct)
	require.Error(t, err)
	require.Equal(t, 0, ct.executes)
}
