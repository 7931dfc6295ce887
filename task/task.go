// Package task implements the resumable-computation framework of spec.md
// §4.1: a setup → execute → release loop with bounded, counted restarts and
// cooperative abort, and a Committer helper implementing commit_execute's
// "write on a timer, report progress on a (looser) timer" contract.
//
// Per spec.md §9's design note, TaskRestartException/TaskAbortException are
// not modeled as Go panics or a custom error type hierarchy: they are the
// explicit Result values Restart and Abort, returned alongside a
// descriptive error from Execute.
package task

import (
	"errors"
	"fmt"

	"github.com/prst-go/prst/internal/clog"
	"github.com/prst-go/prst/internal/runctx"
)

// Result is the outcome of one Execute call.
type Result int

const (
	// ResultOk means Execute ran to completion; Run proceeds to Release.
	ResultOk Result = iota
	// ResultRestart requests Execute be retried from the last durable
	// recovery state, bounded by MaxRestarts.
	ResultRestart
	// ResultAbort is terminal: Run unwinds through Release without
	// retrying, propagating the accompanying error.
	ResultAbort
)

func (r Result) String() string {
	switch r {
	case ResultOk:
		return "ok"
	case ResultRestart:
		return "restart"
	case ResultAbort:
		return "abort"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// MaxRestarts bounds how many times a single Execute call may be retried
// before Run escalates to an abort, per spec.md §4.1.
const MaxRestarts = 5

// ErrTooManyRestarts wraps the last restart reason once MaxRestarts is
// exceeded.
var ErrTooManyRestarts = errors.New("task: exceeded maximum restarts")

// State is threaded through a single Run call, carrying the shared
// runtime context plus this run's restart accounting — the generalization
// spec.md §9 asks for, of the globals and counters the original kept
// per-task.
type State struct {
	Ctx *runctx.Context
	Log *clog.Logger

	// RestartCount is bounded by MaxRestarts; Run aborts once exceeded.
	RestartCount int
	// RestartOp increments on every restart and is never reset, so later
	// proofs of progress can be matched against the run that produced
	// them even across multiple restarts.
	RestartOp int
}

// Task is one resumable computation.
type Task interface {
	// Setup prepares the task, e.g. recovering a checkpoint.
	Setup(s *State) error
	// Execute advances the task. Returning ResultRestart asks Run to call
	// Execute again from the last durable recovery point; ResultAbort is
	// terminal.
	Execute(s *State) (Result, error)
	// Release runs once, however Execute finished, to release resources.
	Release(s *State) error
}

// Run drives Setup → Execute (looping on ResultRestart) → Release.
func Run(ctx *runctx.Context, log *clog.Logger, t Task) error {
	s := &State{Ctx: ctx, Log: log}
	if err := t.Setup(s); err != nil {
		return fmt.Errorf("task: setup: %w", err)
	}

	for {
		if ctx.Aborted() {
			_ = t.Release(s)
			return errors.New("task: aborted before execute")
		}

		result, err := t.Execute(s)
		switch result {
		case ResultOk:
			if relErr := t.Release(s); relErr != nil {
				return fmt.Errorf("task: release: %w", relErr)
			}
			return nil

		case ResultRestart:
			s.RestartCount++
			s.RestartOp++
			if log != nil {
				log.Info().Int("restart_count", s.RestartCount).Int("restart_op", s.RestartOp).Err(err).Log("task restart")
			}
			if s.RestartCount > MaxRestarts {
				_ = t.Release(s)
				return fmt.Errorf("%w: %v", ErrTooManyRestarts, err)
			}
			continue

		case ResultAbort:
			_ = t.Release(s)
			if err == nil {
				err = errors.New("task: aborted")
			}
			return err

		default:
			_ = t.Release(s)
			return fmt.Errorf("task: unknown result %v", result)
		}
	}
}
