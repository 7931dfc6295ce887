package task

import (
	"time"

	"github.com/prst-go/prst/checkpoint"
	"github.com/prst-go/prst/internal/runctx"
	"github.com/prst-go/prst/progress"
)

// Committer implements commit_execute: it must be called after every inner
// step of Execute. It persists state to a checkpoint.File when at least
// Ctx.DiskWriteTime has elapsed since the last write (or this is the final
// iteration, or the host requested an immediate save), then, independently,
// emits a progress.Report when at least Ctx.ProgressTime has elapsed.
type Committer struct {
	Ctx        *runctx.Context
	File       *checkpoint.File
	Iterations int
	Stage      *progress.Stage
	OnProgress func(progress.Report)

	lastWrite    time.Time
	lastProgress time.Time
	wrote        bool
}

// NewCommitter constructs a Committer ready for iteration 0.
func NewCommitter(ctx *runctx.Context, file *checkpoint.File, iterations int, stage *progress.Stage, onProgress func(progress.Report)) *Committer {
	return &Committer{Ctx: ctx, File: file, Iterations: iterations, Stage: stage, OnProgress: onProgress}
}

// Commit persists and reports per the timers above. buildState is called
// only when a write is actually due, so callers can defer expensive
// snapshotting (e.g. copying a Giant) until it's known to be needed.
func (c *Committer) Commit(iteration int, buildState func() checkpoint.TaskState) (Result, error) {
	if c.Ctx.Aborted() {
		return ResultAbort, nil
	}

	now := time.Now()
	final := iteration >= c.Iterations
	due := final || !c.wrote || now.Sub(c.lastWrite) >= c.Ctx.DiskWriteTime || c.Ctx.WantsStateSave()
	if due {
		ts := buildState()
		ts.Iteration = iteration
		if err := ts.Validate(c.Iterations); err != nil {
			return ResultAbort, err
		}
		if c.File != nil {
			if err := c.File.Write(ts); err != nil {
				return ResultAbort, err
			}
		}
		c.lastWrite = now
		c.wrote = true
	}

	if c.Stage != nil {
		c.Stage.Advance(iteration)
	}
	if c.OnProgress != nil && (now.Sub(c.lastProgress) >= c.Ctx.ProgressTime || final) {
		c.OnProgress(progress.Report{
			Iteration:  iteration,
			Iterations: c.Iterations,
			Time:       now,
			Overall:    overallFraction(c.Stage),
		})
		c.lastProgress = now
	}
	return ResultOk, nil
}

func overallFraction(s *progress.Stage) float64 {
	if s == nil || s.Owner() == nil {
		return 0
	}
	return s.Owner().Fraction()
}
