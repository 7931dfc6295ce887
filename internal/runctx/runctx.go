// Package runctx carries the small set of process-wide knobs that the
// original prover kept as globals (DISK_WRITE_TIME, PROGRESS_TIME,
// MULS_PER_STATE_UPDATE, FILE_APPID) plus the one cooperative abort flag,
// threaded explicitly instead of living at package scope.
package runctx

import (
	"sync/atomic"
	"time"
)

// Context holds the configuration and shared mutable state every Task,
// checkpoint Writer and exponentiation engine in this module is given
// explicitly, rather than reaching for package-level globals.
type Context struct {
	// DiskWriteTime is the minimum interval between checkpoint writes,
	// overridable by a hosting environment that wants tighter or looser
	// durability guarantees.
	DiskWriteTime time.Duration
	// ProgressTime is the minimum interval between progress reports.
	ProgressTime time.Duration
	// MulsPerStateUpdate bounds how many modular multiplications run
	// between opportunities to check AbortFlag and the wall clock.
	MulsPerStateUpdate int
	// FileAppID tags checkpoint files so an unrelated tool's file is
	// never mistaken for one of ours.
	FileAppID byte

	// AbortFlag is the process-wide cooperative cancellation flag, set by
	// signal handlers or a hosting environment, polled at every commit
	// and before every heavy sub-task.
	AbortFlag *atomic.Bool

	// StateSaveFlag, when set, is polled the same places AbortFlag is; it
	// lets a hosting environment (e.g. a BOINC-style client) request an
	// immediate checkpoint and a return to the host. Returning true once
	// is enough — callers are expected to act and not call it again until
	// the next natural checkpoint boundary.
	StateSaveFlag func() bool
}

// Option configures a Context constructed via New.
type Option func(*Context)

// New builds a Context with the documented defaults, applying options in
// order.
func New(options ...Option) *Context {
	c := &Context{
		DiskWriteTime:      600 * time.Second,
		ProgressTime:       60 * time.Second,
		MulsPerStateUpdate: 200,
		FileAppID:          1,
		AbortFlag:          new(atomic.Bool),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// WithDiskWriteTime overrides DiskWriteTime.
func WithDiskWriteTime(d time.Duration) Option {
	return func(c *Context) { c.DiskWriteTime = d }
}

// WithProgressTime overrides ProgressTime.
func WithProgressTime(d time.Duration) Option {
	return func(c *Context) { c.ProgressTime = d }
}

// WithMulsPerStateUpdate overrides MulsPerStateUpdate.
func WithMulsPerStateUpdate(n int) Option {
	return func(c *Context) { c.MulsPerStateUpdate = n }
}

// WithFileAppID overrides FileAppID.
func WithFileAppID(id byte) Option {
	return func(c *Context) { c.FileAppID = id }
}

// WithStateSaveFlag installs a host callback polled alongside AbortFlag.
func WithStateSaveFlag(fn func() bool) Option {
	return func(c *Context) { c.StateSaveFlag = fn }
}

// Aborted reports whether AbortFlag has been set.
func (c *Context) Aborted() bool {
	return c.AbortFlag != nil && c.AbortFlag.Load()
}

// RequestAbort sets AbortFlag; safe to call from a signal handler.
func (c *Context) RequestAbort() {
	if c.AbortFlag != nil {
		c.AbortFlag.Store(true)
	}
}

// WantsStateSave polls the host-supplied StateSaveFlag, if any.
func (c *Context) WantsStateSave() bool {
	return c.StateSaveFlag != nil && c.StateSaveFlag()
}
