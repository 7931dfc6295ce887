// Package clog configures the structured logger shared by every package in
// this module. It is a thin instantiation of
// github.com/joeycumines/go-utilpkg/logiface against the
// github.com/joeycumines/go-utilpkg/logiface/stumpy backend — the same
// facade/backend split the teacher repo uses for its zerolog and logrus
// backends.
package clog

import (
	"io"
	"os"

	"github.com/joeycumines/go-utilpkg/logiface"
	"github.com/joeycumines/go-utilpkg/logiface/stumpy"
)

// Logger is the concrete logger type threaded through this module.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger writing newline-delimited JSON to w (os.Stderr if nil).
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return logiface.New[*stumpy.Event](stumpy.WithStumpy(stumpy.WithWriter(w)))
}

// Discard is a Logger that drops everything, for tests and library callers
// that don't want PRST's logging opinions.
func Discard() *Logger {
	return logiface.New[*stumpy.Event](stumpy.WithStumpy(stumpy.WithWriter(io.Discard)))
}
