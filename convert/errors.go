// Error kinds per §7: Fatal, Internal, Anomaly.
//
// The teacher's exception/throw/catch (surgeon/reposurgeon.go) exists
// because reposurgeon is an interactive REPL: a bad command panics an
// *exception, an outer recover() in the command loop reports it and
// keeps the REPL alive. cvs2svn-go is a one-shot batch driver with no
// outer loop to survive into, so the same three-way classification is
// carried as a plain error type instead — passes return an error and
// main() maps any non-nil error to exit code 1 via exitCode, which is
// the idiomatic Go shape for "classified error with no resumption
// point".
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import "fmt"

// ErrorKind classifies a ConversionError per §7.
type ErrorKind int

const (
	// Fatal is user-facing misconfiguration or input corruption.
	Fatal ErrorKind = iota
	// Internal is an invariant violation detected at runtime (a bug).
	Internal
	// Anomaly is a recoverable condition the verifier counts and
	// summarizes without aborting (§7).
	Anomaly
)

func (k ErrorKind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	case Internal:
		return "internal"
	case Anomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// ConversionError carries a kind, an optional pass/file context (§7's
// "propagation policy: no pass catches errors from a deeper pass
// except to add context"), and the underlying cause.
type ConversionError struct {
	Kind    ErrorKind
	Pass    string
	File    string
	Message string
	Cause   error
}

func (e *ConversionError) Error() string {
	var where string
	switch {
	case e.Pass != "" && e.File != "":
		where = fmt.Sprintf("[%s: %s] ", e.Pass, e.File)
	case e.Pass != "":
		where = fmt.Sprintf("[%s] ", e.Pass)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s%s: %s", where, e.Message, e.Cause)
	}
	return where + e.Message
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// throwFatal builds a Fatal ConversionError, the cvs2svn-go analogue
// of the teacher's throw("command", ...): missing CVSROOT, conflicting
// flags, unreadable RCS file, unresolvable ambiguous symbol, existing
// target path without --existing-svnrepos.
func throwFatal(pass string, format string, args ...interface{}) *ConversionError {
	return &ConversionError{Kind: Fatal, Pass: pass, Message: fmt.Sprintf(format, args...)}
}

// throwInternal builds an Internal ConversionError: an invariant the
// code itself should have prevented, e.g. an unknown Changeset
// subtype reaching the output delegate.
func throwInternal(pass string, format string, args ...interface{}) *ConversionError {
	return &ConversionError{Kind: Internal, Pass: pass, Message: fmt.Sprintf(format, args...)}
}

// throwAnomaly builds an Anomaly ConversionError: a recoverable
// condition worth surfacing to the operator (logged, not returned, by
// its caller) rather than one that aborts the run, e.g. a file whose
// default-branch revision could not be matched to any changeset.
func throwAnomaly(pass string, format string, args ...interface{}) *ConversionError {
	return &ConversionError{Kind: Anomaly, Pass: pass, Message: fmt.Sprintf(format, args...)}
}

// withFile annotates an existing error with the file that was being
// processed when it occurred, without changing its Kind — the "add
// context, don't reclassify" rule from §7.
func withFile(err error, pass string, file string) *ConversionError {
	if ce, ok := err.(*ConversionError); ok {
		if ce.Pass == "" {
			ce.Pass = pass
		}
		if ce.File == "" {
			ce.File = file
		}
		return ce
	}
	return &ConversionError{Kind: Internal, Pass: pass, File: file, Message: "wrapped error", Cause: err}
}

// exitCode maps a ConversionError to the exit codes named in §6:
// 0 success, 1 usage/fatal/internal error, 2 reserved for interrupted.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
