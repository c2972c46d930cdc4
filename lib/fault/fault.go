// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a fault. Kinds are stable: callers branch on them
// with errors.Is against the Err* sentinels below.
type Kind uint8

const (
	// KindMalformed covers bad method descriptors, corrupt block or
	// segment headers, truncated streams and checksum mismatches.
	KindMalformed Kind = iota + 1

	// KindCallback is a failure reported by a caller-supplied source or
	// sink, including the reserved callback sentinel.
	KindCallback

	// KindResource covers allocation failures and unexpected runtime
	// faults inside a codec backend.
	KindResource

	// KindParallel wraps the first failure of a parallel run. The
	// original cause stays reachable through Unwrap.
	KindParallel

	// KindUsage is a call made in the wrong session state, such as
	// compressing before a segment was started.
	KindUsage
)

// String returns the human-readable name of a fault kind.
func (kind Kind) String() string {
	switch kind {
	case KindMalformed:
		return "malformed input"
	case KindCallback:
		return "callback failed"
	case KindResource:
		return "resource failure"
	case KindParallel:
		return "parallel compression failed"
	case KindUsage:
		return "invalid call sequence"
	default:
		return fmt.Sprintf("unknown fault(%d)", kind)
	}
}

// Error is the single error type that crosses the boundary. Message is
// what the error channel stores; Err is the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrMalformed = &Error{Kind: KindMalformed}
	ErrCallback  = &Error{Kind: KindCallback}
	ErrResource  = &Error{Kind: KindResource}
	ErrParallel  = &Error{Kind: KindParallel}
	ErrUsage     = &Error{Kind: KindUsage}
)

func (e *Error) Error() string {
	if e.Message == "" {
		if e.Err != nil {
			return e.Kind.String() + ": " + e.Err.Error()
		}
		return e.Kind.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok || sentinel.Message != "" || sentinel.Err != nil {
		return false
	}
	return sentinel.Kind == e.Kind
}

// New returns a fault of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a fault of the given kind whose message is the
// formatted prefix followed by the cause. A cause that is already a
// fault keeps its own kind so that, for example, a callback failure
// surfacing through a backend decoder is still reported as a callback
// failure.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	prefix := fmt.Sprintf(format, args...)
	var existing *Error
	if errors.As(err, &existing) {
		kind = existing.Kind
	}
	return &Error{Kind: kind, Message: prefix + ": " + err.Error(), Err: err}
}

// From converts any error into a fault. Plain errors take the given
// default kind; an error that wraps a fault takes that fault's kind and
// keeps its own, more specific message.
func From(err error, defaultKind Kind) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing == err {
			return existing
		}
		defaultKind = existing.Kind
	}
	return &Error{Kind: defaultKind, Message: err.Error(), Err: err}
}

// Raise aborts the current boundary call with a fault. It must only be
// called beneath Channel.Run, which recovers it.
func Raise(kind Kind, format string, args ...any) {
	panic(New(kind, format, args...))
}

// recovered converts a recovered panic value into a fault. Faults
// raised with Raise pass through unchanged; runtime errors and any
// other panic value become resource faults.
func recovered(value any) *Error {
	switch v := value.(type) {
	case *Error:
		return v
	case runtime.Error:
		return &Error{Kind: KindResource, Message: "runtime fault: " + v.Error(), Err: v}
	case error:
		return From(v, KindResource)
	default:
		return &Error{Kind: KindResource, Message: fmt.Sprint(v)}
	}
}
