// Package ragerr defines the tagged error kinds shared across the core
// subsystems (graph store, embedding/completion providers, pipeline,
// tools, conversation store, agent).
package ragerr

import (
	"errors"
	"fmt"
)

// Kind tags a core error so callers can switch on it without string
// matching. New kinds should be added here, never invented ad hoc at the
// call site.
type Kind string

const (
	// 4.A graph store
	StoreUnavailable Kind = "StoreUnavailable"
	QueryMalformed   Kind = "QueryMalformed"
	IndexMissing     Kind = "IndexMissing"

	// 4.B embedding provider
	EmbedRateLimited  Kind = "EmbedRateLimited"
	EmbedProviderDown Kind = "EmbedProviderDown"
	EmbedInputTooLarge Kind = "EmbedInputTooLarge"
	EmbedDimensionMismatch Kind = "EmbedDimensionMismatch"

	// 4.C/4.D completion provider + structured executor
	GenRateLimited    Kind = "GenRateLimited"
	GenTimeout        Kind = "GenTimeout"
	GenSafetyBlocked  Kind = "GenSafetyBlocked"
	GenProviderDown   Kind = "GenProviderDown"
	GenOutputMalformed Kind = "GenOutputMalformed"

	// 4.E pipeline
	PipelineOperationFailed Kind = "PipelineOperationFailed"

	// 4.G tools
	ToolUnknown     Kind = "ToolUnknown"
	ToolArgsInvalid Kind = "ToolArgsInvalid"
	ToolFailed      Kind = "ToolFailed"

	// 4.H conversation store
	ConversationNotFound   Kind = "ConversationNotFound"
	ConversationReadOnly   Kind = "ConversationReadOnly"
	SummaryPromotionFailed Kind = "SummaryPromotionFailed"

	// 4.I research agent
	AgentIterationExhausted Kind = "AgentIterationExhausted"

	// Config/CLI surface (exit code 1: user/config error)
	ConfigInvalid Kind = "ConfigInvalid"
)

// Error is the concrete type every core package returns for classified
// failures. It wraps the underlying cause and carries enough context for
// the §7 user-visible message rule: kind, offending operation/provider,
// and last retriable delay.
type Error struct {
	Kind       Kind
	Op         string // offending operation or provider name
	Cause      error
	RetryAfter error // last retriable delay, formatted as a duration string; nil if n/a
	Attrs      map[string]any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified error.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// WithAttr attaches a structured attribute (e.g. iterations, index) and
// returns the same error for chaining.
func (e *Error) WithAttr(key string, val any) *Error {
	if e.Attrs == nil {
		e.Attrs = make(map[string]any)
	}
	e.Attrs[key] = val
	return e
}

// Is reports whether err (or something it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Fatal reports whether the kind aborts the current operation per §7's
// policy table rather than being retried or logged-and-continued.
func Fatal(kind Kind) bool {
	switch kind {
	case StoreUnavailable, QueryMalformed, IndexMissing,
		EmbedProviderDown, GenProviderDown, GenSafetyBlocked:
		return true
	default:
		return false
	}
}

// Retriable reports whether the kind is retried per the §5 rate-limit
// discipline rather than surfaced immediately.
func Retriable(kind Kind) bool {
	switch kind {
	case EmbedRateLimited, GenRateLimited, GenTimeout:
		return true
	default:
		return false
	}
}
