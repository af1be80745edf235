package chatmodel

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrorKind classifies a failure of an agent, a team or an orchestration.
type ErrorKind string

const (
	// KindNone is returned by KindOf for nil or unclassified errors.
	KindNone ErrorKind = ""
	// KindToolFailure is a failed tool call, swallowed at the agent boundary.
	KindToolFailure ErrorKind = "ToolFailure"
	// KindSchemaViolation is a response that does not satisfy the output contract.
	KindSchemaViolation ErrorKind = "SchemaViolation"
	// KindEmptyResult is a response without content.
	KindEmptyResult ErrorKind = "EmptyResult"
	// KindUpstreamException is a model or network failure.
	KindUpstreamException ErrorKind = "UpstreamException"
	// KindTimeout is an expired resolution deadline.
	KindTimeout ErrorKind = "Timeout"
)

var (
	ErrToolFailure       = errors.New("tool failure")
	ErrSchemaViolation   = errors.New("schema violation")
	ErrEmptyResult       = errors.New("empty result")
	ErrUpstreamException = errors.New("upstream exception")
	ErrTimeout           = errors.New("timeout")
)

// kinds are checked in order, the first match wins
var kinds = []struct {
	kind ErrorKind
	err  error
}{
	{KindTimeout, ErrTimeout},
	{KindSchemaViolation, ErrSchemaViolation},
	{KindEmptyResult, ErrEmptyResult},
	{KindToolFailure, ErrToolFailure},
	{KindUpstreamException, ErrUpstreamException},
}

// Sentinel returns the sentinel error of the kind, or nil for KindNone.
func (k ErrorKind) Sentinel() error {
	for _, e := range kinds {
		if e.kind == k {
			return e.err
		}
	}
	return nil
}

// WithKind marks err with the sentinel of the kind,
// keeping the original message.
func WithKind(err error, kind ErrorKind) error {
	if err == nil {
		return nil
	}
	sentinel := kind.Sentinel()
	if sentinel == nil {
		return err
	}
	return errors.Mark(err, sentinel)
}

// KindOf returns the kind of the error.
// An expired context deadline is reported as KindTimeout.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, e := range kinds {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindNone
}
