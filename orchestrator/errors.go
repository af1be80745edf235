package orchestrator

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
)

// ErrorKind classifies a failed operation
type ErrorKind = chatmodel.ErrorKind

// Error kinds
const (
	KindNone              = chatmodel.KindNone
	KindToolFailure       = chatmodel.KindToolFailure
	KindSchemaViolation   = chatmodel.KindSchemaViolation
	KindEmptyResult       = chatmodel.KindEmptyResult
	KindUpstreamException = chatmodel.KindUpstreamException
	KindTimeout           = chatmodel.KindTimeout
)

// Sentinels of the error kinds, use errors.Is to check the kind
var (
	ErrToolFailure       = chatmodel.ErrToolFailure
	ErrSchemaViolation   = chatmodel.ErrSchemaViolation
	ErrEmptyResult       = chatmodel.ErrEmptyResult
	ErrUpstreamException = chatmodel.ErrUpstreamException
	ErrTimeout           = chatmodel.ErrTimeout
)

// KindOf returns the kind of the error
func KindOf(err error) ErrorKind {
	return chatmodel.KindOf(err)
}

// AttemptsError is returned when every attempt of a retried operation failed,
// Err is the failure of the last attempt.
type AttemptsError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error {
	return e.Err
}

// Describe returns a message of the failed operation that does not expose
// the names of the teams and agents involved: the operation and the root cause.
func Describe(op string, err error) string {
	if err == nil {
		return op
	}
	cause := errors.UnwrapAll(err).Error()
	if KindOf(err) == KindTimeout {
		cause = "timed out"
	}

	var ae *AttemptsError
	if errors.As(err, &ae) {
		return fmt.Sprintf("%s failed after %d attempts: %s", ae.Op, ae.Attempts, cause)
	}
	return op + ": " + cause
}
