package engine

import (
	"errors"
	"fmt"
)

// CycleError reports a cycle that failed before any effect was applied.
//
// Once effects have been applied a cycle no longer fails as a whole; every
// per-effect failure is an unapplied transcript. A CycleError therefore
// always means no transcript was written for the cycle.
type CycleError struct {
	// Code identifies the error category.
	Code CycleErrorCode

	// Message is a human-readable description.
	Message string

	// CycleToken identifies the failed cycle.
	CycleToken string

	RevisionID int64
	DiffID     int64

	// Err is the underlying cause, if any.
	Err error
}

// CycleErrorCode categorizes cycle errors.
type CycleErrorCode string

const (
	// ErrCodeRevisionNotFound indicates no revision matched the event.
	ErrCodeRevisionNotFound CycleErrorCode = "REVISION_NOT_FOUND"

	// ErrCodeRevisionAmbiguous indicates the revision lookup matched more than once.
	ErrCodeRevisionAmbiguous CycleErrorCode = "REVISION_AMBIGUOUS"

	// ErrCodeDiffNotFound indicates the event's diff does not exist.
	ErrCodeDiffNotFound CycleErrorCode = "DIFF_NOT_FOUND"

	// ErrCodeDiffMismatch indicates the diff belongs to another revision.
	ErrCodeDiffMismatch CycleErrorCode = "DIFF_MISMATCH"

	// ErrCodeEffectSourceFailed indicates rule matching could not produce effects.
	ErrCodeEffectSourceFailed CycleErrorCode = "EFFECT_SOURCE_FAILED"
)

// Error implements the error interface.
func (e *CycleError) Error() string {
	msg := fmt.Sprintf("%s: %s (cycle=%s, revision=%d, diff=%d)", e.Code, e.Message, e.CycleToken, e.RevisionID, e.DiffID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CycleError) Unwrap() error {
	return e.Err
}

func newCycleError(code CycleErrorCode, token string, ev Event, err error, format string, args ...any) *CycleError {
	return &CycleError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		CycleToken: token,
		RevisionID: ev.RevisionID,
		DiffID:     ev.DiffID,
		Err:        err,
	}
}

// CodeOf returns the CycleErrorCode of err, or "" if err is not a
// CycleError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) CycleErrorCode {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsNotFound reports whether err means the event's revision or diff does
// not exist.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodeRevisionNotFound, ErrCodeDiffNotFound:
		return true
	default:
		return false
	}
}

// IsEffectSourceError reports whether rule matching failed.
func IsEffectSourceError(err error) bool {
	return CodeOf(err) == ErrCodeEffectSourceFailed
}

// TamperedError reports a stored transcript whose content no longer
// matches its content-addressed ID.
type TamperedError struct {
	CycleToken  string
	EffectIndex int
	StoredID    string
	ComputedID  string
}

// Error implements the error interface.
func (e *TamperedError) Error() string {
	return fmt.Sprintf("transcript %d of cycle %s: stored id %s does not match content (%s)",
		e.EffectIndex, e.CycleToken, e.StoredID, e.ComputedID)
}
