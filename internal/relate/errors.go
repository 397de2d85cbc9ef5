package relate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brplusa/spacelink/internal/store"
)

// Error represents a failed relationship engine operation.
//
// Error includes structured fields so callers can tell a missing space from a
// storage failure without parsing messages.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the engine operation that failed, e.g. "CreateGroup".
	Op string

	// Message is a human-readable description.
	Message string

	// SpaceIDs lists the spaces the error is about, if any.
	SpaceIDs []string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a space that must be tracked is not.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeDuplicateKey indicates an insert collided with a tracked id.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeDanglingEdge indicates a peer id that does not resolve.
	ErrCodeDanglingEdge ErrorCode = "DANGLING_EDGE"

	// ErrCodeStorage indicates the store file could not be opened, read or written.
	ErrCodeStorage ErrorCode = "STORAGE"

	// ErrCodeInvalidGroup indicates the input cannot form a group.
	ErrCodeInvalidGroup ErrorCode = "INVALID_GROUP"

	// ErrCodeGroupMergeUnsupported indicates some of the spaces to connect are
	// already tracked. Merging groups has no defined policy yet.
	ErrCodeGroupMergeUnsupported ErrorCode = "GROUP_MERGE_UNSUPPORTED"

	// ErrCodeCleanupIncomplete indicates a space was removed but some peers
	// could not be updated and may still reference it.
	ErrCodeCleanupIncomplete ErrorCode = "CLEANUP_INCOMPLETE"

	// ErrCodePartialFailure indicates a batch in which some entries succeeded
	// and others failed. Succeeded entries are not rolled back.
	ErrCodePartialFailure ErrorCode = "PARTIAL_FAILURE"

	// ErrCodeInternal indicates a panic recovered at the engine boundary.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Op)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.SpaceIDs) > 0 {
		fmt.Fprintf(&b, " (spaces=%s)", strings.Join(e.SpaceIDs, ","))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Failure records why one entry of a batch failed.
type Failure struct {
	ID  string
	Err error
}

// BatchError reports a BreakGroup call in which at least one entry failed.
// Entries listed in Broken were disconnected and stay disconnected.
type BatchError struct {
	Broken []string
	Failed []Failure
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = f.ID
	}
	return fmt.Sprintf("%s: BreakGroup: %d of %d spaces failed (failed=%s)",
		e.Code(), len(e.Failed), len(e.Failed)+len(e.Broken), strings.Join(ids, ","))
}

// Code returns ErrCodePartialFailure when some entries succeeded, otherwise
// the code of the first failure.
func (e *BatchError) Code() ErrorCode {
	if e.Partial() {
		return ErrCodePartialFailure
	}
	if len(e.Failed) > 0 {
		if c := CodeOf(e.Failed[0].Err); c != "" {
			return c
		}
	}
	return ErrCodeStorage
}

// Unwrap exposes every entry error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f.Err
	}
	return errs
}

// Partial reports whether some entries of the batch succeeded.
func (e *BatchError) Partial() bool {
	return len(e.Broken) > 0
}

// CodeOf returns the ErrorCode of the first *Error in err's chain, or "" if
// there is none.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsNotFound returns true if the error reports an untracked space.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsMergeUnsupported returns true if the error rejects a group merge.
func IsMergeUnsupported(err error) bool {
	return CodeOf(err) == ErrCodeGroupMergeUnsupported
}

// IsPartialFailure returns true if the error is a batch in which some entries
// succeeded.
func IsPartialFailure(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Partial()
	}
	return false
}

// classify wraps a store error into an *Error with the matching code.
func classify(op string, ids []string, err error) *Error {
	e := &Error{Op: op, SpaceIDs: ids, Err: err}

	var dupErr *store.DuplicateKeyError
	switch {
	case errors.As(err, &dupErr):
		e.Code = ErrCodeDuplicateKey
		e.SpaceIDs = dupErr.IDs
	case errors.Is(err, store.ErrNotFound):
		e.Code = ErrCodeNotFound
	case errors.Is(err, store.ErrDanglingEdge):
		e.Code = ErrCodeDanglingEdge
	default:
		e.Code = ErrCodeStorage
	}
	return e
}

// recoverInto converts a panic into an ErrCodeInternal error stored in *errp.
// Must be deferred directly.
func recoverInto(errp *error, op string) {
	if r := recover(); r != nil {
		*errp = &Error{Code: ErrCodeInternal, Op: op, Message: fmt.Sprintf("panic: %v", r)}
	}
}
