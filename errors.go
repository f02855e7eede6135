package ritual

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRule is returned when parsing starts from a rule
	// the parser doesn't have
	ErrUnknownRule = errors.New("unknown rule")

	// ErrMalformedMatcher is returned by the constructors of the
	// matcher model when a node would break its invariants
	ErrMalformedMatcher = errors.New("malformed matcher")

	// ErrHalted is matched by every *HaltError
	ErrHalted = errors.New("halted")

	// ErrDuplicateCallable is returned when a rule or a native is
	// registered under a name already taken
	ErrDuplicateCallable = errors.New("duplicate callable")

	// ErrMissingExtern is returned when a grammar declares an
	// extern the host didn't provide
	ErrMissingExtern = errors.New("missing extern")
)

// InternalError signals a defect in a grammar or in the host code
// that the semantic passes couldn't catch, like calling something
// that isn't callable, or a native function failing.  It aborts the
// parse instead of being treated as a match failure.
type InternalError struct {
	// Scope is the name of the innermost callable running when the
	// error happened
	Scope string

	// Pos is the position of the cursor when the error happened
	Pos int

	Message string
	Err     error
}

func newInternalError(scope string, pos int, err error, format string, args ...any) *InternalError {
	return &InternalError{Scope: scope, Pos: pos, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *InternalError) Error() string {
	msg := fmt.Sprintf("internal error in %s @ %d: %s", e.Scope, e.Pos, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InternalError) Unwrap() error { return e.Err }

// HaltError is returned once a compilation phase reported at least
// one diagnostic.  The diagnostics themselves live in the Status.
type HaltError struct {
	Count int
}

func (e *HaltError) Error() string {
	if e.Count == 1 {
		return "halting due to 1 error"
	}
	return fmt.Sprintf("halting due to %d errors", e.Count)
}

func (e *HaltError) Is(target error) bool { return target == ErrHalted }

// ParseError describes a failed match at the furthest position the
// parser reached.
type ParseError struct {
	// Scope is the name of the callable that failed deepest into
	// the input, `<EOS>` if the input wasn't fully consumed
	Scope string

	// Pos is the furthest failure position, relative to the text
	// given to the parser
	Pos int

	Location LocationInfo
}

func (e *ParseError) Error() string {
	return e.Location.Message(e.Scope)
}
