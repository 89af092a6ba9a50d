package engine

import (
	"context"
	"errors"
	"fmt"
)

// SimError represents an error detected while simulating procs or blocks.
//
// Simulation errors include:
//   - Malformed input: bad value files, signatures or memory descriptors
//   - Assertion fired: an assert evaluated false under fail-on-assert
//   - Output mismatch: a channel produced a value other than the expected one
//   - No output: a block stopped producing outputs for too many cycles
//   - Deadlock: a tick made no progress while outputs were still expected
//
// SimError includes structured fields for diagnostics.
type SimError struct {
	// Code identifies the error category.
	Code SimErrorCode

	// Message is a human-readable description.
	Message string

	// Channel names the channel involved, if any.
	Channel string

	// Cycle is the tick or cycle at which the error was detected. Zero when
	// the error is not tied to a point in time.
	Cycle int64

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// SimErrorCode categorizes simulation errors.
type SimErrorCode string

const (
	// ErrCodeMalformedInput indicates an input file or argument could not be
	// interpreted.
	ErrCodeMalformedInput SimErrorCode = "MALFORMED_INPUT"

	// ErrCodeInvariantViolation indicates the IR or signature is internally
	// inconsistent.
	ErrCodeInvariantViolation SimErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeAssertionFired indicates an assert fired under fail-on-assert.
	ErrCodeAssertionFired SimErrorCode = "ASSERTION_FIRED"

	// ErrCodeOutputMismatch indicates produced outputs differ from the
	// expected ones.
	ErrCodeOutputMismatch SimErrorCode = "OUTPUT_MISMATCH"

	// ErrCodeNoOutput indicates a block idled past the allowed cycle count,
	// or that nothing was verified at all.
	ErrCodeNoOutput SimErrorCode = "NO_OUTPUT"

	// ErrCodeDeadlock indicates a proc network stopped making progress.
	ErrCodeDeadlock SimErrorCode = "DEADLOCK"

	// ErrCodeTimeout indicates the context expired mid-simulation.
	ErrCodeTimeout SimErrorCode = "TIMEOUT"

	// ErrCodeOutOfRange indicates a memory access outside the memory.
	ErrCodeOutOfRange SimErrorCode = "OUT_OF_RANGE"

	// ErrCodeFailedPrecondition indicates an operation was used out of
	// protocol, such as two memory reads in one cycle.
	ErrCodeFailedPrecondition SimErrorCode = "FAILED_PRECONDITION"
)

// Error implements the error interface.
func (e *SimError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s: %s (channel=%s)", e.Code, e.Message, e.Channel)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SimError) Unwrap() error { return e.Err }

func hasCode(err error, code SimErrorCode) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsMalformedInputError returns true if err is a malformed input error.
func IsMalformedInputError(err error) bool { return hasCode(err, ErrCodeMalformedInput) }

// IsAssertionError returns true if err reports fired assertions.
func IsAssertionError(err error) bool { return hasCode(err, ErrCodeAssertionFired) }

// IsMismatchError returns true if err reports mismatched outputs.
func IsMismatchError(err error) bool { return hasCode(err, ErrCodeOutputMismatch) }

// IsNoOutputError returns true if err reports a block that stopped
// producing outputs.
func IsNoOutputError(err error) bool { return hasCode(err, ErrCodeNoOutput) }

// IsDeadlockError returns true if err reports a stalled proc network.
func IsDeadlockError(err error) bool { return hasCode(err, ErrCodeDeadlock) }

// IsTimeoutError returns true if err reports an expired context.
func IsTimeoutError(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsOutOfRangeError returns true if err reports an out of range memory
// access.
func IsOutOfRangeError(err error) bool { return hasCode(err, ErrCodeOutOfRange) }

// IsPreconditionError returns true if err reports a protocol violation.
func IsPreconditionError(err error) bool { return hasCode(err, ErrCodeFailedPrecondition) }

func newMalformedInputError(format string, args ...any) *SimError {
	return &SimError{Code: ErrCodeMalformedInput, Message: fmt.Sprintf(format, args...)}
}

func newInvariantError(format string, args ...any) *SimError {
	return &SimError{Code: ErrCodeInvariantViolation, Message: fmt.Sprintf(format, args...)}
}

// NewAssertionError creates a SimError listing fired assertion messages.
func NewAssertionError(cycle int64, messages []string) *SimError {
	msg := "Assert(s) fired:\n\n"
	for i, m := range messages {
		if i > 0 {
			msg += "\n"
		}
		msg += m
	}
	return &SimError{
		Code:    ErrCodeAssertionFired,
		Message: msg,
		Cycle:   cycle,
		Details: map[string]string{"count": fmt.Sprintf("%d", len(messages))},
	}
}

// NewNoOutputError creates a SimError for a block that idled past limit
// cycles.
func NewNoOutputError(cycle, limit, idle int64) *SimError {
	return &SimError{
		Code:    ErrCodeNoOutput,
		Message: fmt.Sprintf("Block didn't produce output for %d cycles", limit),
		Cycle:   cycle,
		Details: map[string]string{
			"idle_cycles":     fmt.Sprintf("%d", idle),
			"max_idle_cycles": fmt.Sprintf("%d", limit),
		},
	}
}

// NewDeadlockError creates a SimError for a tick without progress.
func NewDeadlockError(tick int64, waiting []string) *SimError {
	details := map[string]string{}
	for _, ch := range waiting {
		details[ch] = "waiting"
	}
	return &SimError{
		Code:    ErrCodeDeadlock,
		Message: fmt.Sprintf("no proc made progress in tick %d while outputs were still expected", tick),
		Cycle:   tick,
		Details: details,
	}
}

func newTimeoutError(ctx context.Context, cycle int64) *SimError {
	return &SimError{
		Code:    ErrCodeTimeout,
		Message: fmt.Sprintf("simulation stopped at cycle %d", cycle),
		Cycle:   cycle,
		Err:     ctx.Err(),
	}
}
