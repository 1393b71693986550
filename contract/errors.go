package contract

import (
	"errors"
	"fmt"
)

// Code classifies why a call was rejected so a client can decide whether to
// re-read state and retry or to give up.
type Code string

const (
	CodeInvalidPayment    Code = "INVALID_PAYMENT"
	CodeTimerNotExpired   Code = "TIMER_NOT_EXPIRED"
	CodeTimerExpired      Code = "TIMER_EXPIRED"
	CodeNothingToClaim    Code = "NOTHING_TO_CLAIM"
	CodeGameInactive      Code = "GAME_INACTIVE"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidArgs       Code = "INVALID_ARGS"
	CodeNotDeployed       Code = "NOT_DEPLOYED"
	CodeAlreadyDeployed   Code = "ALREADY_DEPLOYED"
	CodeOverflow          Code = "OVERFLOW"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeCorruptState      Code = "CORRUPT_STATE"
	CodeUnknownMethod     Code = "UNKNOWN_METHOD"
)

// Error is a rejected contract call. Two errors are equal under errors.Is
// when their codes match, so the sentinels below work for any message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidPayment    = &Error{Code: CodeInvalidPayment, Message: "invalid payment"}
	ErrTimerNotExpired   = &Error{Code: CodeTimerNotExpired, Message: "timer not expired"}
	ErrTimerExpired      = &Error{Code: CodeTimerExpired, Message: "timer expired, claim first"}
	ErrNothingToClaim    = &Error{Code: CodeNothingToClaim, Message: "nothing to claim"}
	ErrGameInactive      = &Error{Code: CodeGameInactive, Message: "game is not active"}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidArgs       = &Error{Code: CodeInvalidArgs, Message: "invalid arguments"}
	ErrNotDeployed       = &Error{Code: CodeNotDeployed, Message: "contract not initialized"}
	ErrAlreadyDeployed   = &Error{Code: CodeAlreadyDeployed, Message: "contract already initialized"}
	ErrOverflow          = &Error{Code: CodeOverflow, Message: "amount overflow"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrCorruptState      = &Error{Code: CodeCorruptState, Message: "corrupt state"}
	ErrUnknownMethod     = &Error{Code: CodeUnknownMethod, Message: "unknown method"}
)

// CodeOf returns the code of a contract error, or "" for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
