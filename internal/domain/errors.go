package domain

import "errors"

// ErrorCode classifies a failure reported to callers
type ErrorCode string

const (
	CodeValidation        ErrorCode = "validation_error"    // Malformed or policy-violating input
	CodeAuth              ErrorCode = "auth_error"          // Credential mismatch
	CodeNotVerified       ErrorCode = "not_verified"        // Account email not confirmed yet
	CodeInvalidCode       ErrorCode = "invalid_code"        // Wrong, expired or used one-time code
	CodeInsufficientFunds ErrorCode = "insufficient_funds"  // Balance too low
	CodeNotFound          ErrorCode = "not_found"           // Missing referenced entity
	CodeTransaction       ErrorCode = "transaction_failure" // Persistence failure mid-flow
	CodeDelivery          ErrorCode = "delivery_failure"    // Mail could not be sent
)

// Error is a structured failure: a code plus a human-readable message
type Error struct {
	Code    ErrorCode // Failure class
	Message string    // Safe to show to the client
	Err     error     // Underlying cause, for logs only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrValidation        = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrAuth              = &Error{Code: CodeAuth, Message: "invalid username or password"}
	ErrNotVerified       = &Error{Code: CodeNotVerified, Message: "your account is not verified"}
	ErrInvalidCode       = &Error{Code: CodeInvalidCode, Message: "invalid or expired code"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds in your wallet"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrTransaction       = &Error{Code: CodeTransaction, Message: "transaction failed"}
	ErrDelivery          = &Error{Code: CodeDelivery, Message: "email could not be delivered"}
)

// Validation builds a validation error with a specific message
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// NotFound builds a not-found error naming the missing entity
func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

// TransactionFailure wraps a persistence error
func TransactionFailure(msg string, err error) *Error {
	return &Error{Code: CodeTransaction, Message: msg, Err: err}
}

// DeliveryFailure wraps a mail transport error
func DeliveryFailure(msg string, err error) *Error {
	return &Error{Code: CodeDelivery, Message: msg, Err: err}
}

// CodeOf returns the code of err, or CodeTransaction for foreign errors
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeTransaction
}

// MessageOf returns the client-safe message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrTransaction.Message
}
