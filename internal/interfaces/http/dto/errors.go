package dto

import "net/http"

// Error code constants, format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState             = "ERR_INVALID_STATE"
	ErrCodeDuplicateCharge          = "ERR_DUPLICATE_CHARGE"
	ErrCodeAmountMismatch           = "ERR_AMOUNT_MISMATCH"
	ErrCodeAllocationExceedsBalance = "ERR_ALLOCATION_EXCEEDS_BALANCE"
	ErrCodeAlreadyVoided            = "ERR_ALREADY_VOIDED"
	ErrCodeInsufficientFunds        = "ERR_INSUFFICIENT_FUNDS"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Auth and rate limiting error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule violations are well-formed requests the ledger rejects
	ErrCodeInvalidState:             http.StatusUnprocessableEntity,
	ErrCodeDuplicateCharge:          http.StatusConflict,
	ErrCodeAmountMismatch:           http.StatusUnprocessableEntity,
	ErrCodeAllocationExceedsBalance: http.StatusUnprocessableEntity,
	ErrCodeAlreadyVoided:            http.StatusConflict,
	ErrCodeInsufficientFunds:        http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code, falling
// back to 500 for codes it does not know.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to wire-level codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                  ErrCodeNotFound,
	"ALREADY_EXISTS":             ErrCodeAlreadyExists,
	"INVALID_INPUT":              ErrCodeInvalidInput,
	"INVALID_STATE":              ErrCodeInvalidState,
	"DUPLICATE_CHARGE":           ErrCodeDuplicateCharge,
	"AMOUNT_MISMATCH":            ErrCodeAmountMismatch,
	"ALLOCATION_EXCEEDS_BALANCE": ErrCodeAllocationExceedsBalance,
	"ALREADY_VOIDED":             ErrCodeAlreadyVoided,
	"INSUFFICIENT_FUNDS":         ErrCodeInsufficientFunds,
	"CONCURRENCY_CONFLICT":       ErrCodeConcurrencyConflict,
	"UNAUTHORIZED":               ErrCodeUnauthorized,
	"FORBIDDEN":                  ErrCodeForbidden,
	"INTERNAL_ERROR":             ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the wire format.
// Codes already in the wire format, or unknown ones, pass through as-is.
func NormalizeErrorCode(code string) string {
	if wireCode, ok := DomainErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
