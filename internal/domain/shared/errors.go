package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound                 = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput             = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState             = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrDuplicateCharge          = NewDomainError("DUPLICATE_CHARGE", "A charge already exists for this unit, concept and period")
	ErrAmountMismatch           = NewDomainError("AMOUNT_MISMATCH", "Allocation total does not match the payment amount")
	ErrAllocationExceedsBalance = NewDomainError("ALLOCATION_EXCEEDS_BALANCE", "Allocation exceeds the charge's remaining balance")
	ErrAlreadyVoided            = NewDomainError("ALREADY_VOIDED", "Payment has already been voided")
	ErrInsufficientFunds        = NewDomainError("INSUFFICIENT_FUNDS", "Insufficient cash funds available")
	ErrConcurrencyConflict      = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)
