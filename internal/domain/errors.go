package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConfigurationError reports an invalid startup configuration. These are
// fatal: they are only ever raised before the server starts serving.
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(ErrCodeConfiguration, message)
}

// NewTransientUpstreamError wraps a retryable failure from an external
// provider.
func NewTransientUpstreamError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTransientUpstream, message, err)
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeConfiguration     = "CONFIGURATION_ERROR"
	ErrCodeTransientUpstream = "TRANSIENT_UPSTREAM"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidOperation  = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is required")
	ErrInvalidQueryMode     = NewDomainError(ErrCodeValidation, "invalid query mode")
	ErrMissingPeptideName   = NewDomainError(ErrCodeValidation, "peptide name is required")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors. For the pipeline these are valid empty results that advance
// the fallback chain, never failures surfaced to callers.
var (
	ErrPeptideNotFound       = NewDomainError(ErrCodeNotFound, "peptide not found")
	ErrRestrictionNotFound   = NewDomainError(ErrCodeNotFound, "restriction not found")
	ErrAllowedDomainNotFound = NewDomainError(ErrCodeNotFound, "allowed domain not found")
	ErrNoWebContext          = NewDomainError(ErrCodeNotFound, "no web context found")
)

// Already exists errors
var (
	ErrPeptideAlreadyExists       = NewDomainError(ErrCodeAlreadyExists, "peptide already exists")
	ErrRestrictionAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "restriction already exists")
	ErrAllowedDomainAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "allowed domain already exists")
)

// Upstream errors. A transient upstream failure is retried once per stage and
// then downgraded to the stage's fallback; it never escapes the orchestrator.
var (
	ErrEmbedderUnavailable  = NewDomainError(ErrCodeTransientUpstream, "embedding provider unavailable")
	ErrSearchUnavailable    = NewDomainError(ErrCodeTransientUpstream, "web search provider unavailable")
	ErrGeneratorUnavailable = NewDomainError(ErrCodeTransientUpstream, "answer generator unavailable")
)
