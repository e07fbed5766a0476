package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier handed to the HTTP layer.
type Code string

const (
	// Validation errors
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidDomain     Code = "INVALID_DOMAIN"
	CodeInvalidIP         Code = "INVALID_IP"
	CodeBatchSizeExceeded Code = "BATCH_SIZE_EXCEEDED"
	CodeEmptyBatch        Code = "EMPTY_BATCH"

	// Upstream timeout errors
	CodeTimeout     Code = "TIMEOUT_ERROR"
	CodeRDAPTimeout Code = "RDAP_TIMEOUT"

	// Upstream unavailable errors
	CodeHostUnreachable Code = "HOST_UNREACHABLE"
	CodeSSLNotAvailable Code = "SSL_NOT_AVAILABLE"
	CodeDomainNotFound  Code = "DOMAIN_NOT_FOUND"

	// Lookup and probe failures
	CodeDNSLookupFailed   Code = "DNS_LOOKUP_FAILED"
	CodeHTTPCheckFailed   Code = "HTTP_CHECK_FAILED"
	CodeSSLCheckFailed    Code = "SSL_CHECK_FAILED"
	CodeWHOISLookupFailed Code = "WHOIS_LOOKUP_FAILED"
	CodeRDAPParseFailed   Code = "RDAP_PARSE_FAILED"

	// Startup errors
	CodeBootstrapLoadFailed Code = "BOOTSTRAP_LOAD_FAILED"

	CodeInternal Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation:          http.StatusBadRequest,
	CodeInvalidDomain:       http.StatusBadRequest,
	CodeInvalidIP:           http.StatusBadRequest,
	CodeBatchSizeExceeded:   http.StatusBadRequest,
	CodeEmptyBatch:          http.StatusBadRequest,
	CodeTimeout:             http.StatusRequestTimeout,
	CodeRDAPTimeout:         http.StatusRequestTimeout,
	CodeHostUnreachable:     http.StatusServiceUnavailable,
	CodeSSLNotAvailable:     http.StatusServiceUnavailable,
	CodeDomainNotFound:      http.StatusNotFound,
	CodeDNSLookupFailed:     http.StatusNotFound,
	CodeHTTPCheckFailed:     http.StatusInternalServerError,
	CodeSSLCheckFailed:      http.StatusInternalServerError,
	CodeWHOISLookupFailed:   http.StatusBadGateway,
	CodeRDAPParseFailed:     http.StatusInternalServerError,
	CodeBootstrapLoadFailed: http.StatusInternalServerError,
	CodeInternal:            http.StatusInternalServerError,
}

// Status returns the HTTP-shaped status associated with the code.
func (c Code) Status() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DiagError is the error contract between the diagnostics engine and its callers.
// Message is always safe to show to end users; the underlying cause is only
// reachable through Unwrap and is never rendered by Error.
type DiagError struct {
	Code    Code           `json:"code"`
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

// New creates a DiagError with the status derived from code.
func New(code Code, message string) *DiagError {
	return &DiagError{
		Code:    code,
		Status:  code.Status(),
		Message: message,
	}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(code Code, format string, args ...any) *DiagError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a DiagError that keeps cause for errors.Is/As and logging.
func Wrap(code Code, message string, cause error) *DiagError {
	e := New(code, message)
	e.cause = cause
	return e
}

func (e *DiagError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DiagError) Unwrap() error {
	return e.cause
}

// Is matches any DiagError carrying the same code, so sentinels below work with errors.Is.
func (e *DiagError) Is(target error) bool {
	var other *DiagError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithDetail attaches a structured detail and returns the receiver.
func (e *DiagError) WithDetail(key string, value any) *DiagError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation          = New(CodeValidation, "validation error")
	ErrInvalidDomain       = New(CodeInvalidDomain, "invalid domain")
	ErrInvalidIP           = New(CodeInvalidIP, "invalid IP address")
	ErrBatchSizeExceeded   = New(CodeBatchSizeExceeded, "batch size exceeded")
	ErrEmptyBatch          = New(CodeEmptyBatch, "batch is empty")
	ErrTimeout             = New(CodeTimeout, "operation timed out")
	ErrRDAPTimeout         = New(CodeRDAPTimeout, "RDAP query timed out")
	ErrHostUnreachable     = New(CodeHostUnreachable, "host unreachable")
	ErrSSLNotAvailable     = New(CodeSSLNotAvailable, "SSL not available")
	ErrDomainNotFound      = New(CodeDomainNotFound, "domain not found")
	ErrDNSLookupFailed     = New(CodeDNSLookupFailed, "DNS lookup failed")
	ErrHTTPCheckFailed     = New(CodeHTTPCheckFailed, "HTTP check failed")
	ErrSSLCheckFailed      = New(CodeSSLCheckFailed, "SSL check failed")
	ErrWHOISLookupFailed   = New(CodeWHOISLookupFailed, "WHOIS lookup failed")
	ErrRDAPParseFailed     = New(CodeRDAPParseFailed, "RDAP response could not be parsed")
	ErrBootstrapLoadFailed = New(CodeBootstrapLoadFailed, "RDAP bootstrap data could not be loaded")
)

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var de *DiagError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// StatusOf returns the HTTP-shaped status of err.
func StatusOf(err error) int {
	var de *DiagError
	if stderrors.As(err, &de) {
		return de.Status
	}
	return http.StatusInternalServerError
}

// SafeMessage returns a message suitable for end users; foreign errors are masked.
func SafeMessage(err error) string {
	var de *DiagError
	if stderrors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
