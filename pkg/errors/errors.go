package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport-level failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeHTTPStatus represents a non-200 response
	ErrorTypeHTTPStatus ErrorType = "http_status"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeBlocked represents a request refused by an active rate-limit block
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeStorage represents record sink errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeBrowser represents browser driver errors
	ErrorTypeBrowser ErrorType = "browser"
	// ErrorTypeCredentials represents missing login credentials
	ErrorTypeCredentials ErrorType = "credentials"
	// ErrorTypeLoginFailed represents a rejected login
	ErrorTypeLoginFailed ErrorType = "login_failed"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ProductError is the error type shared by the scrape and login programs
type ProductError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *ProductError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *ProductError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if another attempt could succeed
func (e *ProductError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeHTTPStatus, ErrorTypeParsing, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New creates a new ProductError
func New(errType ErrorType, component, message string, err error) *ProductError {
	return &ProductError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *ProductError {
	return New(ErrorTypeNetwork, component, message, err)
}

// NewHTTPStatus creates a new error for an unexpected status code
func NewHTTPStatus(component string, status int) *ProductError {
	return New(ErrorTypeHTTPStatus, component, fmt.Sprintf("unexpected status code: %d", status), nil)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *ProductError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(component, retryAfter string) *ProductError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, component, message, nil)
}

// NewBlocked creates an error for a request skipped during a rate-limit block
func NewBlocked(component string, remaining time.Duration) *ProductError {
	message := fmt.Sprintf("requests blocked for %v", remaining)
	return New(ErrorTypeBlocked, component, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(component, message string, err error) *ProductError {
	return New(ErrorTypeStorage, component, message, err)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *ProductError {
	return New(ErrorTypeCache, component, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(component, message string, err error) *ProductError {
	return New(ErrorTypePublisher, component, message, err)
}

// NewBrowser creates a new browser error
func NewBrowser(component, message string, err error) *ProductError {
	return New(ErrorTypeBrowser, component, message, err)
}

// NewCredentials creates a new credentials error
func NewCredentials(message string) *ProductError {
	return New(ErrorTypeCredentials, "login", message, nil)
}

// NewLoginFailed creates a new login failure error
func NewLoginFailed(location string) *ProductError {
	return New(ErrorTypeLoginFailed, "login", "still on login page: "+location, nil)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *ProductError {
	return New(ErrorTypeValidation, component, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ProductError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// TypeOf returns the ErrorType of the first ProductError in err's chain,
// or an empty string if there is none
func TypeOf(err error) ErrorType {
	var pe *ProductError
	if stderrors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

// IsType reports whether err's chain holds a ProductError of the given type
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// IsRetryable reports whether err is worth another attempt.
// Errors that are not ProductErrors are treated as retryable.
func IsRetryable(err error) bool {
	var pe *ProductError
	if stderrors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return true
}
