package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeTranslation represents translation gateway errors
	ErrorTypeTranslation ErrorType = "translation"
	// ErrorTypeStorage represents persisted state errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a typed error raised while syncing a source
type CrawlerError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CrawlerError of the same type.
// A bare &CrawlerError{Type: ErrorTypeRateLimit} works as a sentinel with errors.Is.
func (e *CrawlerError) Is(target error) bool {
	t, ok := target.(*CrawlerError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Provider == "" && t.Message == ""
}

// IsRecoverable returns true if the run can continue past this error.
// Only configuration errors stop the process, and only at startup.
func (e *CrawlerError) IsRecoverable() bool {
	return e.Type != ErrorTypeConfiguration
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewTranslation creates a new translation error
func NewTranslation(message string, err error) *CrawlerError {
	return New(ErrorTypeTranslation, "", message, err)
}

// NewStorage creates a new storage error
func NewStorage(message string, err error) *CrawlerError {
	return New(ErrorTypeStorage, "", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string) *CrawlerError {
	return New(ErrorTypeValidation, provider, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// Sentinels for errors.Is checks
var (
	ErrNetwork     = &CrawlerError{Type: ErrorTypeNetwork}
	ErrParsing     = &CrawlerError{Type: ErrorTypeParsing}
	ErrRateLimit   = &CrawlerError{Type: ErrorTypeRateLimit}
	ErrTranslation = &CrawlerError{Type: ErrorTypeTranslation}
	ErrStorage     = &CrawlerError{Type: ErrorTypeStorage}
)
