// Package errs defines the error taxonomy shared by the acquisition pipeline,
// the deviation engine and the batch runner.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptySeries   = errors.New("empty price series")
	ErrDuplicateDate = errors.New("duplicate date in price series")
	ErrZeroAverage   = errors.New("moving average is zero")
	ErrEmptyPayload  = errors.New("provider returned no rows")
)

// baseError carries a message and an optional cause.
type baseError struct {
	Message string
	Cause   error
}

func (e *baseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *baseError) Unwrap() error {
	return e.Cause
}

// ConfigurationError aborts the whole run.
type ConfigurationError struct{ baseError }

func NewConfigurationError(cause error, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{baseError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// TransientProviderError is a single failed provider call. The pipeline retries it.
type TransientProviderError struct {
	baseError
	Provider string
	Attempt  int
}

func NewTransientProviderError(provider string, attempt int, cause error) *TransientProviderError {
	return &TransientProviderError{
		baseError: baseError{Message: fmt.Sprintf("provider %s attempt %d failed", provider, attempt), Cause: cause},
		Provider:  provider,
		Attempt:   attempt,
	}
}

// ProviderAttempt is the outcome of one exhausted provider within an AcquisitionFailure.
type ProviderAttempt struct {
	Provider string
	Attempts int
	LastErr  error
}

// AcquisitionFailure means every candidate provider was exhausted for one index.
// The index is skipped; the batch continues.
type AcquisitionFailure struct {
	baseError
	Index     string
	Providers []ProviderAttempt
}

func NewAcquisitionFailure(index string, providers []ProviderAttempt) *AcquisitionFailure {
	parts := make([]string, 0, len(providers))
	for _, p := range providers {
		parts = append(parts, fmt.Sprintf("%s(%d): %v", p.Provider, p.Attempts, p.LastErr))
	}
	var cause error
	if len(providers) > 0 {
		cause = providers[len(providers)-1].LastErr
	}
	msg := fmt.Sprintf("acquisition failed for %s", index)
	if len(parts) > 0 {
		msg += " [" + strings.Join(parts, "; ") + "]"
	} else {
		msg += " [no candidate providers]"
	}
	return &AcquisitionFailure{
		baseError: baseError{Message: msg, Cause: cause},
		Index:     index,
		Providers: providers,
	}
}

// ComputationError describes a point or series the deviation engine cannot
// turn into a valid number.
type ComputationError struct {
	baseError
	Date time.Time
}

func NewComputationError(date time.Time, cause error) *ComputationError {
	msg := "deviation computation"
	if !date.IsZero() {
		msg = fmt.Sprintf("deviation computation at %s", date.Format("2006-01-02"))
	}
	return &ComputationError{baseError: baseError{Message: msg, Cause: cause}, Date: date}
}

// IsConfiguration reports whether err is fatal to the run.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
