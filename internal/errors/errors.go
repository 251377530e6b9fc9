// Package errors provides structured error handling for gvmrun operations.
// It defines error codes for every failure the scan lifecycle can hit and
// utilities for creating and classifying errors with context.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown              ErrorCode = "UNKNOWN"
	CodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
	CodeCanceled             ErrorCode = "CANCELED"

	// Protocol errors.
	CodeProtocol             ErrorCode = "PROTOCOL"
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"

	// Resource resolution errors.
	CodeNoPortListsAvailable   ErrorCode = "NO_PORT_LISTS_AVAILABLE"
	CodeResourceCreationFailed ErrorCode = "RESOURCE_CREATION_FAILED"

	// Task lifecycle errors.
	CodeTaskCreationFailed      ErrorCode = "TASK_CREATION_FAILED"
	CodeTaskStoppedBeforeReport ErrorCode = "TASK_STOPPED_BEFORE_REPORT"

	// Report retrieval errors.
	CodeEmptyReportBody      ErrorCode = "EMPTY_REPORT_BODY"
	CodeNoBase64PayloadFound ErrorCode = "NO_BASE64_PAYLOAD_FOUND"
	CodeBase64Decode         ErrorCode = "BASE64_DECODE"

	// Output errors.
	CodeReportWrite ErrorCode = "REPORT_WRITE"
)

// ScanError represents an error that occurred during the scan lifecycle.
type ScanError struct {
	Code     ErrorCode
	Message  string
	Resource string
	Cause    error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s (resource: %s)", e.Code, e.Message, e.Resource)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
	}
}

// NewScanErrorWithResource creates a scan error for a specific named resource.
func NewScanErrorWithResource(code ErrorCode, message, resource string) *ScanError {
	return &ScanError{
		Code:     code,
		Message:  message,
		Resource: resource,
	}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// ProtocolError represents a GMP command or transport failure.
type ProtocolError struct {
	Code       ErrorCode
	Message    string
	Command    string
	Status     string
	StatusText string
	Cause      error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("[%s] %s (command: %s, status: %s %s)",
			e.Code, e.Message, e.Command, e.Status, e.StatusText)
	}
	if e.Command != "" {
		return fmt.Sprintf("[%s] %s (command: %s)", e.Code, e.Message, e.Command)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// NewProtocolError creates a protocol error for a GMP command the server rejected.
// Credential rejection on authenticate gets its own code so callers can tell
// bad credentials from every other command failure.
func NewProtocolError(command, status, statusText string) *ProtocolError {
	code := CodeProtocol
	if command == "authenticate" {
		code = CodeAuthenticationFailed
	}
	return &ProtocolError{
		Code:       code,
		Message:    "GMP command failed",
		Command:    command,
		Status:     status,
		StatusText: statusText,
	}
}

// WrapProtocolError wraps a transport-level error as a protocol error.
func WrapProtocolError(command string, err error) *ProtocolError {
	return &ProtocolError{
		Code:    CodeProtocol,
		Message: "GMP exchange failed",
		Command: command,
		Cause:   err,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrConfigMissing creates an error for a missing required configuration value.
func ErrConfigMissing(field string) *ConfigError {
	return &ConfigError{
		Code:    CodeConfigurationMissing,
		Message: "Required environment value is not set",
		Field:   field,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(message string, err error) *ConfigError {
	return &ConfigError{
		Code:    CodeConfigurationMissing,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ScanError:
		return e.Code
	case *ProtocolError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsFatal reports whether an error should abort before any network activity.
func IsFatal(err error) bool {
	return GetCode(err) == CodeConfigurationMissing
}
