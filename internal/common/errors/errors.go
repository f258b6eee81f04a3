// Package errors provides standardized error handling for the NSA scheduling run.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	ErrCodeData      ErrorCode = "DATA_ERROR"

	ErrCodeSlotNotFound            ErrorCode = "SLOT_NOT_FOUND"
	ErrCodeAppointmentCreateFailed ErrorCode = "APPOINTMENT_CREATE_FAILED"
	ErrCodeDealerNotConfigured     ErrorCode = "DEALER_NOT_CONFIGURED"

	ErrCodeTemplateParseFailed ErrorCode = "TEMPLATE_PARSE_FAILED"
	ErrCodeSenderLookupMiss    ErrorCode = "SENDER_LOOKUP_MISS"
	ErrCodeNotificationFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeLedgerIO          ErrorCode = "LEDGER_IO_ERROR"
	ErrCodeReportWriteFailed ErrorCode = "REPORT_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTransportError creates a retryable vendor transport error.
func NewTransportError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   fmt.Sprintf("Vendor API call '%s' failed", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataError creates a non-retryable error for a missing required identifier.
// It fails closed before any network call is made.
func NewDataError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeData,
		Message:   fmt.Sprintf("Required field '%s' is missing", field),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSlotNotFoundError creates a retryable no-slot-available error.
func NewSlotNotFoundError(targetDate string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSlotNotFound,
		Message:   "No available slot found for target date",
		Details:   fmt.Sprintf("targetDate: %s", targetDate),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAppointmentCreateFailedError creates a retryable appointment creation error.
func NewAppointmentCreateFailedError(roNumber string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAppointmentCreateFailed,
		Message:   "Appointment creation failed",
		Details:   fmt.Sprintf("roNumber: %s, error: %s", roNumber, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDealerNotConfiguredError creates a non-retryable configuration error.
func NewDealerNotConfiguredError(dealerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDealerNotConfigured,
		Message:   "Dealer not present in configuration",
		Details:   fmt.Sprintf("dealerId: %s", dealerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateParseFailedError creates a non-retryable template parse error.
// Callers degrade to raw-template rendering rather than aborting.
func NewTemplateParseFailedError(kind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateParseFailed,
		Message:   "Template parse failed, falling back to raw body",
		Details:   fmt.Sprintf("kind: %s, error: %s", kind, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSenderLookupMissError creates a non-retryable default-sender lookup miss.
func NewSenderLookupMissError(departmentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSenderLookupMiss,
		Message:   "No default dealer associate resolvable for department",
		Details:   fmt.Sprintf("departmentId: %s", departmentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationFailedError creates a per-channel notification send error.
func NewNotificationFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerIOError creates a ledger store error. Load failures degrade to an
// empty in-memory ledger with a warning and never abort the run.
func NewLedgerIOError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerIO,
		Message:   fmt.Sprintf("Ledger store %s failed", operation),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportWriteFailedError creates a report output error.
func NewReportWriteFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportWriteFailed,
		Message:   fmt.Sprintf("Report write to %s failed", sink),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSPORT"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "SLOT") || strings.Contains(codeStr, "APPOINTMENT") || strings.Contains(codeStr, "DEALER"):
		return "SCHEDULING"
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "SENDER") || strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "LEDGER"):
		return "LEDGER"
	case strings.Contains(codeStr, "REPORT"):
		return "REPORT"
	case strings.Contains(codeStr, "DATA"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
