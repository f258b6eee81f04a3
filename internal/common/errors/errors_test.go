// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatIncludesCode(t *testing.T) {
	err := NewTransportError("first_available_slot", fmt.Errorf("connection refused"))

	assert.Contains(t, err.Error(), "TRANSPORT_ERROR")
	assert.Contains(t, err.Error(), "first_available_slot")
	assert.Equal(t, "connection refused", err.Details)
}

func TestRetryability(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"transport is retryable", NewTransportError("op", fmt.Errorf("x")), true},
		{"slot not found is retryable", NewSlotNotFoundError("2024-08-01"), true},
		{"create failure is retryable", NewAppointmentCreateFailedError("RO-1", fmt.Errorf("x")), true},
		{"notification failure is retryable", NewNotificationFailedError("TEXT", fmt.Errorf("x")), true},
		{"data error is not", NewDataError("customerUuid", ""), false},
		{"dealer not configured is not", NewDealerNotConfiguredError("501"), false},
		{"sender lookup miss is not", NewSenderLookupMissError("dept-1"), false},
		{"template parse is not", NewTemplateParseFailedError("text", fmt.Errorf("x")), false},
		{"ledger io is not", NewLedgerIOError("load", fmt.Errorf("x")), false},
		{"report write is not", NewReportWriteFailedError("csv", fmt.Errorf("x")), false},
		{"plain error is not", fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "TRANSPORT", GetErrorCategory(ErrCodeTransport))
	assert.Equal(t, "SCHEDULING", GetErrorCategory(ErrCodeSlotNotFound))
	assert.Equal(t, "SCHEDULING", GetErrorCategory(ErrCodeDealerNotConfigured))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeSenderLookupMiss))
	assert.Equal(t, "LEDGER", GetErrorCategory(ErrCodeLedgerIO))
	assert.Equal(t, "REPORT", GetErrorCategory(ErrCodeReportWriteFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeData))
}
