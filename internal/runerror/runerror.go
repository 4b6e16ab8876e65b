package runerror

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrSchema       ErrorCode = "SCHEMA_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrStore        ErrorCode = "STORE_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// RunError is the structured error surfaced when a run aborts. Source names
// the feed that caused the failure so the message can point the user at the
// offending upload.
type RunError struct {
	Code    ErrorCode   `json:"code"`
	Source  string      `json:"source,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e RunError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Source, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewRunError(code ErrorCode, message string, details interface{}) RunError {
	logrus.Error(details)
	return RunError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Schema builds the fatal error for a required field that could not be
// resolved at all in a source table.
func Schema(source, field string) RunError {
	return RunError{
		Code:    ErrSchema,
		Source:  source,
		Message: fmt.Sprintf("required field %q could not be resolved in the %s feed", field, source),
	}
}

// IsSchema reports whether err is a fatal schema-resolution failure.
func IsSchema(err error) bool {
	var re RunError
	if errors.As(err, &re) {
		return re.Code == ErrSchema
	}
	return false
}
