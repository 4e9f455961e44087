package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "invalid input")

	if err.Code != CodeValidation {
		t.Errorf("expected code=%s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "invalid input" {
		t.Errorf("expected message='invalid input', got %s", err.Message)
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "simple error",
			err:      New(CodeValidation, "invalid"),
			contains: []string{"VALIDATION_ERROR", "invalid"},
		},
		{
			name: "error with op",
			err: &Error{
				Code:    CodeSubmit,
				Message: "server rejected workflow",
				Op:      "renderclient.submit",
			},
			contains: []string{"renderclient.submit", "SUBMIT_FAILED", "server rejected workflow"},
		},
		{
			name: "error with underlying",
			err: &Error{
				Code:    CodeInternal,
				Message: "wrapper",
				Err:     fmt.Errorf("underlying error"),
			},
			contains: []string{"wrapper", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected error string to contain %q, got: %s", c, str)
				}
			}
		})
	}
}

func TestWrapPreservesCode(t *testing.T) {
	original := Timeout("render wait")
	wrapped := Wrap(original, "queue.run", "job settled with error")

	if wrapped.Code != CodeTimeout {
		t.Errorf("expected preserved code TIMEOUT, got %s", wrapped.Code)
	}
	if !Is(wrapped, original) {
		t.Error("expected wrapped error to unwrap to original")
	}
	if !IsTimeout(wrapped) {
		t.Error("expected IsTimeout on wrapped error")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "msg") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if WrapWithCode(nil, CodeSubmit, "op", "msg") != nil {
		t.Error("WrapWithCode(nil) should return nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, 400},
		{CodeBadRequest, 400},
		{CodeNotFound, 404},
		{CodeSubmit, 502},
		{CodeExecution, 502},
		{CodeUnavailable, 503},
		{CodeChannel, 503},
		{CodeTimeout, 504},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := (&Error{Code: tt.code}).HTTPStatus(); got != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, got)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("parameters.prompt", "missing required parameter")

	fields := GetFields(err)
	if fields["field"] != "parameters.prompt" {
		t.Errorf("expected field context, got %v", fields)
	}
	if !IsValidation(err) {
		t.Error("expected validation error")
	}
}

func TestGetCodeOnForeignError(t *testing.T) {
	if GetCode(fmt.Errorf("plain")) != CodeInternal {
		t.Error("plain errors should map to INTERNAL_ERROR")
	}
	if GetHTTPStatus(fmt.Errorf("plain")) != 500 {
		t.Error("plain errors should map to status 500")
	}
}

func TestExecutionMessage(t *testing.T) {
	err := Execution("CUDA out of memory")
	if !strings.Contains(err.Message, "Execution error: CUDA out of memory") {
		t.Errorf("unexpected message: %s", err.Message)
	}
}
