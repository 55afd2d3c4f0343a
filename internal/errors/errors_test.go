package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name:     "with wrapped error",
			appError: NewFetchError("failed to fetch https://example.com/a.json", errors.New("connection refused")),
			expected: "fetch: failed to fetch https://example.com/a.json: connection refused",
		},
		{
			name:     "without wrapped error",
			appError: NewParsingError("JSON syntax error at offset 3", nil),
			expected: "parsing: JSON syntax error at offset 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appError.Error())
		})
	}
}

func TestAppError_UnwrapAndIs(t *testing.T) {
	err := NewParsingError("document too deep", ErrTooDeep)

	assert.ErrorIs(t, err, ErrTooDeep)
	assert.True(t, errors.Is(err, &AppError{Type: ErrorTypeParsing}))
	assert.False(t, errors.Is(err, &AppError{Type: ErrorTypeStorage}))
	assert.False(t, err.Is(errors.New("plain")))

	wrapped := fmt.Errorf("loading: %w", err)
	assert.Equal(t, ErrorTypeParsing, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err      *AppError
		expected ErrorType
	}{
		{NewInputError("m", cause), ErrorTypeInput},
		{NewParsingError("m", cause), ErrorTypeParsing},
		{NewFetchError("m", cause), ErrorTypeFetch},
		{NewStorageError("m", cause), ErrorTypeStorage},
		{NewConfigError("m", cause), ErrorTypeConfig},
		{NewRenderError("m", cause), ErrorTypeRender},
		{NewOutputError("m", cause), ErrorTypeOutput},
	}
	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Type)
			assert.Equal(t, "m", tt.err.Message)
			assert.Equal(t, cause, tt.err.Err)
		})
	}
}

func TestUserFriendlyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"input", NewInputError("file path is empty", nil), "Input error: file path is empty"},
		{"parsing", NewParsingError("JSON syntax error at offset 12", ErrInvalidJSON), "JSON parsing error: JSON syntax error at offset 12"},
		{"fetch", NewFetchError("GET returned 404", ErrFetchStatus), "Fetch error: GET returned 404"},
		{"storage", NewStorageError("key missing", ErrNotFound), "Storage error: key missing"},
		{"config", NewConfigError("bad backend", nil), "Configuration error: bad backend"},
		{"render", NewRenderError("template failed", nil), "Render error: template failed"},
		{"output", NewOutputError("stdout closed", nil), "Output error: stdout closed"},
		{"unknown type", &AppError{Type: ErrorTypeUnknown, Message: "odd"}, "Error: odd"},
		{"sentinel empty", ErrEmptyInput, "Error: The input is empty. Please provide valid JSON data."},
		{"sentinel invalid", ErrInvalidJSON, "Error: The input contains invalid JSON. Please check your JSON syntax."},
		{"sentinel not found", fmt.Errorf("x: %w", ErrNotFound), "Error: No stored document exists under that key."},
		{"plain", errors.New("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserFriendlyError(tt.err))
		})
	}
}
