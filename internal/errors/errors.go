package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// LoamError is a structured error type with context.
type LoamError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *LoamError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *LoamError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *LoamError) Is(target error) bool {
	var t *LoamError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *LoamError) WithContext(key string, value interface{}) *LoamError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *LoamError) WithLocation(filePath string, line, column int) *LoamError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *LoamError) WithComponent(component string) *LoamError {
	e.Component = component

	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *LoamError {
	return &LoamError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *LoamError {
	return &LoamError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *LoamError {
	return &LoamError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(code, message string, cause error) *LoamError {
	return &LoamError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *LoamError {
	return &LoamError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *LoamError {
	return &LoamError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var le *LoamError
	if errors.As(err, &le) {
		return le.Recoverable
	}

	return false
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	var le *LoamError
	if errors.As(err, &le) {
		return le.Type == ErrorTypeBuild
	}

	return false
}

// IsNetworkError checks if an error is network-related.
func IsNetworkError(err error) bool {
	var le *LoamError
	if errors.As(err, &le) {
		return le.Type == ErrorTypeNetwork
	}

	return false
}

// Common error codes.
const (
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeFrontMatter      = "ERR_FRONT_MATTER"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeLayoutNotFound   = "ERR_LAYOUT_NOT_FOUND"
	ErrCodeImportMapInvalid = "ERR_IMPORT_MAP_INVALID"
	ErrCodeFetchFailed      = "ERR_FETCH_FAILED"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// Helper functions for common errors

// ErrInvalidPath creates a path validation error.
func ErrInvalidPath(path string) *LoamError {
	return NewValidationError(ErrCodeInvalidPath, "invalid path: "+path)
}

// ErrPathTraversal creates a path traversal config error.
func ErrPathTraversal(path string) *LoamError {
	return NewConfigError(ErrCodePathTraversal, "path traversal attempt: "+path)
}

// ErrFrontMatter creates a front matter parse error.
func ErrFrontMatter(path string, cause error) *LoamError {
	return NewBuildError(ErrCodeFrontMatter, "invalid front matter", cause).
		WithLocation(path, 0, 0)
}

// ErrRenderFailed creates a page render error.
func ErrRenderFailed(path string, cause error) *LoamError {
	return NewBuildError(ErrCodeRenderFailed, "render failed", cause).
		WithLocation(path, 0, 0)
}

// ErrFetchFailed creates a remote fetch error.
func ErrFetchFailed(url string, cause error) *LoamError {
	return NewNetworkError(ErrCodeFetchFailed, "fetch failed: "+url, cause)
}
