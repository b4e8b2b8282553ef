// Package errors provides standardized error handling shared by the API, CLI and job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kurio/internal/common/rag"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeQuestionInvalid     ErrorCode = "QUESTION_INVALID"
	ErrCodeRAGTimeout          ErrorCode = "RAG_TIMEOUT"
	ErrCodeRAGConnectionFailed ErrorCode = "RAG_CONNECTION_FAILED"
	ErrCodeRAGServerError      ErrorCode = "RAG_SERVER_ERROR"
	ErrCodeRequestCanceled     ErrorCode = "REQUEST_CANCELED"

	ErrCodeEntryValidationFailed ErrorCode = "ENTRY_VALIDATION_FAILED"
	ErrCodeDatabaseInsertFailed  ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDatabaseQueryFailed   ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeSearchQueryFailed     ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeFinancialsNotFound ErrorCode = "FINANCIALS_NOT_FOUND"
	ErrCodeSECRequestFailed   ErrorCode = "SEC_REQUEST_FAILED"

	ErrCodeContentNotConfigured ErrorCode = "CONTENT_NOT_CONFIGURED"
	ErrCodeContentRequestFailed ErrorCode = "CONTENT_REQUEST_FAILED"

	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewQuestionInvalidError creates a non-retryable input error.
func NewQuestionInvalidError(message string) *StandardError {
	return newError(ErrCodeQuestionInvalid, message, "", false, nil)
}

// NewEntryValidationFailedError creates a non-retryable submission error.
func NewEntryValidationFailedError(details string) *StandardError {
	return newError(ErrCodeEntryValidationFailed, "Entry validation failed", details, false, nil)
}

// NewDatabaseInsertFailedError creates a retryable insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert error", detailsOf(err), true, err)
}

// NewDatabaseQueryFailedError creates a retryable query error.
func NewDatabaseQueryFailedError(queryType string, err error) *StandardError {
	details := fmt.Sprintf("queryType: %s, error: %s", queryType, detailsOf(err))
	return newError(ErrCodeDatabaseQueryFailed, "Database query error", details, true, err)
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	details := fmt.Sprintf("index: %s, error: %s", index, detailsOf(err))
	return newError(ErrCodeSearchQueryFailed, "Search query error", details, true, err)
}

// NewFinancialsNotFoundError creates a non-retryable lookup error.
func NewFinancialsNotFoundError(message string) *StandardError {
	return newError(ErrCodeFinancialsNotFound, message, "", false, nil)
}

// NewSECRequestFailedError creates a retryable upstream error.
func NewSECRequestFailedError(err error) *StandardError {
	return newError(ErrCodeSECRequestFailed, "Unexpected server error: "+detailsOf(err), detailsOf(err), true, err)
}

// NewContentNotConfiguredError creates a non-retryable configuration error.
func NewContentNotConfiguredError() *StandardError {
	return newError(ErrCodeContentNotConfigured, "Content API is not configured", "", false, nil)
}

// NewContentRequestFailedError creates a retryable upstream error.
func NewContentRequestFailedError(err error) *StandardError {
	return newError(ErrCodeContentRequestFailed, "Content API request failed", detailsOf(err), true, err)
}

// NewAuthenticationFailedError creates a non-retryable auth error.
func NewAuthenticationFailedError(details string) *StandardError {
	return newError(ErrCodeAuthenticationFailed, "Authentication failed", details, false, nil)
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	details := fmt.Sprintf("channel: %s, error: %s", channel, detailsOf(err))
	return newError(ErrCodeNotificationSendFailed, "Notification send error", details, true, err)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(err), false, err)
}

// FromRAG maps a query client failure onto the standard taxonomy. The client
// message is kept verbatim since it is shown to end users.
func FromRAG(err error) *StandardError {
	var ragErr *rag.Error
	if !stderrors.As(err, &ragErr) {
		if stderrors.Is(err, rag.ErrCanceled) {
			return newError(ErrCodeRequestCanceled, "Request canceled", detailsOf(err), false, err)
		}
		return NewInternalError(err)
	}

	var code ErrorCode
	switch ragErr.Kind {
	case rag.KindValidation:
		code = ErrCodeQuestionInvalid
	case rag.KindTimeout:
		code = ErrCodeRAGTimeout
	case rag.KindConnection:
		code = ErrCodeRAGConnectionFailed
	default:
		code = ErrCodeRAGServerError
	}

	stdErr := newError(code, ragErr.Message, detailsOf(ragErr.Err), ragErr.Transient(), err)
	if ragErr.Endpoint != "" {
		stdErr.WithMetadata("endpoint", ragErr.Endpoint)
	}
	if ragErr.StatusCode != 0 {
		stdErr.WithMetadata("statusCode", ragErr.StatusCode)
	}
	return stdErr
}

// AsStandardError returns err as a StandardError, wrapping unknown errors as internal.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	var ragErr *rag.Error
	if stderrors.As(err, &ragErr) || stderrors.Is(err, rag.ErrCanceled) {
		return FromRAG(err)
	}
	return NewInternalError(err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseInsertFailed,
		ErrCodeDatabaseQueryFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeContentRequestFailed:
		return 3 // Retryable technical errors

	case ErrCodeSECRequestFailed,
		ErrCodeRAGConnectionFailed:
		return 2

	case ErrCodeRAGTimeout:
		return 1 // the client already retried internally

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps a code to the status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeQuestionInvalid, ErrCodeEntryValidationFailed:
		return http.StatusBadRequest
	case ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case ErrCodeFinancialsNotFound:
		return http.StatusNotFound
	case ErrCodeRAGTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeRAGConnectionFailed, ErrCodeRAGServerError, ErrCodeContentRequestFailed:
		return http.StatusBadGateway
	case ErrCodeContentNotConfigured:
		return http.StatusServiceUnavailable
	case ErrCodeRequestCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "RAG") || code == ErrCodeQuestionInvalid:
		return "RAG"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "SEARCH"):
		return "STORAGE"
	case strings.Contains(codeStr, "FINANCIALS") || strings.Contains(codeStr, "SEC"):
		return "FINANCIALS"
	case strings.Contains(codeStr, "CONTENT"):
		return "CONTENT"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
