package apierror

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Error codes returned in the envelope's error.code field.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeCooldownActive     = "COOLDOWN_ACTIVE"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Error is an API failure with its HTTP status.
type Error struct {
	StatusCode int           `json:"-"`
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Details    []FieldError  `json:"details,omitempty"`
	RetryAfter time.Duration `json:"-"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type body struct {
	Code              string       `json:"code"`
	Message           string       `json:"message"`
	Details           []FieldError `json:"details,omitempty"`
	RetryAfterSeconds int          `json:"retry_after_seconds,omitempty"`
}

type envelope struct {
	Success bool `json:"success"`
	Error   body `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

// WithDetails attaches field errors.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

func (e *Error) retrySeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	// round up so clients never retry a moment too early
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

// ToJSON renders the error envelope.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(envelope{
		Error: body{
			Code:              e.Code,
			Message:           e.Message,
			Details:           e.Details,
			RetryAfterSeconds: e.retrySeconds(),
		},
	})
	return data
}

// Write sends the envelope, setting Retry-After when the error carries one.
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if s := e.retrySeconds(); s > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(s))
	}
	w.WriteHeader(e.StatusCode)
	_, _ = w.Write(e.ToJSON())
}

func newError(status int, code, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{StatusCode: status, Code: code, Message: message}
}

// BadRequest is a malformed request.
func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, CodeBadRequest, message, "Bad request")
}

// ValidationError is a well-formed request with invalid fields.
func ValidationError(message string, details ...FieldError) *Error {
	e := newError(http.StatusBadRequest, CodeValidation, message, "Validation failed")
	e.Details = details
	return e
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message, "Authentication required")
}

// Forbidden creates a 403 error.
func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, CodeForbidden, message, "Access denied")
}

// NotFound creates a 404 error.
func NotFound(message string) *Error {
	return newError(http.StatusNotFound, CodeNotFound, message, "Resource not found")
}

// Conflict creates a 409 error.
func Conflict(message string) *Error {
	return newError(http.StatusConflict, CodeConflict, message, "Conflict")
}

// Cooldown rejects a purchase made before the product's cooldown elapsed.
func Cooldown(message string, retryAfter time.Duration) *Error {
	e := newError(http.StatusTooManyRequests, CodeCooldownActive, message, "Purchase cooldown active")
	e.RetryAfter = retryAfter
	return e
}

// InsufficientStock rejects a purchase larger than the cached stock.
func InsufficientStock(message string) *Error {
	return newError(http.StatusConflict, CodeInsufficientStock, message, "Not enough stock")
}

// InternalError creates a 500 error.
func InternalError(message string) *Error {
	return newError(http.StatusInternalServerError, CodeInternal, message, "An unexpected error occurred")
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *Error {
	return newError(http.StatusServiceUnavailable, CodeServiceUnavailable, message, "Service temporarily unavailable")
}
