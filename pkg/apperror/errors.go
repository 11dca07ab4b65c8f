package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client in release mode)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Caller input ----

// Validation returns a 400 error with field-level detail in the message.
func Validation(message string) *AppError {
	return New("VALIDATION_ERROR", message, http.StatusBadRequest)
}

// ErrInvalidPayload is returned when a webhook body carries no usable
// session identifier.
func ErrInvalidPayload() *AppError {
	return New("INVALID_PAYLOAD", "No session identifier found in payload", http.StatusBadRequest)
}

// ---- Webhook security ----

func ErrUnauthorized() *AppError {
	return New("UNAUTHORIZED", "Invalid or missing notification secret", http.StatusUnauthorized)
}

// ---- Lookups ----

func ErrNotFound(entity string) *AppError {
	return New("SESSION_NOT_FOUND", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Payment gateway ----

// ErrGateway wraps a payment-gateway rejection or transport failure.
func ErrGateway(explanation string, err error) *AppError {
	return Wrap("GATEWAY_ERROR", explanation, http.StatusInternalServerError, err)
}

// ---- Carrier ----

// ErrQuoteUnavailable aborts session creation when the carrier cost quote
// fails or returns a non-numeric value.
func ErrQuoteUnavailable(err error) *AppError {
	return Wrap("QUOTE_UNAVAILABLE", "Carrier cost quote unavailable", http.StatusInternalServerError, err)
}

// ErrShipmentRejected carries the carrier's status-reference message for a
// semantic (non-transport) rejection. Not retried.
func ErrShipmentRejected(statusRef string) *AppError {
	return New("SHIPMENT_FAILED", fmt.Sprintf("Carrier rejected shipment: %s", statusRef), http.StatusInternalServerError)
}

// ErrShipmentFailed wraps any other shipment-creation failure surfaced to
// the webhook caller after a successful payment.
func ErrShipmentFailed(err error) *AppError {
	return Wrap("SHIPMENT_FAILED", "Shipment creation failed", http.StatusInternalServerError, err)
}

// ErrCarrierUnavailable wraps an exhausted-carrier failure for operations
// other than shipment creation (e.g., tracking lookup).
func ErrCarrierUnavailable(err error) *AppError {
	return Wrap("CARRIER_UNAVAILABLE", "Shipping carrier unavailable", http.StatusInternalServerError, err)
}

// ErrNoShipment is returned when tracking is requested for a session that
// has no allocated tracking number.
func ErrNoShipment() *AppError {
	return New("SHIPMENT_NOT_FOUND", "Session has no shipment", http.StatusNotFound)
}

// ---- System & deployment ----

func ErrConfiguration(detail string) *AppError {
	return New("CONFIGURATION_ERROR", detail, http.StatusInternalServerError)
}

// InternalError wraps an unexpected internal error.
func InternalError(err error) *AppError {
	return Wrap("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError, err)
}
