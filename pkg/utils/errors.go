package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ResponseCode application error code
type ResponseCode int

const (
	CodeInvalidParam      ResponseCode = 40001
	CodeProductNotFound   ResponseCode = 40401
	CodeUserNotFound      ResponseCode = 40402
	CodePaymentNotFound   ResponseCode = 40403
	CodeStockNotEnough    ResponseCode = 40002
	CodeInternalError     ResponseCode = 50000
	CodeDatabaseError     ResponseCode = 50001
	CodeBrokerUnavailable ResponseCode = 50301
)

// AppError application error structure
type AppError struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code: %d, message: %s, error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to an HTTP status code
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidParam, CodeStockNotEnough:
		return http.StatusBadRequest
	case CodeProductNotFound, CodeUserNotFound, CodePaymentNotFound:
		return http.StatusNotFound
	case CodeBrokerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError wrap error
func WrapError(err error, code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	// Parameter errors
	ErrInvalidParam = NewError(CodeInvalidParam, "invalid parameter")

	// Record errors
	ErrProductNotFound = NewError(CodeProductNotFound, "product not found")
	ErrUserNotFound    = NewError(CodeUserNotFound, "user not found")
	ErrPaymentNotFound = NewError(CodePaymentNotFound, "payment not found")

	// Checkout errors
	ErrStockNotEnough = NewError(CodeStockNotEnough, "insufficient product quantity")

	// System errors
	ErrInternalError     = NewError(CodeInternalError, "internal server error")
	ErrDatabaseError     = NewError(CodeDatabaseError, "database error")
	ErrBrokerUnavailable = NewError(CodeBrokerUnavailable, "message broker unavailable")
)

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetErrorMessage get error message
func GetErrorMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
