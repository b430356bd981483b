package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response standard response structure
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// SuccessResponse returns success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// CreatedResponse returns success response with 201 status
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// ErrorResponse returns error response
func ErrorResponse(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Response{
		Code:      httpCode,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// AppErrorResponse maps an application error to its HTTP status
func AppErrorResponse(c *gin.Context, err error) {
	if appErr, ok := IsAppError(err); ok {
		ErrorResponse(c, appErr.HTTPStatus(), appErr.Message)
		return
	}
	ErrorResponse(c, http.StatusInternalServerError, "internal server error")
}
