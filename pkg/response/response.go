package response

import (
	"errors"
	"net/http"

	"checkout-sandbox/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// includeDetails controls whether error responses carry internal error
// detail. Enabled outside release mode only.
var includeDetails = false

// SetIncludeDetails toggles internal error detail in error responses.
func SetIncludeDetails(v bool) {
	includeDetails = v
}

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorBody is the error object inside the error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// Error sends an error response. It checks if err is an *apperror.AppError
// and maps it accordingly, otherwise returns 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body := ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
		}
		if includeDetails && appErr.Err != nil {
			body.Details = appErr.Err.Error()
		}
		c.JSON(appErr.HTTPStatus, ErrorResponse{Success: false, Error: body})
		return
	}

	// Unknown error -> 500
	body := ErrorBody{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
	}
	if includeDetails {
		body.Details = err.Error()
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: body})
}
