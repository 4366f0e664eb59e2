package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/pkg/logger"
)

const internalErrorMessage = "Internal server error"

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// AppError represents a structured application error with HTTP status.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// Pre-defined error constructors

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Message: msg}
}

func NewUnavailable(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusServiceUnavailable, Message: msg}
}

func NewServerError(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Message: msg}
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data as the body.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 Created response with data as the body.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Accepted sends a 202 for work handed to the task queue.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

// OK sends {"success": true}.
func OK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Error sends an error response. If err is an *AppError, its status and
// message are used; anything else is logged and reported as a generic 500
// so internal details never reach the client.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.For(c).Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		}
		c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorBody{Error: appErr.Message})
		return
	}

	logger.For(c).Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: internalErrorMessage})
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, ErrorBody{Error: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: msg})
}

func ServerError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: internalErrorMessage})
}
