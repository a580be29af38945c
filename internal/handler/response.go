package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"absensi/internal/attendance"
	"absensi/internal/sheets"
	"absensi/internal/store"
)

// Error codes carried in the envelope.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeNotFound     = "USER_NOT_FOUND"
	CodeNoSheet      = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED_ACCESS"
	CodeAccessDenied = "ACCESS_DENIED"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

// envelope is the body of every JSON response.
type envelope struct {
	StatusCode int    `json:"status_code"`
	OK         bool   `json:"ok"`
	ErrorCode  string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
	Result     any    `json:"result,omitempty"`
}

func respond(c *gin.Context, result any) {
	c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, OK: true, Message: "Success!", Result: result})
}

func reject(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, envelope{StatusCode: status, ErrorCode: code, Message: msg})
}

// fail maps a domain error onto a status and error code. Unexpected errors
// are logged and reported without detail.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidInput):
		reject(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, attendance.ErrAccountNotFound):
		reject(c, http.StatusNotFound, CodeNotFound, "user not found")
	case errors.Is(err, attendance.ErrBadCredentials):
		reject(c, http.StatusUnauthorized, CodeUnauthorized, "wrong id or password")
	case errors.Is(err, sheets.ErrSheetNotFound):
		reject(c, http.StatusNotFound, CodeNoSheet, err.Error())
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, sheets.ErrUnavailable):
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		reject(c, http.StatusServiceUnavailable, CodeUnavailable, "storage unavailable")
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		reject(c, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
