package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	"invalid_input":        http.StatusBadRequest,
	"backend_unreachable":  http.StatusBadGateway,
	"backend_error":        http.StatusBadGateway,
	"invalid_response":     http.StatusBadGateway,
	"prediction_in_flight": http.StatusConflict,
	"pin_rejected":         http.StatusForbidden,
	"dialog_state":         http.StatusConflict,
	"capture_failed":       http.StatusInternalServerError,
	"storage_error":        http.StatusInternalServerError,
}

// fromDomainError translates an AppError into its HTTP form. The domain message is
// passed through verbatim so backend details reach the user unchanged.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func abortWithDomainError(c *gin.Context, err error) {
	abortWithError(c, fromDomainError(err))
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
