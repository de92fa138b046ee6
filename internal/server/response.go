package server

import (
	"errors"
	"net/http"

	"keto-planner/internal/nutrition"
	"keto-planner/internal/planner"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// StatusFor maps an application error onto an HTTP status and error code. Invalid
// input is the caller's to fix, rate limiting asks the caller to back off, and every
// other failure is reported as the service being unavailable.
func StatusFor(err error) (int, string) {
	var ve *nutrition.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, string(planner.KindInvalidInput)
	}
	switch kind := planner.KindOf(err); kind {
	case planner.KindInvalidInput:
		return http.StatusBadRequest, string(kind)
	case planner.KindProviderRateLimited:
		return http.StatusTooManyRequests, string(kind)
	case "":
		return http.StatusServiceUnavailable, "internal_error"
	default:
		return http.StatusServiceUnavailable, string(kind)
	}
}
