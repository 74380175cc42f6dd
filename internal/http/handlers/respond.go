package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/smartq/internal/apperr"
	"github.com/geocoder89/smartq/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if s := ctx.GetString(middlewares.CtxRequestID); s != "" {
		return s
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:         http.StatusBadRequest,
	apperr.KindConflict:           http.StatusConflict,
	apperr.KindNotFound:           http.StatusNotFound,
	apperr.KindInvalidCredentials: http.StatusUnauthorized,
	apperr.KindEmailNotVerified:   http.StatusForbidden,
	apperr.KindDelivery:           http.StatusBadGateway,
	apperr.KindExternalProvider:   http.StatusBadGateway,
	apperr.KindInternal:           http.StatusInternalServerError,
}

// RespondAppError maps a service error onto the error envelope. Upstream
// bodies and causes stay in the logs.
func RespondAppError(ctx *gin.Context, err error) {
	kind := apperr.KindOf(err)

	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	var details interface{}
	var e *apperr.Error
	if errors.As(err, &e) && e.Field != "" {
		details = gin.H{"field": e.Field}
	}

	RespondError(ctx, status, string(kind), apperr.MessageOf(err), details)
}
