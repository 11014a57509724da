package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/user-service/internal/core/domain"
	"github.com/duynhne/user-service/middleware"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

const (
	msgUsernameTaken    = "username is already taken. choose a different username"
	msgUsernameExists   = "username is already exists. choose a different username"
	msgPhoneNumberTaken = "phoneNumber is already exists."
	msgForbidden        = "You do not have permission to perform this action"
	msgInternal         = "Internal server error"
)

func respondOK(c *gin.Context, code int, data gin.H) {
	c.JSON(code, gin.H{"status": statusSuccess, "data": data})
}

func respondMessage(c *gin.Context, message string, data gin.H) {
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "message": message, "data": data})
}

// respondFail writes the error envelope; 4xx is "fail", 5xx is "error".
func respondFail(c *gin.Context, code int, message string) {
	status := statusFail
	if code >= http.StatusInternalServerError {
		status = statusError
	}
	c.AbortWithStatusJSON(code, gin.H{"status": status, "message": message})
}

// respondError maps a service error onto the HTTP error envelope.
// id names the user the request was about and is used in not-found messages.
func respondError(c *gin.Context, span trace.Span, err error, id string) {
	logger := middleware.GetLoggerFromGinContext(c)

	code, message := http.StatusInternalServerError, msgInternal
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		code, message = http.StatusNotFound, "user: "+id+" not found"
	case errors.Is(err, domain.ErrUsernameTaken):
		code, message = http.StatusConflict, msgUsernameTaken
	case errors.Is(err, domain.ErrPhoneNumberTaken):
		code, message = http.StatusConflict, msgPhoneNumberTaken
	case errors.Is(err, domain.ErrUserExists):
		code, message = http.StatusConflict, "User already exists"
	case errors.Is(err, domain.ErrPasswordTooLong):
		code, message = http.StatusBadRequest, domain.ErrPasswordTooLong.Error()
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrInvalidProductID):
		code, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		code, message = http.StatusForbidden, msgForbidden
	}

	if code >= http.StatusInternalServerError {
		middleware.RecordError(span, err)
		logger.Error("Request failed", zap.Error(err))
	} else {
		logger.Info("Request rejected", zap.Int("status", code), zap.Error(err))
	}
	respondFail(c, code, message)
}

// recoveryHandler turns a recovered panic into the 500 envelope
func recoveryHandler(logger *zap.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		respondFail(c, http.StatusInternalServerError, msgInternal)
	}
}

// Recovery returns gin's recovery middleware writing the service error envelope
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(recoveryHandler(logger))
}

// NoRoute answers unknown paths with the error envelope
func NoRoute(c *gin.Context) {
	respondFail(c, http.StatusNotFound, "Can't find "+c.Request.URL.Path+" on this server")
}
