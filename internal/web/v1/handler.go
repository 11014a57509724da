package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/user-service/internal/core/domain"
	logicv1 "github.com/duynhne/user-service/internal/logic/v1"
	"github.com/duynhne/user-service/middleware"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	service *logicv1.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *logicv1.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func startSpan(c *gin.Context) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("route", c.FullPath()),
	))
}

// ListUsers handles GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	page, err := h.service.ListUsers(ctx, c.Request.URL.Query())
	if err != nil {
		respondError(c, span, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      statusSuccess,
		"page":        page.Page,
		"per_page":    page.PerPage,
		"total":       page.Total,
		"total_pages": page.TotalPages,
		"data":        gin.H{"users": page.Users},
	})
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	var req domain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Info("Invalid create request", zap.Error(err))
		respondFail(c, http.StatusBadRequest, sanitizeValidationError(err))
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	user, err := h.service.CreateUser(ctx, req)
	if err != nil {
		respondError(c, span, err, "")
		return
	}

	logger.Info("User created", zap.String("user_id", user.ID))
	respondOK(c, http.StatusCreated, gin.H{"user": user})
}

// GetUser handles GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("user.id", id))

	user, err := h.service.GetUser(ctx, id)
	if err != nil {
		respondError(c, span, err, id)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"user": user})
}

// EditUser handles PATCH /api/v1/users/:id
func (h *UserHandler) EditUser(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	id := c.Param("id")
	span.SetAttributes(attribute.String("user.id", id))

	var req domain.EditUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Info("Invalid edit request", zap.Error(err))
		respondFail(c, http.StatusBadRequest, sanitizeValidationError(err))
		return
	}

	user, err := h.service.EditUser(ctx, id, req)
	if errors.Is(err, domain.ErrUsernameTaken) {
		logger.Info("Request rejected", zap.Int("status", http.StatusConflict), zap.Error(err))
		respondFail(c, http.StatusConflict, msgUsernameExists)
		return
	}
	if err != nil {
		respondError(c, span, err, id)
		return
	}

	logger.Info("User updated", zap.String("user_id", id))
	respondOK(c, http.StatusOK, gin.H{"user": user})
}

// RemoveUser handles DELETE /api/v1/users/:id
func (h *UserHandler) RemoveUser(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("user.id", id))

	user, err := h.service.RemoveUser(ctx, id)
	if err != nil {
		respondError(c, span, err, id)
		return
	}

	middleware.GetLoggerFromGinContext(c).Info("User removed", zap.String("user_id", id))
	respondOK(c, http.StatusOK, gin.H{"user": user})
}
