package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/duynhne/user-service/internal/core/domain"
	"github.com/duynhne/user-service/middleware"
)

// actingUserID resolves whose wishlist a request targets: the caller, or for an
// ADMIN the userId given in the body (or query string on GET).
func actingUserID(c *gin.Context) (string, error) {
	principal, ok := middleware.CurrentUser(c)
	if !ok {
		return "", domain.ErrUnauthorized
	}

	var req domain.WishlistRequest
	if c.Request.Method == http.MethodGet {
		req.UserID = c.Query("userId")
	} else if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	if req.UserID == "" || req.UserID == principal.ID {
		return principal.ID, nil
	}
	if !principal.IsAdmin() {
		return "", domain.ErrUnauthorized
	}
	return req.UserID, nil
}

// AddToWishlist handles POST /api/v1/users/wishlist/:productId
func (h *UserHandler) AddToWishlist(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	userID, ok := h.resolveActingUser(c)
	if !ok {
		return
	}
	productID := c.Param("productId")
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("product.id", productID))

	wishlist, err := h.service.AddToWishlist(ctx, userID, productID)
	if err != nil {
		respondError(c, span, err, userID)
		return
	}

	respondMessage(c, "Product added to wishlist", gin.H{"wishlist": wishlist})
}

// RemoveFromWishlist handles DELETE /api/v1/users/wishlist/:productId
func (h *UserHandler) RemoveFromWishlist(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	userID, ok := h.resolveActingUser(c)
	if !ok {
		return
	}
	productID := c.Param("productId")
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("product.id", productID))

	wishlist, err := h.service.RemoveFromWishlist(ctx, userID, productID)
	if err != nil {
		respondError(c, span, err, userID)
		return
	}

	respondMessage(c, "Product removed from wishlist", gin.H{"wishlist": wishlist})
}

// GetWishlist handles POST /api/v1/users/allWishlist and GET /api/v1/users/wishlist
func (h *UserHandler) GetWishlist(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	userID, ok := h.resolveActingUser(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	wishlist, err := h.service.GetWishlist(ctx, userID)
	if err != nil {
		respondError(c, span, err, userID)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"wishlist": wishlist})
}

func (h *UserHandler) resolveActingUser(c *gin.Context) (string, bool) {
	userID, err := actingUserID(c)
	switch {
	case err == nil:
		return userID, true
	case errors.Is(err, domain.ErrUnauthorized):
		respondFail(c, http.StatusForbidden, msgForbidden)
	default:
		respondFail(c, http.StatusBadRequest, sanitizeValidationError(err))
	}
	return "", false
}
