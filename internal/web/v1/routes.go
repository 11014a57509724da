package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duynhne/user-service/internal/core/domain"
	"github.com/duynhne/user-service/middleware"
)

// RegisterRoutes mounts the user API on rg (normally /api/v1/users).
// Every route requires authentication; static wishlist paths are registered
// alongside /:id, which gin resolves by preferring static segments.
func RegisterRoutes(rg *gin.RouterGroup, h *UserHandler, auth middleware.Authenticator, logger *zap.Logger) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	rg.Use(middleware.AuthMiddleware(auth, logger))
	admin := middleware.RestrictTo(domain.RoleAdmin)

	rg.GET("", admin, h.ListUsers)
	rg.POST("", admin, h.CreateUser)

	rg.POST("/wishlist/:productId", h.AddToWishlist)
	rg.DELETE("/wishlist/:productId", h.RemoveFromWishlist)
	rg.POST("/allWishlist", h.GetWishlist)
	rg.GET("/wishlist", h.GetWishlist)

	rg.GET("/:id", selfOrAdmin, h.GetUser)
	rg.PATCH("/:id", selfOrAdmin, h.EditUser)
	rg.DELETE("/:id", admin, h.RemoveUser)

	return nil
}

// selfOrAdmin lets a user act on their own record and an ADMIN on any record
func selfOrAdmin(c *gin.Context) {
	principal, ok := middleware.CurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	if principal.ID != c.Param("id") && !principal.IsAdmin() {
		respondFail(c, http.StatusForbidden, msgForbidden)
		return
	}
	c.Next()
}
