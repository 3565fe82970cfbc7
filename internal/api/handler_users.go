package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"voltfox-backend/internal/mw"
)

// EnsureUser provisions the account of the authenticated caller on its first
// request. Known users are remembered for a while to skip the write.
func (h *Handler) EnsureUser(c *gin.Context) {
	userID := mw.UserID(c)
	if _, found := h.provisioned.Get(userID); found {
		c.Next()
		return
	}

	if _, err := h.store.EnsureUser(c.Request.Context(), userID, mw.Email(c)); err != nil {
		h.internalError(c, err)
		return
	}
	h.provisioned.Set(userID, struct{}{}, cache.DefaultExpiration)
	c.Next()
}

// GetMe returns the caller's account.
func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.store.GetUser(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, user)
}
