package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voltfox-backend/internal/model"
	"voltfox-backend/internal/mw"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription handles the creation or replacement of a subscription.
// An endpoint moves to the calling user when it was registered by another.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid request", err.Error())
		return
	}
	v := issues{}
	v.check("endpoint", endpointSchema.Validate(&req.Endpoint))
	if len(v) > 0 {
		invalidInput(c, "validation failed", v)
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   mw.UserID(c),
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.UpsertPushSubscription(c.Request.Context(), &subscription); err != nil {
		h.internalError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription. Deleting an
// unknown endpoint succeeds.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid request", err.Error())
		return
	}

	if _, err := h.store.DeletePushSubscriptions(c.Request.Context(), mw.UserID(c), req.Endpoint); err != nil {
		h.internalError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding, so endpoints that
// carry their own escapes are looked up verbatim.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription handles the retrieval of a subscription. Without an
// endpoint query parameter it lists all of the caller's subscriptions.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok {
		subscriptions, err := h.store.ListPushSubscriptions(c.Request.Context(), mw.UserID(c))
		if err != nil {
			h.internalError(c, err)
			return
		}
		if subscriptions == nil {
			subscriptions = []model.PushSubscription{}
		}
		c.JSON(http.StatusOK, subscriptions)
		return
	}
	if raw == "" {
		invalidInput(c, "endpoint is required", nil)
		return
	}

	subscription, err := h.store.GetPushSubscription(c.Request.Context(), mw.UserID(c), raw)
	if err != nil {
		h.storeError(c, err, "subscription")
		return
	}

	c.JSON(http.StatusOK, subscription)
}
