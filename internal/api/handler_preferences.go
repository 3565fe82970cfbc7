package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voltfox-backend/internal/mw"
)

type preferencesRequest struct {
	PushNotifications      *bool   `json:"pushNotifications"`
	EmailNotifications     *bool   `json:"emailNotifications"`
	NotifyOnCritical       *bool   `json:"notifyOnCritical"`
	NotifyOnWarning        *bool   `json:"notifyOnWarning"`
	NotifyOnLowHealth      *bool   `json:"notifyOnLowHealth"`
	NotifyOnWarrantyExpiry *bool   `json:"notifyOnWarrantyExpiry"`
	OverrideEmail          *string `json:"overrideEmail"`
}

// GetPreferences handles GET /api/preferences. Users who never saved any get
// the defaults.
func (h *Handler) GetPreferences(c *gin.Context) {
	prefs, err := h.store.GetPreferences(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// PutPreferences handles PUT /api/preferences. Absent keys keep their
// current value.
func (h *Handler) PutPreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid request body", err.Error())
		return
	}
	if req.OverrideEmail != nil {
		email := strings.TrimSpace(*req.OverrideEmail)
		req.OverrideEmail = &email
	}
	if req.OverrideEmail != nil && *req.OverrideEmail != "" {
		v := issues{}
		v.check("overrideEmail", emailSchema.Validate(req.OverrideEmail))
		if len(v) > 0 {
			invalidInput(c, "validation failed", v)
			return
		}
	}

	prefs, err := h.store.GetPreferences(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.internalError(c, err)
		return
	}

	for dst, src := range map[*bool]*bool{
		&prefs.PushNotifications:      req.PushNotifications,
		&prefs.EmailNotifications:     req.EmailNotifications,
		&prefs.NotifyOnCritical:       req.NotifyOnCritical,
		&prefs.NotifyOnWarning:        req.NotifyOnWarning,
		&prefs.NotifyOnLowHealth:      req.NotifyOnLowHealth,
		&prefs.NotifyOnWarrantyExpiry: req.NotifyOnWarrantyExpiry,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if req.OverrideEmail != nil {
		prefs.OverrideEmail = *req.OverrideEmail
	}

	if err := h.store.SavePreferences(c.Request.Context(), &prefs); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}
