package api

import (
	"net/http"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"

	"voltfox-backend/internal/model"
	"voltfox-backend/internal/mw"
)

type notificationsQuery struct {
	Limit int
}

var notificationsQuerySchema = z.Struct(z.Shape{
	"limit": z.Int().GTE(0).LTE(200),
})

// ListNotifications handles GET /api/notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	var q notificationsQuery
	if errs := notificationsQuerySchema.Parse(zhttp.Request(c.Request), &q); len(errs) > 0 {
		invalidInput(c, "invalid query", errs)
		return
	}

	entries, err := h.store.ListNotifications(c.Request.Context(), mw.UserID(c), q.Limit)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if entries == nil {
		entries = []model.NotificationLog{}
	}
	c.JSON(http.StatusOK, entries)
}
