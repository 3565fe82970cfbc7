package api

import (
	"net/http"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"

	"voltfox-backend/internal/device"
	"voltfox-backend/internal/model"
	"voltfox-backend/internal/mw"
)

const (
	defaultHistoryLimit = 200
	maxHistoryLimit     = 1000
)

type historyQuery struct {
	Since time.Time
	Limit int
}

var historyQuerySchema = z.Struct(z.Shape{
	"since": z.Time(),
	"limit": z.Int().GTE(0).LTE(maxHistoryLimit),
})

// GetHistory handles GET /api/devices/:id/history. since is an RFC 3339
// timestamp; newest snapshots come first.
func (h *Handler) GetHistory(c *gin.Context) {
	var q historyQuery
	if errs := historyQuerySchema.Parse(zhttp.Request(c.Request), &q); len(errs) > 0 {
		invalidInput(c, "invalid query", errs)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}

	userID, deviceID := mw.UserID(c), c.Param("id")
	if _, err := h.store.GetDevice(c.Request.Context(), userID, deviceID); err != nil {
		h.storeError(c, err, "device")
		return
	}

	snapshots, err := h.store.ListSnapshots(c.Request.Context(), userID, deviceID, q.Since, q.Limit)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []model.HistorySnapshot{}
	}
	c.JSON(http.StatusOK, snapshots)
}

type historyRequest struct {
	Charge      *int     `json:"charge"`
	Health      *int     `json:"health"`
	Voltage     *float64 `json:"voltage"`
	Temperature *float64 `json:"temperature"`
}

// PostHistory handles POST /api/devices/:id/history. With a charge the
// request is a manual reading that also updates the device. Without one it
// only records the current state with the given electrical readings.
func (h *Handler) PostHistory(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid request body", err.Error())
		return
	}

	v := issues{}
	if req.Charge != nil {
		v.check("charge", percentSchema.Validate(req.Charge))
	}
	if req.Health != nil {
		if req.Charge == nil {
			v.fail("health", "requires charge")
		}
		v.check("health", percentSchema.Validate(req.Health))
	}
	if len(v) > 0 {
		invalidInput(c, "validation failed", v)
		return
	}

	var (
		snap model.HistorySnapshot
		err  error
	)
	userID, deviceID := mw.UserID(c), c.Param("id")
	if req.Charge != nil {
		snap, err = h.devices.RecordReading(c.Request.Context(), userID, deviceID, device.Reading{
			Charge:      *req.Charge,
			Health:      req.Health,
			Voltage:     req.Voltage,
			Temperature: req.Temperature,
		})
	} else {
		snap, err = h.devices.RecordSnapshot(c.Request.Context(), userID, deviceID, req.Voltage, req.Temperature)
	}
	if err != nil {
		h.storeError(c, err, "device")
		return
	}
	c.JSON(http.StatusCreated, snap)
}
