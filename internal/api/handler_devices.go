package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"voltfox-backend/internal/battery"
	"voltfox-backend/internal/model"
	"voltfox-backend/internal/mw"
	"voltfox-backend/internal/parse"
)

type batteryRequest struct {
	Label         string     `json:"label"`
	CurrentCharge int        `json:"currentCharge"`
	Health        int        `json:"health"`
	Cycles        *int       `json:"cycles"`
	LastCharged   *time.Time `json:"lastCharged"`
}

type insuranceRequest struct {
	PurchasePrice *float64   `json:"purchasePrice"`
	PurchaseDate  *time.Time `json:"purchaseDate"`
	WarrantyUntil *time.Time `json:"warrantyUntil"`
	SerialNumber  string     `json:"serialNumber"`
}

// deviceRequest is the body of both create and partial update. Absent
// fields are left untouched on update.
type deviceRequest struct {
	Name          *string           `json:"name"`
	Type          *string           `json:"type"`
	Brand         *string           `json:"brand"`
	Model         *string           `json:"model"`
	Icon          *string           `json:"icon"`
	ImageURL      *string           `json:"imageUrl"`
	Chemistry     *string           `json:"chemistry"`
	CurrentCharge *int              `json:"currentCharge"`
	Health        *int              `json:"health"`
	DischargeRate *float64          `json:"dischargeRate"`
	Cycles        *int              `json:"cycles"`
	LastCharged   *time.Time        `json:"lastCharged"`
	LastUsed      *time.Time        `json:"lastUsed"`
	Insurance     *insuranceRequest `json:"insurance"`
	Batteries     *[]batteryRequest `json:"batteries"`

	deviceType model.DeviceType
	chemistry  battery.Chemistry
}

// validate checks every present field and resolves the free-text enums.
// Creating a device additionally requires the identity and battery fields.
func (r *deviceRequest) validate(create bool) issues {
	v := issues{}

	if create {
		required := map[string]bool{
			"name":          r.Name != nil,
			"type":          r.Type != nil,
			"chemistry":     r.Chemistry != nil,
			"currentCharge": r.CurrentCharge != nil,
			"health":        r.Health != nil,
		}
		for field, present := range required {
			if !present {
				v.fail(field, "is required")
			}
		}
	}

	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
		v.check("name", nameSchema.Validate(r.Name))
	}
	if r.Type != nil {
		t, ok := parse.ParseDeviceType(*r.Type)
		if !ok {
			v.fail("type", fmt.Sprintf("unknown device type %q", *r.Type))
		}
		r.deviceType = t
	}
	if r.Chemistry != nil {
		c, err := parse.ParseChemistry(*r.Chemistry)
		if err != nil {
			v.fail("chemistry", err.Error())
		}
		r.chemistry = c
	}
	if r.Brand != nil {
		v.check("brand", shortTextSchema.Validate(r.Brand))
	}
	if r.Model != nil {
		v.check("model", shortTextSchema.Validate(r.Model))
	}
	if r.ImageURL != nil && *r.ImageURL != "" {
		v.check("imageUrl", imageURLSchema.Validate(r.ImageURL))
	}
	if r.CurrentCharge != nil {
		v.check("currentCharge", percentSchema.Validate(r.CurrentCharge))
	}
	if r.Health != nil {
		v.check("health", percentSchema.Validate(r.Health))
	}
	if r.DischargeRate != nil {
		v.check("dischargeRate", dischargeRateSchema.Validate(r.DischargeRate))
	}
	if r.Cycles != nil {
		v.check("cycles", cyclesSchema.Validate(r.Cycles))
	}
	if r.Insurance != nil && r.Insurance.PurchasePrice != nil && *r.Insurance.PurchasePrice < 0 {
		v.fail("insurance.purchasePrice", "must not be negative")
	}
	if r.Batteries != nil {
		for i := range *r.Batteries {
			b := &(*r.Batteries)[i]
			if list := batterySchema.Validate(b); len(list) > 0 {
				v[fmt.Sprintf("batteries[%d]", i)] = list
			}
			if b.Cycles != nil {
				v.check(fmt.Sprintf("batteries[%d].cycles", i), cyclesSchema.Validate(b.Cycles))
			}
		}
	}
	return v
}

// apply copies the present fields onto d.
func (r *deviceRequest) apply(d *model.Device) {
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.Type != nil {
		d.Type = r.deviceType
	}
	if r.Brand != nil {
		d.Brand = *r.Brand
	}
	if r.Model != nil {
		d.Model = *r.Model
	}
	if r.Icon != nil {
		d.Icon = *r.Icon
	}
	if r.ImageURL != nil {
		d.ImageURL = *r.ImageURL
	}
	if r.Chemistry != nil {
		d.Chemistry = r.chemistry
	}
	if r.CurrentCharge != nil {
		d.CurrentCharge = *r.CurrentCharge
	}
	if r.Health != nil {
		d.Health = *r.Health
	}
	if r.DischargeRate != nil {
		d.DischargeRate = *r.DischargeRate
	}
	if r.Cycles != nil {
		d.Cycles = r.Cycles
	}
	if r.LastCharged != nil {
		d.LastCharged = r.LastCharged.UTC()
	}
	if r.LastUsed != nil {
		d.LastUsed = r.LastUsed
	}
	if r.Insurance != nil {
		d.Insurance = model.Insurance{
			PurchasePrice: r.Insurance.PurchasePrice,
			PurchaseDate:  r.Insurance.PurchaseDate,
			WarrantyUntil: r.Insurance.WarrantyUntil,
			SerialNumber:  r.Insurance.SerialNumber,
		}
	}
	if r.Batteries != nil {
		batteries := make([]model.Battery, 0, len(*r.Batteries))
		for i, b := range *r.Batteries {
			batteries = append(batteries, model.Battery{
				Position:      i,
				Label:         b.Label,
				CurrentCharge: b.CurrentCharge,
				Health:        b.Health,
				Cycles:        b.Cycles,
				LastCharged:   b.LastCharged,
			})
		}
		d.Batteries = batteries
	}
}

func (h *Handler) bindDevice(c *gin.Context, create bool) (*deviceRequest, bool) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid request body", err.Error())
		return nil, false
	}
	if v := req.validate(create); len(v) > 0 {
		invalidInput(c, "validation failed", v)
		return nil, false
	}
	return &req, true
}

// CreateDevice handles POST /api/devices.
func (h *Handler) CreateDevice(c *gin.Context) {
	req, ok := h.bindDevice(c, true)
	if !ok {
		return
	}

	d := model.Device{UserID: mw.UserID(c)}
	req.apply(&d)
	if d.LastCharged.IsZero() {
		d.LastCharged = h.devices.Now()
	}

	if err := h.store.CreateDevice(c.Request.Context(), &d); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// ListDevices handles GET /api/devices.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context(), mw.UserID(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}

// GetDevice handles GET /api/devices/:id.
func (h *Handler) GetDevice(c *gin.Context) {
	d, err := h.store.GetDevice(c.Request.Context(), mw.UserID(c), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "device")
		return
	}
	c.JSON(http.StatusOK, d)
}

// PatchDevice handles PATCH /api/devices/:id.
func (h *Handler) PatchDevice(c *gin.Context) {
	req, ok := h.bindDevice(c, false)
	if !ok {
		return
	}

	d, err := h.devices.Update(c.Request.Context(), mw.UserID(c), c.Param("id"), func(d *model.Device) error {
		req.apply(d)
		return nil
	})
	if err != nil {
		h.storeError(c, err, "device")
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeleteDevice handles DELETE /api/devices/:id.
func (h *Handler) DeleteDevice(c *gin.Context) {
	if err := h.store.DeleteDevice(c.Request.Context(), mw.UserID(c), c.Param("id")); err != nil {
		h.storeError(c, err, "device")
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkCharged handles POST /api/devices/:id/charged.
func (h *Handler) MarkCharged(c *gin.Context) {
	d, err := h.devices.MarkCharged(c.Request.Context(), mw.UserID(c), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "device")
		return
	}
	c.JSON(http.StatusOK, d)
}

// MarkDefective handles POST /api/devices/:id/defective.
func (h *Handler) MarkDefective(c *gin.Context) {
	d, err := h.devices.MarkDefective(c.Request.Context(), mw.UserID(c), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "device")
		return
	}
	c.JSON(http.StatusOK, d)
}

type estimateResponse struct {
	Status          battery.Status `json:"status"`
	ProjectedCharge float64        `json:"projectedCharge"`
	DaysUntilDanger *int           `json:"daysUntilDanger"`
	EstimatedHealth int            `json:"estimatedHealth"`
}

// GetEstimate handles GET /api/devices/:id/estimate. daysUntilDanger is null
// for a device that does not discharge.
func (h *Handler) GetEstimate(c *gin.Context) {
	d, err := h.store.GetDevice(c.Request.Context(), mw.UserID(c), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "device")
		return
	}

	now := h.devices.Now()
	resp := estimateResponse{
		Status:          d.Status,
		ProjectedCharge: battery.ProjectedCharge(d.LastCharged, d.CurrentCharge, d.DischargeRate, now),
		EstimatedHealth: battery.EstimateHealth(d.AgeYears(now), d.Cycles, d.Chemistry, d.CurrentCharge),
	}
	if days := battery.DaysUntilDanger(d.LastCharged, d.CurrentCharge, d.DischargeRate, now); days != battery.Unbounded {
		resp.DaysUntilDanger = &days
	}
	c.JSON(http.StatusOK, resp)
}
