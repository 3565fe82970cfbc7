package api

import (
	z "github.com/Oudwins/zog"
)

var (
	percentSchema       = z.Int().GTE(0).LTE(100)
	cyclesSchema        = z.Int().GTE(0)
	dischargeRateSchema = z.Float64().GTE(0).LTE(100)
	nameSchema          = z.String().Required().Min(1).Max(256)
	shortTextSchema     = z.String().Max(128)
	imageURLSchema      = z.String().URL()
	emailSchema         = z.String().Email()
	endpointSchema      = z.String().URL().Max(1024)
)

// batterySchema covers one auxiliary pack of a device.
var batterySchema = z.Struct(z.Shape{
	"Label":         z.String().Max(128),
	"CurrentCharge": z.Int().GTE(0).LTE(100),
	"Health":        z.Int().GTE(0).LTE(100),
})

// issues collects validation problems keyed by the JSON field name.
type issues map[string]any

func (v issues) check(field string, list z.ZogIssueList) {
	if len(list) > 0 {
		v[field] = list
	}
}

func (v issues) fail(field, message string) {
	v[field] = []string{message}
}
