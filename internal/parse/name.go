package parse

import (
	"fmt"
	"regexp"
	"strings"

	"voltfox-backend/internal/battery"
	"voltfox-backend/internal/model"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// key folds a free-text label to lowercase letters and digits only, so
// "Li-Ion", "li ion" and "LI_ION" compare equal.
func key(raw string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "")
}

var chemistryAliases = map[string]battery.Chemistry{
	"lipo":               battery.ChemistryLiPo,
	"lipolymer":          battery.ChemistryLiPo,
	"lithiumpolymer":     battery.ChemistryLiPo,
	"liion":              battery.ChemistryLiIon,
	"lithiumion":         battery.ChemistryLiIon,
	"li":                 battery.ChemistryLiIon,
	"nimh":               battery.ChemistryNiMH,
	"nickelmetalhydride": battery.ChemistryNiMH,
	"leadacid":           battery.ChemistryLeadAcid,
	"sla":                battery.ChemistryLeadAcid,
	"agm":                battery.ChemistryLeadAcid,
	"pb":                 battery.ChemistryLeadAcid,
}

// ParseChemistry maps a free-text chemistry label to a known chemistry.
func ParseChemistry(raw string) (battery.Chemistry, error) {
	if c, ok := chemistryAliases[key(raw)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown battery chemistry: %q", raw)
}

var deviceTypeAliases = map[string]model.DeviceType{
	"drone":            model.DeviceTypeDrone,
	"quadcopter":       model.DeviceTypeDrone,
	"uav":              model.DeviceTypeDrone,
	"camera":           model.DeviceTypeCamera,
	"dslr":             model.DeviceTypeCamera,
	"mirrorless":       model.DeviceTypeCamera,
	"actioncamera":     model.DeviceTypeCamera,
	"laptop":           model.DeviceTypeLaptop,
	"notebook":         model.DeviceTypeLaptop,
	"phone":            model.DeviceTypePhone,
	"smartphone":       model.DeviceTypePhone,
	"mobilephone":      model.DeviceTypePhone,
	"tablet":           model.DeviceTypeTablet,
	"smartwatch":       model.DeviceTypeSmartwatch,
	"watch":            model.DeviceTypeSmartwatch,
	"headphones":       model.DeviceTypeHeadphones,
	"headphone":        model.DeviceTypeHeadphones,
	"headset":          model.DeviceTypeHeadphones,
	"earbuds":          model.DeviceTypeHeadphones,
	"speaker":          model.DeviceTypeSpeaker,
	"bluetoothspeaker": model.DeviceTypeSpeaker,
	"ebike":            model.DeviceTypeEBike,
	"electricbike":     model.DeviceTypeEBike,
	"rccar":            model.DeviceTypeRCCar,
	"other":            model.DeviceTypeOther,
}

// ParseDeviceType maps a free-text device label to a known type. Unknown
// labels map to DeviceTypeOther and report false.
func ParseDeviceType(raw string) (model.DeviceType, bool) {
	if t, ok := deviceTypeAliases[key(raw)]; ok {
		return t, true
	}
	return model.DeviceTypeOther, false
}
