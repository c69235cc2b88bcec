package endpoint

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-gateway/internal/cache"
)

// Kind tags an endpoint variant.
type Kind int

const (
	KindViolationByID Kind = iota
	KindViolationByAddress
	KindPermitByID
	KindPermitByAddress
	KindScheduleByDistrict
	KindEmissionsByProperty
	KindWaterByAccount
	KindInspectionByID
	KindComplaintByID
	KindComplaintByAddress
	KindPropertyAssessment
	KindTaxBill
	KindTaxLien
	KindEnergyRating
	KindLandmarkStatus
	KindFootprintByID
	KindFootprintByLocation
	KindConstructionByAddress
	KindLicenseByAddress
	KindAirQualityByAddress
	KindHearingsByID
	KindECBViolationByID
	KindGrouped
	numKinds
)

var kindNames = [numKinds]string{
	KindViolationByID:         "violation-by-id",
	KindViolationByAddress:    "violation-by-address",
	KindPermitByID:            "permit-by-id",
	KindPermitByAddress:       "permit-by-address",
	KindScheduleByDistrict:    "schedule-by-district",
	KindEmissionsByProperty:   "emissions-by-property",
	KindWaterByAccount:        "water-by-account",
	KindInspectionByID:        "inspection-by-id",
	KindComplaintByID:         "complaint-by-id",
	KindComplaintByAddress:    "complaint-by-address",
	KindPropertyAssessment:    "property-assessment",
	KindTaxBill:               "tax-bill",
	KindTaxLien:               "tax-lien",
	KindEnergyRating:          "energy-rating",
	KindLandmarkStatus:        "landmark-status",
	KindFootprintByID:         "footprint-by-id",
	KindFootprintByLocation:   "footprint-by-location",
	KindConstructionByAddress: "construction-by-address",
	KindLicenseByAddress:      "license-by-address",
	KindAirQualityByAddress:   "air-quality-by-address",
	KindHearingsByID:          "hearings-by-id",
	KindECBViolationByID:      "ecb-violation-by-id",
	KindGrouped:               "grouped",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists every variant tag in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a kind from its String form.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, eris.Errorf("endpoint: unknown kind %q", s)
}

// ByAddress reports whether the kind is keyed by a street address.
func (k Kind) ByAddress() bool {
	switch k {
	case KindViolationByAddress, KindPermitByAddress, KindComplaintByAddress,
		KindConstructionByAddress, KindLicenseByAddress, KindAirQualityByAddress:
		return true
	default:
		return false
	}
}

// Tier returns how long responses for the kind stay fresh.
func (k Kind) Tier() cache.Tier {
	switch k {
	case KindFootprintByID, KindFootprintByLocation, KindLandmarkStatus,
		KindPropertyAssessment, KindEnergyRating:
		return cache.Long
	case KindScheduleByDistrict, KindWaterByAccount:
		return cache.Volatile
	case KindComplaintByID, KindComplaintByAddress, KindAirQualityByAddress:
		return cache.Short
	case KindViolationByID, KindViolationByAddress, KindPermitByID, KindPermitByAddress,
		KindEmissionsByProperty, KindInspectionByID, KindTaxBill, KindTaxLien,
		KindConstructionByAddress, KindLicenseByAddress, KindHearingsByID, KindECBViolationByID,
		KindGrouped:
		return cache.Medium
	default:
		return cache.Medium
	}
}
