package lookup

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/gateway"
	"github.com/sells-group/compliance-gateway/internal/record"
)

// DefaultRadiusM is the search radius for location lookups when none is given.
const DefaultRadiusM = 50

// VariantFor builds the variant of kind k from a free-text subject: a
// building number, property key, address, district or account depending on
// the kind. Location lookups take "lat,lon".
func VariantFor(k endpoint.Kind, subject string, radiusM float64) (endpoint.Variant, error) {
	switch k {
	case endpoint.KindViolationByID:
		return endpoint.ViolationByID(subject), nil
	case endpoint.KindViolationByAddress:
		return endpoint.ViolationByAddress(subject), nil
	case endpoint.KindPermitByID:
		return endpoint.PermitByID(subject), nil
	case endpoint.KindPermitByAddress:
		return endpoint.PermitByAddress(subject), nil
	case endpoint.KindScheduleByDistrict:
		return endpoint.ScheduleByDistrict(subject), nil
	case endpoint.KindEmissionsByProperty:
		return endpoint.EmissionsByProperty(subject), nil
	case endpoint.KindWaterByAccount:
		return endpoint.WaterByAccount(subject), nil
	case endpoint.KindInspectionByID:
		return endpoint.InspectionByID(subject), nil
	case endpoint.KindComplaintByID:
		return endpoint.ComplaintByID(subject), nil
	case endpoint.KindComplaintByAddress:
		return endpoint.ComplaintByAddress(subject), nil
	case endpoint.KindPropertyAssessment:
		return endpoint.PropertyAssessment(subject), nil
	case endpoint.KindTaxBill:
		return endpoint.TaxBill(subject), nil
	case endpoint.KindTaxLien:
		return endpoint.TaxLien(subject), nil
	case endpoint.KindEnergyRating:
		return endpoint.EnergyRating(subject), nil
	case endpoint.KindLandmarkStatus:
		return endpoint.LandmarkStatus(subject), nil
	case endpoint.KindFootprintByID:
		return endpoint.FootprintByID(subject), nil
	case endpoint.KindFootprintByLocation:
		lat, lon, err := parseLatLon(subject)
		if err != nil {
			return endpoint.Variant{}, err
		}
		if radiusM <= 0 {
			radiusM = DefaultRadiusM
		}
		return endpoint.FootprintByLocation(lat, lon, radiusM), nil
	case endpoint.KindConstructionByAddress:
		return endpoint.ConstructionByAddress(subject), nil
	case endpoint.KindLicenseByAddress:
		return endpoint.LicenseByAddress(subject), nil
	case endpoint.KindAirQualityByAddress:
		return endpoint.AirQualityByAddress(subject), nil
	case endpoint.KindHearingsByID:
		return endpoint.HearingsByID(subject), nil
	case endpoint.KindECBViolationByID:
		return endpoint.ECBViolationByID(subject), nil
	case endpoint.KindGrouped:
		return endpoint.Variant{}, eris.New("lookup: grouped queries take a family and a list of ids")
	default:
		return endpoint.Variant{}, eris.Errorf("lookup: unknown kind %d", int(k))
	}
}

func parseLatLon(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("lookup: location %q must be \"lat,lon\"", s)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, eris.Wrapf(err, "lookup: latitude %q", parts[0])
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, eris.Wrapf(err, "lookup: longitude %q", parts[1])
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, eris.Errorf("lookup: location %q out of range", s)
	}
	return lat, lon, nil
}

// Fetch runs v with the schema its kind decodes into. The result is the
// typed record slice boxed as any, ready for encoding.
func Fetch(ctx context.Context, c *gateway.Client, v endpoint.Variant) (any, error) {
	switch v.Kind() {
	case endpoint.KindViolationByID, endpoint.KindViolationByAddress:
		return boxed(gateway.Fetch(ctx, c, v, record.Violations))
	case endpoint.KindECBViolationByID:
		return boxed(gateway.Fetch(ctx, c, v, record.ECBViolations))
	case endpoint.KindHearingsByID:
		return boxed(gateway.Fetch(ctx, c, v, record.Hearings))
	case endpoint.KindPermitByID, endpoint.KindPermitByAddress:
		return boxed(gateway.Fetch(ctx, c, v, record.Permits))
	case endpoint.KindConstructionByAddress:
		return boxed(gateway.Fetch(ctx, c, v, record.Constructions))
	case endpoint.KindComplaintByID, endpoint.KindComplaintByAddress:
		return boxed(gateway.Fetch(ctx, c, v, record.Complaints))
	case endpoint.KindInspectionByID:
		return boxed(gateway.Fetch(ctx, c, v, record.Inspections))
	case endpoint.KindScheduleByDistrict:
		return boxed(gateway.Fetch(ctx, c, v, record.Schedules))
	case endpoint.KindEmissionsByProperty:
		return boxed(gateway.Fetch(ctx, c, v, record.Emissions))
	case endpoint.KindWaterByAccount:
		return boxed(gateway.Fetch(ctx, c, v, record.WaterReadings))
	case endpoint.KindPropertyAssessment:
		return boxed(gateway.Fetch(ctx, c, v, record.Assessments))
	case endpoint.KindTaxBill:
		return boxed(gateway.Fetch(ctx, c, v, record.TaxBills))
	case endpoint.KindTaxLien:
		return boxed(gateway.Fetch(ctx, c, v, record.TaxLiens))
	case endpoint.KindEnergyRating:
		return boxed(gateway.Fetch(ctx, c, v, record.EnergyRatings))
	case endpoint.KindLandmarkStatus:
		return boxed(gateway.Fetch(ctx, c, v, record.Landmarks))
	case endpoint.KindFootprintByID, endpoint.KindFootprintByLocation:
		return boxed(gateway.Fetch(ctx, c, v, record.Footprints))
	case endpoint.KindLicenseByAddress:
		return boxed(gateway.Fetch(ctx, c, v, record.Licenses))
	case endpoint.KindAirQualityByAddress:
		return boxed(gateway.Fetch(ctx, c, v, record.AirQualityPermits))
	default:
		return nil, &gateway.Error{
			Kind:     gateway.InvalidRequest,
			Endpoint: v.Kind().String(),
			Err:      eris.New("kind has no single-dataset schema"),
		}
	}
}

// FetchGrouped runs a batch query for family f and returns the per-id map
// boxed as any.
func FetchGrouped(ctx context.Context, c *gateway.Client, f endpoint.Family, ids []string, since *time.Time) (any, error) {
	switch f.Name {
	case endpoint.FamilyViolations.Name:
		return boxed(gateway.FetchGrouped(ctx, c, f, record.Violations, ids, since))
	case endpoint.FamilyPermits.Name:
		return boxed(gateway.FetchGrouped(ctx, c, f, record.Permits, ids, since))
	case endpoint.FamilyComplaints.Name:
		return boxed(gateway.FetchGrouped(ctx, c, f, record.Complaints, ids, since))
	case endpoint.FamilyInspections.Name:
		return boxed(gateway.FetchGrouped(ctx, c, f, record.Inspections, ids, since))
	default:
		return nil, eris.Errorf("lookup: unknown family %q", f.Name)
	}
}

func boxed[R any](recs R, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return recs, nil
}
