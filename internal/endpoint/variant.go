// Package endpoint describes the open-data queries the gateway can issue.
// A Variant is a closed tag plus typed parameters; URL and CacheKey are
// pure functions of both.
package endpoint

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/compliance-gateway/internal/cache"
	"github.com/sells-group/compliance-gateway/internal/property"
)

// Params are the typed inputs of a variant. Only the fields relevant to the
// variant's kind are read.
type Params struct {
	ID       string
	Key      string
	Address  string
	District string
	Since    time.Time
	Until    time.Time
	Point    *geom.Point
	RadiusM  float64
	Limit    int
}

// Variant is one query against one dataset.
type Variant struct {
	kind   Kind
	params Params
	family Family
	ids    []string
}

// New builds a variant of kind k. Identifiers and addresses are normalized.
func New(k Kind, p Params) Variant {
	p.ID = property.NormalizeBIN(p.ID)
	p.Key = property.NormalizeKey(p.Key)
	p.Address = property.NormalizeAddress(p.Address)
	p.District = strings.ToUpper(strings.TrimSpace(p.District))
	return Variant{kind: k, params: p}
}

// Constructors for the single-dataset kinds. bin is a building number, key
// a property key and addr a free-text street address.

func ViolationByID(bin string) Variant { return New(KindViolationByID, Params{ID: bin}) }
func ViolationByAddress(addr string) Variant {
	return New(KindViolationByAddress, Params{Address: addr})
}
func PermitByID(bin string) Variant       { return New(KindPermitByID, Params{ID: bin}) }
func PermitByAddress(addr string) Variant { return New(KindPermitByAddress, Params{Address: addr}) }
func ScheduleByDistrict(district string) Variant {
	return New(KindScheduleByDistrict, Params{District: district})
}
func EmissionsByProperty(key string) Variant { return New(KindEmissionsByProperty, Params{Key: key}) }
func InspectionByID(bin string) Variant      { return New(KindInspectionByID, Params{ID: bin}) }
func ComplaintByID(bin string) Variant       { return New(KindComplaintByID, Params{ID: bin}) }
func ComplaintByAddress(addr string) Variant {
	return New(KindComplaintByAddress, Params{Address: addr})
}
func PropertyAssessment(key string) Variant { return New(KindPropertyAssessment, Params{Key: key}) }
func TaxBill(key string) Variant            { return New(KindTaxBill, Params{Key: key}) }
func TaxLien(key string) Variant            { return New(KindTaxLien, Params{Key: key}) }
func EnergyRating(key string) Variant       { return New(KindEnergyRating, Params{Key: key}) }
func LandmarkStatus(bin string) Variant     { return New(KindLandmarkStatus, Params{ID: bin}) }
func FootprintByID(bin string) Variant      { return New(KindFootprintByID, Params{ID: bin}) }
func ConstructionByAddress(addr string) Variant {
	return New(KindConstructionByAddress, Params{Address: addr})
}
func LicenseByAddress(addr string) Variant { return New(KindLicenseByAddress, Params{Address: addr}) }
func AirQualityByAddress(addr string) Variant {
	return New(KindAirQualityByAddress, Params{Address: addr})
}
func ECBViolationByID(bin string) Variant { return New(KindECBViolationByID, Params{ID: bin}) }

// WaterByAccount queries billing periods for a water account. Account
// numbers are not building numbers, so only whitespace is trimmed.
func WaterByAccount(account string) Variant {
	v := New(KindWaterByAccount, Params{})
	v.params.ID = strings.TrimSpace(account)
	return v
}

// HearingsByID queries building-agency hearings for the property key.
func HearingsByID(key string) Variant { return New(KindHearingsByID, Params{Key: key}) }

// FootprintByLocation queries footprints within radiusM meters of a point.
func FootprintByLocation(lat, lon, radiusM float64) Variant {
	pt := geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{lon, lat})
	return New(KindFootprintByLocation, Params{Point: pt, RadiusM: radiusM})
}

// Grouped queries one family for every id at once. since, when non-nil,
// floors the family's date column.
func Grouped(f Family, ids []string, since *time.Time) Variant {
	norm := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = property.NormalizeBIN(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		norm = append(norm, id)
	}
	sort.Strings(norm)
	p := Params{Limit: GroupedLimit}
	if since != nil {
		p.Since = *since
	}
	return Variant{kind: KindGrouped, params: p, family: f, ids: norm}
}

// Between restricts the variant to records dated in [since, until]. Zero
// bounds are open.
func (v Variant) Between(since, until time.Time) Variant {
	v.params.Since, v.params.Until = since, until
	return v
}

// WithLimit overrides the row cap.
func (v Variant) WithLimit(n int) Variant {
	v.params.Limit = n
	return v
}

func (v Variant) Kind() Kind       { return v.kind }
func (v Variant) Params() Params   { return v.params }
func (v Variant) Family() Family   { return v.family }
func (v Variant) Tier() cache.Tier { return v.kind.Tier() }
func (v Variant) Dataset() string  { return v.kind.columns(v.family).dataset }
func (v Variant) String() string   { return v.kind.String() }

// IDs returns the identifiers of a grouped variant.
func (v Variant) IDs() []string { return append([]string(nil), v.ids...) }

// Validate reports a variant whose required parameter is missing. URL never
// fails, so callers that want to reject such queries early check here.
func (v Variant) Validate() error {
	p := v.params
	var missing string
	switch v.kind {
	case KindViolationByID, KindPermitByID, KindWaterByAccount, KindInspectionByID,
		KindComplaintByID, KindLandmarkStatus, KindFootprintByID, KindECBViolationByID:
		if p.ID == "" {
			missing = "identifier"
		}
	case KindEmissionsByProperty, KindPropertyAssessment, KindTaxBill, KindTaxLien,
		KindEnergyRating, KindHearingsByID:
		if p.Key == "" {
			missing = "property key"
		}
	case KindViolationByAddress, KindPermitByAddress, KindComplaintByAddress,
		KindConstructionByAddress, KindLicenseByAddress, KindAirQualityByAddress:
		if p.Address == "" {
			missing = "address"
		}
	case KindScheduleByDistrict:
		if p.District == "" {
			missing = "district"
		}
	case KindFootprintByLocation:
		if p.Point == nil || p.RadiusM <= 0 {
			missing = "point and radius"
		}
	case KindGrouped:
		if len(v.ids) == 0 {
			missing = "identifiers"
		}
	default:
		return eris.Errorf("endpoint: unknown kind %d", int(v.kind))
	}
	if missing != "" {
		return eris.Errorf("endpoint: %s requires %s", v.kind, missing)
	}
	return nil
}

func (v Variant) limit() int {
	if v.params.Limit > 0 {
		return v.params.Limit
	}
	return DefaultLimit
}

// URL renders the request URL against base (scheme and host, optionally a
// path prefix).
func (v Variant) URL(base string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	q := url.Values{}
	if w := v.where(); w != "" {
		q.Set("$where", w)
	}
	if text := v.fullText(); text != "" {
		q.Set("$q", text)
	}
	if o := v.order(); o != "" {
		q.Set("$order", o)
	}
	q.Set("$limit", strconv.Itoa(v.limit()))
	return strings.TrimRight(base, "/") + "/resource/" + v.Dataset() + ".json?" + q.Encode()
}

func (v Variant) where() string {
	p := v.params
	var clauses []string
	switch v.kind {
	case KindViolationByID, KindInspectionByID, KindComplaintByID, KindFootprintByID,
		KindECBViolationByID:
		clauses = append(clauses, eq("bin", p.ID))
	case KindPermitByID:
		clauses = append(clauses, eq("bin__", p.ID))
	case KindLandmarkStatus:
		clauses = append(clauses, eq("bin_number", p.ID))
	case KindWaterByAccount:
		clauses = append(clauses, eq("account_number", p.ID))
	case KindScheduleByDistrict:
		clauses = append(clauses, eq("district", p.District))
	case KindEmissionsByProperty:
		clauses = append(clauses, eq("nyc_borough_block_and_lot", p.Key))
	case KindPropertyAssessment:
		clauses = append(clauses, eq("parid", p.Key))
	case KindTaxBill, KindEnergyRating:
		clauses = append(clauses, eq("bbl", p.Key))
	case KindTaxLien:
		clauses = append(clauses, lienWhere(p.Key))
	case KindHearingsByID:
		clauses = append(clauses, "upper(issuing_agency) like '%BUILDINGS%'", hearingWhere(p.Key))
	case KindFootprintByLocation:
		clauses = append(clauses, circle(p.Point, p.RadiusM))
	case KindViolationByAddress:
		clauses = append(clauses, addressWhere(p.Address, "house_number", "street"))
	case KindPermitByAddress:
		clauses = append(clauses, addressWhere(p.Address, "house__", "street_name"))
	case KindComplaintByAddress:
		clauses = append(clauses, addressWhere(p.Address, "house_number", "house_street"))
	case KindConstructionByAddress:
		clauses = append(clauses, addressWhere(p.Address, "house_no", "street_name"))
	case KindLicenseByAddress:
		clauses = append(clauses, addressWhere(p.Address, "address_building", "address_street_name"))
	case KindAirQualityByAddress:
		clauses = append(clauses, addressWhere(p.Address, "housenum", "streetname"))
	case KindGrouped:
		clauses = append(clauses, in(v.family.IDColumn, v.ids))
	}

	if col := v.kind.columns(v.family).date; col != "" {
		if !p.Since.IsZero() {
			clauses = append(clauses, col+" >= "+quote(floating(p.Since)))
		}
		if !p.Until.IsZero() {
			clauses = append(clauses, col+" <= "+quote(floating(p.Until)))
		}
	}
	return joinAnd(clauses)
}

// fullText is the $q search used by address variants without a house number.
func (v Variant) fullText() string {
	if !v.kind.ByAddress() {
		return ""
	}
	if house, _ := property.SplitAddress(v.params.Address); house != "" {
		return ""
	}
	return v.params.Address
}

func (v Variant) order() string {
	switch v.kind {
	case KindScheduleByDistrict, KindLandmarkStatus, KindFootprintByID, KindFootprintByLocation:
		return ""
	case KindPropertyAssessment:
		return "year DESC"
	default:
		if col := v.kind.columns(v.family).date; col != "" {
			return col + " DESC"
		}
		return ""
	}
}

// CacheKey returns a key unique to the variant's kind and parameters.
// Address-keyed variants hash the normalized address.
func (v Variant) CacheKey() string {
	p := v.params
	var subject string
	switch v.kind {
	case KindViolationByAddress, KindPermitByAddress, KindComplaintByAddress,
		KindConstructionByAddress, KindLicenseByAddress, KindAirQualityByAddress:
		subject = hash(strings.ToUpper(p.Address))
	case KindFootprintByLocation:
		if p.Point != nil {
			subject = fmt.Sprintf("%.6f,%.6f,%g", p.Point.Y(), p.Point.X(), p.RadiusM)
		}
	case KindGrouped:
		subject = v.family.Name + ":" + hash(strings.Join(v.ids, ","))
	case KindScheduleByDistrict:
		subject = p.District
	case KindEmissionsByProperty, KindPropertyAssessment, KindTaxBill, KindTaxLien,
		KindEnergyRating, KindHearingsByID:
		subject = p.Key
	case KindViolationByID, KindPermitByID, KindWaterByAccount, KindInspectionByID,
		KindComplaintByID, KindLandmarkStatus, KindFootprintByID, KindECBViolationByID:
		subject = p.ID
	}

	key := v.kind.String() + ":" + subject
	if !p.Since.IsZero() {
		key += ":since=" + floating(p.Since)
	}
	if !p.Until.IsZero() {
		key += ":until=" + floating(p.Until)
	}
	if p.Limit > 0 && p.Limit != DefaultLimit && v.kind != KindGrouped {
		key += ":limit=" + strconv.Itoa(p.Limit)
	}
	return key
}

func hash(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}
