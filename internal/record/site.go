package record

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Landmark is a designated landmark or historic-district building.
type Landmark struct {
	LPNumber   string `json:"lpc_lpnumb"`
	Name       string `json:"lpc_name"`
	BBL        string `json:"bbl,omitempty"`
	BIN        string `json:"bin_number,omitempty"`
	Designated Date   `json:"desig_date"`
	Type       string `json:"landmark_type,omitempty"`
	LastAction string `json:"last_action,omitempty"`
}

// Validate implements Validator.
func (l Landmark) Validate() error {
	return validate("landmark",
		has("lpc_lpnumb", l.LPNumber),
		has("lpc_name", l.Name),
	)
}

// Landmarks decodes the designated-buildings dataset.
var Landmarks = newSchema("landmarks",
	func(l Landmark) Landmark { return l },
	func(r Row) (Landmark, bool) {
		l := Landmark{
			LPNumber:   r.Str("lpc_lpnumb"),
			Name:       r.Str("lpc_name"),
			BBL:        r.Str("bbl"),
			BIN:        r.Str("bin_number", "bin"),
			Designated: r.Date("desig_date"),
			Type:       r.Str("landmark_type", "lm_type"),
			LastAction: r.Str("last_action"),
		}
		return l, l.LPNumber != ""
	},
	func(l Landmark) string { return l.BIN },
)

// Footprint is the outline and vintage of a building.
type Footprint struct {
	BIN          string            `json:"bin"`
	BBL          string            `json:"base_bbl,omitempty"`
	YearBuilt    string            `json:"cnstrct_yr,omitempty"`
	HeightRoof   Amount            `json:"heightroof,omitempty"`
	LastModified Date              `json:"lstmoddate"`
	LastStatus   string            `json:"lststatype,omitempty"`
	Geometry     *geojson.Geometry `json:"the_geom,omitempty"`
}

// Validate implements Validator.
func (f Footprint) Validate() error {
	return validate("footprint",
		has("bin", f.BIN),
		check{field: "the_geom", ok: f.Geometry != nil},
	)
}

// Shape decodes the footprint outline.
func (f Footprint) Shape() (geom.T, error) {
	if f.Geometry == nil {
		return nil, eris.Errorf("record: footprint %s has no geometry", f.BIN)
	}
	g, err := f.Geometry.Decode()
	if err != nil {
		return nil, eris.Wrapf(err, "record: footprint %s geometry", f.BIN)
	}
	return g, nil
}

// Footprints decodes the building-footprints dataset.
var Footprints = newSchema("footprints",
	func(f Footprint) Footprint { return f },
	func(r Row) (Footprint, bool) {
		f := Footprint{
			BIN:          r.Str("bin"),
			BBL:          r.Str("base_bbl", "mpluto_bbl"),
			YearBuilt:    r.Str("cnstrct_yr", "construction_year"),
			HeightRoof:   r.Amount("heightroof", "height_roof"),
			LastModified: r.Date("lstmoddate", "last_edited_date"),
			LastStatus:   r.Str("lststatype"),
		}
		if raw := r.Raw("the_geom"); len(raw) > 0 {
			var g geojson.Geometry
			if err := json.Unmarshal(raw, &g); err == nil && g.Type != "" {
				f.Geometry = &g
			}
		}
		return f, f.BIN != ""
	},
	func(f Footprint) string { return f.BIN },
)

// Schedule is the sanitation collection schedule for a district.
type Schedule struct {
	District      string `json:"district"`
	Borough       string `json:"borough,omitempty"`
	Refuse        string `json:"refuse_days,omitempty"`
	Recycling     string `json:"recycling_days,omitempty"`
	Organics      string `json:"organics_days,omitempty"`
	Bulk          string `json:"bulk_days,omitempty"`
	EffectiveDate Date   `json:"effective_date"`
	Status        string `json:"status,omitempty"`
}

// Validate implements Validator.
func (s Schedule) Validate() error {
	return validate("schedule",
		has("district", s.District),
		check{field: "collection days", ok: s.Refuse != "" || s.Recycling != ""},
	)
}

// Schedules decodes the collection-schedule dataset.
var Schedules = newSchema("schedules",
	func(s Schedule) Schedule { return s },
	func(r Row) (Schedule, bool) {
		s := Schedule{
			District:      r.Str("district", "section"),
			Borough:       r.Str("borough"),
			Refuse:        r.Str("refuse_days", "freq_refuse"),
			Recycling:     r.Str("recycling_days", "freq_recycling"),
			Organics:      r.Str("organics_days", "freq_organics"),
			Bulk:          r.Str("bulk_days", "freq_bulk"),
			EffectiveDate: r.Date("effective_date"),
			Status:        r.Str("status"),
		}
		return s, s.District != ""
	},
	func(s Schedule) string { return s.District },
)

// License is a business license issued at an address.
type License struct {
	Number       string `json:"license_nbr"`
	BusinessName string `json:"business_name"`
	Status       string `json:"license_status"`
	Created      Date   `json:"license_creation_date"`
	Expires      Date   `json:"lic_expir_dd"`
	Industry     string `json:"industry,omitempty"`
	HouseNumber  string `json:"address_building,omitempty"`
	Street       string `json:"address_street_name,omitempty"`
}

// Validate implements Validator.
func (l License) Validate() error {
	return validate("license",
		has("license_nbr", l.Number),
		has("business_name", l.BusinessName),
		has("license_status", l.Status),
	)
}

// Licenses decodes the issued-licenses dataset.
var Licenses = newSchema("licenses",
	func(l License) License { return l },
	func(r Row) (License, bool) {
		l := License{
			Number:       r.Str("license_nbr"),
			BusinessName: r.Str("business_name", "dba_trade_name"),
			Status:       r.Str("license_status"),
			Created:      r.Date("license_creation_date"),
			Expires:      r.Date("lic_expir_dd"),
			Industry:     r.Str("industry", "business_category"),
			HouseNumber:  r.Str("address_building"),
			Street:       r.Str("address_street_name"),
		}
		return l, l.Number != ""
	},
	nil,
)
