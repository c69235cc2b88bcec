package record

// Emission is an annual energy and water benchmarking submission.
type Emission struct {
	PropertyID   string `json:"property_id"`
	BBL          string `json:"nyc_borough_block_and_lot,omitempty"`
	BIN          string `json:"nyc_building_identification,omitempty"`
	YearEnding   Date   `json:"year_ending"`
	TotalGHG     Amount `json:"total_ghg_emissions_metric,omitempty"`
	EnergyStar   string `json:"energy_star_score,omitempty"`
	SiteEUI      Amount `json:"site_eui_kbtu_ft,omitempty"`
	ReportStatus string `json:"report_status,omitempty"`
}

// Validate implements Validator.
func (e Emission) Validate() error {
	return validate("emission",
		has("property_id", e.PropertyID),
		hasDate("year_ending", e.YearEnding),
	)
}

// Emissions decodes the energy and water benchmarking dataset.
var Emissions = newSchema("emissions",
	func(e Emission) Emission { return e },
	func(r Row) (Emission, bool) {
		e := Emission{
			PropertyID:   r.Str("property_id"),
			BBL:          r.Str("nyc_borough_block_and_lot"),
			BIN:          r.Str("nyc_building_identification"),
			YearEnding:   r.Date("year_ending"),
			TotalGHG:     r.Amount("total_ghg_emissions_metric", "total_location_based_ghg"),
			EnergyStar:   r.Str("energy_star_score"),
			SiteEUI:      r.Amount("site_eui_kbtu_ft", "site_eui_kbtu_ft2"),
			ReportStatus: r.Str("report_status"),
		}
		return e, e.PropertyID != ""
	},
	func(e Emission) string { return e.BIN },
)

// EnergyRating is the posted energy-efficiency grade of a building.
type EnergyRating struct {
	BBL            string `json:"bbl"`
	Score          string `json:"energy_star_1_100_score,omitempty"`
	Grade          string `json:"letter_grade"`
	GrossSqFt      Amount `json:"dof_gross_square_footage,omitempty"`
	StreetNumber   string `json:"street_number,omitempty"`
	StreetName     string `json:"street_name,omitempty"`
	GenerationDate Date   `json:"generation_date"`
}

// Validate implements Validator.
func (e EnergyRating) Validate() error {
	return validate("energy rating",
		has("bbl", e.BBL),
		has("letter_grade", e.Grade),
	)
}

// EnergyRatings decodes the building energy-grade dataset.
var EnergyRatings = newSchema("energy_ratings",
	func(e EnergyRating) EnergyRating { return e },
	func(r Row) (EnergyRating, bool) {
		e := EnergyRating{
			BBL:            r.Str("bbl", "bbl_10_digits"),
			Score:          r.Str("energy_star_1_100_score"),
			Grade:          r.Str("letter_grade", "energy_efficiency_grade"),
			GrossSqFt:      r.Amount("dof_gross_square_footage"),
			StreetNumber:   r.Str("street_number"),
			StreetName:     r.Str("street_name"),
			GenerationDate: r.Date("generation_date"),
		}
		return e, e.BBL != ""
	},
	func(e EnergyRating) string { return e.BBL },
)

// WaterReading is one water and sewer billing period for an account.
type WaterReading struct {
	BillID       string `json:"umis_bill_id"`
	Account      string `json:"account_number,omitempty"`
	ServiceStart Date   `json:"service_start_date"`
	ServiceEnd   Date   `json:"service_end_date"`
	Consumption  Amount `json:"consumption_hcf"`
	Charges      Amount `json:"current_charges,omitempty"`
	Estimated    string `json:"estimated,omitempty"`
	RateClass    string `json:"rate_class,omitempty"`
}

// Validate implements Validator.
func (w WaterReading) Validate() error {
	return validate("water reading",
		has("umis_bill_id", w.BillID),
		hasDate("service_start_date", w.ServiceStart),
		hasDate("service_end_date", w.ServiceEnd),
	)
}

// WaterReadings decodes the water consumption and cost dataset.
var WaterReadings = newSchema("water",
	func(w WaterReading) WaterReading { return w },
	func(r Row) (WaterReading, bool) {
		w := WaterReading{
			BillID:       r.Str("umis_bill_id"),
			Account:      r.Str("account_number", "account_name"),
			ServiceStart: r.Date("service_start_date"),
			ServiceEnd:   r.Date("service_end_date"),
			Consumption:  r.Amount("consumption_hcf"),
			Charges:      r.Amount("current_charges"),
			Estimated:    r.Str("estimated"),
			RateClass:    r.Str("rate_class"),
		}
		return w, w.BillID != ""
	},
	func(w WaterReading) string { return w.Account },
)

// AirQuality is a boiler or emission-source registration with the
// environmental protection agency.
type AirQuality struct {
	RequestID      string `json:"requestid"`
	Applicant      string `json:"applicantname,omitempty"`
	Status         string `json:"status"`
	IssueDate      Date   `json:"issuedate"`
	ExpirationDate Date   `json:"expiration_date"`
	HouseNumber    string `json:"housenum,omitempty"`
	Street         string `json:"streetname,omitempty"`
	BIN            string `json:"bin,omitempty"`
	RequestType    string `json:"requesttype,omitempty"`
}

// Validate implements Validator.
func (a AirQuality) Validate() error {
	return validate("air quality",
		has("requestid", a.RequestID),
		has("status", a.Status),
	)
}

// AirQualityPermits decodes the air-permit registration dataset.
var AirQualityPermits = newSchema("air_quality",
	func(a AirQuality) AirQuality { return a },
	func(r Row) (AirQuality, bool) {
		a := AirQuality{
			RequestID:      r.Str("requestid"),
			Applicant:      r.Str("applicantname"),
			Status:         r.Str("status"),
			IssueDate:      r.Date("issuedate"),
			ExpirationDate: r.Date("expiration_date", "expirationdate"),
			HouseNumber:    r.Str("housenum"),
			Street:         r.Str("streetname"),
			BIN:            r.Str("bin"),
			RequestType:    r.Str("requesttype"),
		}
		return a, a.RequestID != ""
	},
	func(a AirQuality) string { return a.BIN },
)
