package record

import (
	"strings"

	"github.com/sells-group/compliance-gateway/internal/property"
)

// TaxBill is one property-tax charge.
type TaxBill struct {
	BBL        string `json:"bbl"`
	TaxYear    string `json:"tax_year"`
	ChargeCode string `json:"charge_code,omitempty"`
	DueDate    Date   `json:"due_date"`
	Liability  Amount `json:"liability,omitempty"`
	Balance    Amount `json:"balance"`
	Status     string `json:"bill_status,omitempty"`
}

// Validate implements Validator.
func (t TaxBill) Validate() error {
	return validate("tax bill",
		has("bbl", t.BBL),
		has("tax_year", t.TaxYear),
		hasDate("due_date", t.DueDate),
	)
}

// Outstanding reports whether the bill still carries a balance.
func (t TaxBill) Outstanding() bool { return t.Balance > 0 }

// TaxBills decodes the property-tax charges dataset.
var TaxBills = newSchema("tax_bills",
	func(t TaxBill) TaxBill { return t },
	func(r Row) (TaxBill, bool) {
		t := TaxBill{
			BBL:        property.NormalizeKey(r.Str("bbl", "parid")),
			TaxYear:    r.Str("tax_year", "year"),
			ChargeCode: r.Str("charge_code"),
			DueDate:    r.Date("due_date"),
			Liability:  r.Amount("liability"),
			Balance:    r.Amount("balance", "outstanding_amount"),
			Status:     r.Str("bill_status"),
		}
		return t, t.BBL != ""
	},
	func(t TaxBill) string { return t.BBL },
)

// TaxLien is a property listed for a tax-lien sale.
type TaxLien struct {
	Borough       string `json:"borough"`
	Block         string `json:"block"`
	Lot           string `json:"lot"`
	Key           string `json:"key,omitempty"`
	TaxClass      string `json:"tax_class_code,omitempty"`
	BuildingClass string `json:"building_class,omitempty"`
	HouseNumber   string `json:"house_number,omitempty"`
	Street        string `json:"street_name,omitempty"`
	WaterDebtOnly string `json:"water_debt_only,omitempty"`
	Cycle         string `json:"cycle,omitempty"`
	Month         Date   `json:"month"`
}

// Validate implements Validator.
func (l TaxLien) Validate() error {
	return validate("tax lien",
		has("borough", l.Borough),
		has("block", l.Block),
		has("lot", l.Lot),
	)
}

func (l TaxLien) withKey() TaxLien {
	if l.Key == "" {
		l.Key = property.NormalizeKey(strings.Join([]string{l.Borough, l.Block, l.Lot}, "-"))
	}
	return l
}

// TaxLiens decodes the lien-sale list dataset.
var TaxLiens = newSchema("tax_liens",
	TaxLien.withKey,
	func(r Row) (TaxLien, bool) {
		l := TaxLien{
			Borough:       r.Str("borough"),
			Block:         r.Str("block"),
			Lot:           r.Str("lot"),
			TaxClass:      r.Str("tax_class_code"),
			BuildingClass: r.Str("building_class"),
			HouseNumber:   r.Str("house_number"),
			Street:        r.Str("street_name"),
			WaterDebtOnly: r.Str("water_debt_only"),
			Cycle:         r.Str("cycle"),
			Month:         r.Date("month"),
		}
		if l.Borough == "" || l.Block == "" || l.Lot == "" {
			return l, false
		}
		return l.withKey(), true
	},
	func(l TaxLien) string { return l.Key },
)

// Assessment is the assessor's valuation of a property for one year.
type Assessment struct {
	ParcelID      string `json:"parid"`
	Year          string `json:"year"`
	Owner         string `json:"owner,omitempty"`
	BuildingClass string `json:"bldg_class,omitempty"`
	TaxClass      string `json:"tax_class,omitempty"`
	MarketValue   Amount `json:"curmkttot"`
	AssessedValue Amount `json:"curacttot,omitempty"`
	TaxableValue  Amount `json:"curtxbtot,omitempty"`
	ExtractedAt   Date   `json:"extracrdt"`
}

// Validate implements Validator.
func (a Assessment) Validate() error {
	return validate("assessment",
		has("parid", a.ParcelID),
		has("year", a.Year),
	)
}

// Assessments decodes the property valuation and assessment dataset.
var Assessments = newSchema("assessments",
	func(a Assessment) Assessment { return a },
	func(r Row) (Assessment, bool) {
		a := Assessment{
			ParcelID:      r.Str("parid", "bble"),
			Year:          r.Str("year"),
			Owner:         r.Str("owner"),
			BuildingClass: r.Str("bldg_class"),
			TaxClass:      r.Str("tax_class"),
			MarketValue:   r.Amount("curmkttot"),
			AssessedValue: r.Amount("curacttot"),
			TaxableValue:  r.Amount("curtxbtot"),
			ExtractedAt:   r.Date("extracrdt"),
		}
		return a, a.ParcelID != ""
	},
	func(a Assessment) string { return a.ParcelID },
)
