package record

import "strings"

// Violation sources.
const (
	SourceDOB      = "dob"
	SourceECB      = "ecb"
	SourceHearings = "hearings"
)

// Violation is a building-code violation from any of the violation datasets.
type Violation struct {
	ID              string `json:"isn_dob_bis_viol"`
	Number          string `json:"violation_number,omitempty"`
	BIN             string `json:"bin"`
	HouseNumber     string `json:"house_number,omitempty"`
	Street          string `json:"street,omitempty"`
	IssueDate       Date   `json:"issue_date"`
	Type            string `json:"violation_type"`
	Category        string `json:"violation_category"`
	Description     string `json:"description,omitempty"`
	DispositionDate Date   `json:"disposition_date"`
	Severity        string `json:"severity,omitempty"`
	Penalty         Amount `json:"penalty_imposed,omitempty"`
	BalanceDue      Amount `json:"balance_due,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Validate implements Validator.
func (v Violation) Validate() error {
	return validate("violation",
		has("isn_dob_bis_viol", v.ID),
		has("bin", v.BIN),
		hasDate("issue_date", v.IssueDate),
		has("violation_type", v.Type),
		has("violation_category", v.Category),
	)
}

// Open reports whether the violation is still active.
func (v Violation) Open() bool {
	status := strings.ToUpper(v.Category)
	switch v.Source {
	case SourceECB, SourceHearings:
		return status != "RESOLVE" && !strings.Contains(status, "PAID") && !strings.Contains(status, "DISMISS")
	default:
		return strings.Contains(status, "ACTIVE")
	}
}

// Violations decodes the primary building-violation dataset.
var Violations = newSchema("violations",
	func(v Violation) Violation {
		v.Source = SourceDOB
		return v
	},
	func(r Row) (Violation, bool) {
		v := Violation{
			ID:              r.Str("isn_dob_bis_viol"),
			Number:          r.Str("violation_number", "number"),
			BIN:             r.Str("bin"),
			HouseNumber:     r.Str("house_number"),
			Street:          r.Str("street"),
			IssueDate:       r.Date("issue_date"),
			Type:            r.Str("violation_type", "violation_type_code"),
			Category:        r.Str("violation_category"),
			Description:     r.Str("description"),
			DispositionDate: r.Date("disposition_date"),
			Source:          SourceDOB,
		}
		if v.ID == "" {
			v.ID = v.Number
		}
		return v, v.ID != ""
	},
	func(v Violation) string { return v.BIN },
)

// ecbViolation is the wire shape of the legacy environmental-control dataset.
type ecbViolation struct {
	Number      string `json:"ecb_violation_number"`
	BIN         string `json:"bin"`
	IssueDate   Date   `json:"issue_date"`
	Status      string `json:"ecb_violation_status"`
	Type        string `json:"violation_type"`
	Severity    string `json:"severity"`
	Description string `json:"violation_description"`
	Penalty     Amount `json:"penality_imposed"`
	BalanceDue  Amount `json:"balance_due"`
	HouseNumber string `json:"respondent_house_number"`
	Street      string `json:"respondent_street"`
}

func (e ecbViolation) Validate() error {
	return validate("ecb violation",
		has("ecb_violation_number", e.Number),
		has("bin", e.BIN),
		hasDate("issue_date", e.IssueDate),
		has("ecb_violation_status", e.Status),
	)
}

func (e ecbViolation) violation() Violation {
	return Violation{
		ID:          e.Number,
		Number:      e.Number,
		BIN:         e.BIN,
		HouseNumber: e.HouseNumber,
		Street:      e.Street,
		IssueDate:   e.IssueDate,
		Type:        e.Type,
		Category:    e.Status,
		Description: e.Description,
		Severity:    e.Severity,
		Penalty:     e.Penalty,
		BalanceDue:  e.BalanceDue,
		Source:      SourceECB,
	}
}

// ECBViolations decodes the legacy environmental-control violation dataset
// into Violation values.
var ECBViolations = newSchema("ecb_violations",
	ecbViolation.violation,
	func(r Row) (Violation, bool) {
		e := ecbViolation{
			Number:      r.Str("ecb_violation_number"),
			BIN:         r.Str("bin"),
			IssueDate:   r.Date("issue_date"),
			Status:      r.Str("ecb_violation_status"),
			Type:        r.Str("violation_type"),
			Severity:    r.Str("severity"),
			Description: r.Str("violation_description"),
			Penalty:     r.Amount("penality_imposed", "penalty_imposed"),
			BalanceDue:  r.Amount("balance_due"),
			HouseNumber: r.Str("respondent_house_number"),
			Street:      r.Str("respondent_street"),
		}
		return e.violation(), e.Number != ""
	},
	func(v Violation) string { return v.BIN },
)

// Hearing is a summons adjudicated at the administrative hearings office.
type Hearing struct {
	TicketNumber  string `json:"ticket_number"`
	ViolationDate Date   `json:"violation_date"`
	IssuingAgency string `json:"issuing_agency"`
	Status        string `json:"hearing_status"`
	Result        string `json:"hearing_result,omitempty"`
	Description   string `json:"charge_1_code_description,omitempty"`
	Penalty       Amount `json:"penalty_imposed,omitempty"`
	BalanceDue    Amount `json:"balance_due,omitempty"`
	HouseNumber   string `json:"violation_location_house,omitempty"`
	Street        string `json:"violation_location_street_name,omitempty"`
	Borough       string `json:"violation_location_borough,omitempty"`
	Block         string `json:"violation_location_block_no,omitempty"`
	Lot           string `json:"violation_location_lot_no,omitempty"`
}

// Validate implements Validator.
func (h Hearing) Validate() error {
	return validate("hearing",
		has("ticket_number", h.TicketNumber),
		hasDate("violation_date", h.ViolationDate),
		has("issuing_agency", h.IssuingAgency),
		has("hearing_status", h.Status),
	)
}

// AsViolation maps the hearing onto the common Violation shape. bin is
// supplied by the caller because the hearings dataset does not carry it.
func (h Hearing) AsViolation(bin string) Violation {
	category := h.Status
	if h.Result != "" {
		category = h.Result
	}
	return Violation{
		ID:          h.TicketNumber,
		Number:      h.TicketNumber,
		BIN:         bin,
		HouseNumber: h.HouseNumber,
		Street:      h.Street,
		IssueDate:   h.ViolationDate,
		Type:        h.IssuingAgency,
		Category:    category,
		Description: h.Description,
		Penalty:     h.Penalty,
		BalanceDue:  h.BalanceDue,
		Source:      SourceHearings,
	}
}

// Hearings decodes the hearings dataset.
var Hearings = newSchema("hearings",
	func(h Hearing) Hearing { return h },
	func(r Row) (Hearing, bool) {
		h := Hearing{
			TicketNumber:  r.Str("ticket_number"),
			ViolationDate: r.Date("violation_date"),
			IssuingAgency: r.Str("issuing_agency"),
			Status:        r.Str("hearing_status"),
			Result:        r.Str("hearing_result"),
			Description:   r.Str("charge_1_code_description"),
			Penalty:       r.Amount("penalty_imposed"),
			BalanceDue:    r.Amount("balance_due"),
			HouseNumber:   r.Str("violation_location_house"),
			Street:        r.Str("violation_location_street_name"),
			Borough:       r.Str("violation_location_borough"),
			Block:         r.Str("violation_location_block_no"),
			Lot:           r.Str("violation_location_lot_no"),
		}
		return h, h.TicketNumber != ""
	},
	nil,
)
