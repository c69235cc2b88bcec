package record

// Complaint is a complaint received about a building.
type Complaint struct {
	Number          string `json:"complaint_number"`
	Status          string `json:"status"`
	DateEntered     Date   `json:"date_entered"`
	HouseNumber     string `json:"house_number,omitempty"`
	Street          string `json:"house_street,omitempty"`
	BIN             string `json:"bin"`
	Category        string `json:"complaint_category,omitempty"`
	DispositionDate Date   `json:"disposition_date"`
	DispositionCode string `json:"disposition_code,omitempty"`
}

// Validate implements Validator.
func (c Complaint) Validate() error {
	return validate("complaint",
		has("complaint_number", c.Number),
		has("status", c.Status),
		hasDate("date_entered", c.DateEntered),
		has("bin", c.BIN),
	)
}

// Complaints decodes the complaints-received dataset.
var Complaints = newSchema("complaints",
	func(c Complaint) Complaint { return c },
	func(r Row) (Complaint, bool) {
		c := Complaint{
			Number:          r.Str("complaint_number"),
			Status:          r.Str("status"),
			DateEntered:     r.Date("date_entered"),
			HouseNumber:     r.Str("house_number"),
			Street:          r.Str("house_street"),
			BIN:             r.Str("bin"),
			Category:        r.Str("complaint_category"),
			DispositionDate: r.Date("disposition_date"),
			DispositionCode: r.Str("disposition_code"),
		}
		return c, c.Number != ""
	},
	func(c Complaint) string { return c.BIN },
)

// Inspection is a field inspection performed at a building.
type Inspection struct {
	ID           string `json:"job_ticket_or_work_order_id"`
	BBL          string `json:"bbl,omitempty"`
	BIN          string `json:"bin"`
	Type         string `json:"inspection_type"`
	Result       string `json:"result"`
	Date         Date   `json:"inspection_date"`
	ApprovedDate Date   `json:"approved_date"`
}

// Validate implements Validator.
func (i Inspection) Validate() error {
	return validate("inspection",
		has("job_ticket_or_work_order_id", i.ID),
		has("bin", i.BIN),
		has("result", i.Result),
		hasDate("inspection_date", i.Date),
	)
}

// Inspections decodes the inspections dataset.
var Inspections = newSchema("inspections",
	func(i Inspection) Inspection { return i },
	func(r Row) (Inspection, bool) {
		i := Inspection{
			ID:           r.Str("job_ticket_or_work_order_id", "job_id"),
			BBL:          r.Str("bbl"),
			BIN:          r.Str("bin"),
			Type:         r.Str("inspection_type"),
			Result:       r.Str("result"),
			Date:         r.Date("inspection_date"),
			ApprovedDate: r.Date("approved_date"),
		}
		return i, i.ID != ""
	},
	func(i Inspection) string { return i.BIN },
)
