package record

// Permit is a building-permit issuance record.
type Permit struct {
	ID             string `json:"permit_si_no"`
	JobNumber      string `json:"job__,omitempty"`
	BIN            string `json:"bin__"`
	HouseNumber    string `json:"house__,omitempty"`
	Street         string `json:"street_name,omitempty"`
	JobType        string `json:"job_type,omitempty"`
	WorkType       string `json:"work_type,omitempty"`
	Status         string `json:"permit_status"`
	PermitType     string `json:"permit_type,omitempty"`
	IssuanceDate   Date   `json:"issuance_date"`
	ExpirationDate Date   `json:"expiration_date"`
}

// Validate implements Validator.
func (p Permit) Validate() error {
	return validate("permit",
		has("permit_si_no", p.ID),
		has("bin__", p.BIN),
		has("permit_status", p.Status),
		hasDate("issuance_date", p.IssuanceDate),
	)
}

// Permits decodes the permit-issuance dataset.
var Permits = newSchema("permits",
	func(p Permit) Permit { return p },
	func(r Row) (Permit, bool) {
		p := Permit{
			ID:             r.Str("permit_si_no", "permit_sequence__"),
			JobNumber:      r.Str("job__", "job_number"),
			BIN:            r.Str("bin__", "bin"),
			HouseNumber:    r.Str("house__", "house_number"),
			Street:         r.Str("street_name"),
			JobType:        r.Str("job_type"),
			WorkType:       r.Str("work_type"),
			Status:         r.Str("permit_status"),
			PermitType:     r.Str("permit_type"),
			IssuanceDate:   r.Date("issuance_date"),
			ExpirationDate: r.Date("expiration_date"),
		}
		if p.ID == "" {
			p.ID = p.JobNumber
		}
		return p, p.ID != ""
	},
	func(p Permit) string { return p.BIN },
)

// Construction is a work permit filed through the newer job-filing system.
type Construction struct {
	JobFilingNumber string `json:"job_filing_number"`
	WorkPermit      string `json:"work_permit,omitempty"`
	BIN             string `json:"bin,omitempty"`
	HouseNumber     string `json:"house_no,omitempty"`
	Street          string `json:"street_name,omitempty"`
	IssuedDate      Date   `json:"issued_date"`
	ExpiredDate     Date   `json:"expired_date"`
	Status          string `json:"permit_status"`
	WorkType        string `json:"work_type,omitempty"`
	EstimatedCost   Amount `json:"estimated_job_costs,omitempty"`
	Description     string `json:"job_description,omitempty"`
}

// Validate implements Validator.
func (c Construction) Validate() error {
	return validate("construction",
		has("job_filing_number", c.JobFilingNumber),
		has("permit_status", c.Status),
		hasDate("issued_date", c.IssuedDate),
	)
}

// Constructions decodes the job-filing work-permit dataset.
var Constructions = newSchema("construction",
	func(c Construction) Construction { return c },
	func(r Row) (Construction, bool) {
		c := Construction{
			JobFilingNumber: r.Str("job_filing_number"),
			WorkPermit:      r.Str("work_permit"),
			BIN:             r.Str("bin"),
			HouseNumber:     r.Str("house_no"),
			Street:          r.Str("street_name"),
			IssuedDate:      r.Date("issued_date"),
			ExpiredDate:     r.Date("expired_date"),
			Status:          r.Str("permit_status"),
			WorkType:        r.Str("work_type"),
			EstimatedCost:   r.Amount("estimated_job_costs"),
			Description:     r.Str("job_description"),
		}
		return c, c.JobFilingNumber != ""
	},
	func(c Construction) string { return c.BIN },
)
