package endpoint

// DefaultBaseURL is the open-data host every dataset below lives on.
const DefaultBaseURL = "https://data.cityofnewyork.us"

// Dataset identifiers on the open-data host.
const (
	DatasetViolations    = "3h2n-5cm9"
	DatasetECBViolations = "6bgk-3dad"
	DatasetHearings      = "jz4z-kudi"
	DatasetPermits       = "ipu4-2q9a"
	DatasetConstruction  = "rbx6-tga4"
	DatasetComplaints    = "eabe-havv"
	DatasetInspections   = "p937-wjvj"
	DatasetSchedules     = "p7k6-2pm8"
	DatasetEmissions     = "5zyy-y8am"
	DatasetWater         = "66be-66yr"
	DatasetAssessments   = "8y4t-faws"
	DatasetTaxBills      = "scjx-j6np"
	DatasetTaxLiens      = "9rz4-mjek"
	DatasetEnergyRatings = "7x5e-2fxh"
	DatasetLandmarks     = "7mgd-s57w"
	DatasetFootprints    = "5zhs-2jue"
	DatasetLicenses      = "w7w3-xahh"
	DatasetAirQuality    = "f4rp-2kvy"
)

// Row caps.
const (
	DefaultLimit = 1000
	GroupedLimit = 50000
)

// Family describes a dataset that supports set-membership batch queries.
type Family struct {
	Name       string
	Dataset    string
	IDColumn   string
	DateColumn string
}

// Families queried in batch.
var (
	FamilyViolations  = Family{Name: "violations", Dataset: DatasetViolations, IDColumn: "bin", DateColumn: "issue_date"}
	FamilyPermits     = Family{Name: "permits", Dataset: DatasetPermits, IDColumn: "bin__", DateColumn: "issuance_date"}
	FamilyComplaints  = Family{Name: "complaints", Dataset: DatasetComplaints, IDColumn: "bin", DateColumn: "date_entered"}
	FamilyInspections = Family{Name: "inspections", Dataset: DatasetInspections, IDColumn: "bin", DateColumn: "inspection_date"}
)

// FamilyByName looks up one of the batch families.
func FamilyByName(name string) (Family, bool) {
	for _, f := range []Family{FamilyViolations, FamilyPermits, FamilyComplaints, FamilyInspections} {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// column set for kinds that query a single dataset.
type columns struct {
	dataset string
	date    string
}

func (k Kind) columns(f Family) columns {
	switch k {
	case KindViolationByID, KindViolationByAddress:
		return columns{DatasetViolations, "issue_date"}
	case KindPermitByID, KindPermitByAddress:
		return columns{DatasetPermits, "issuance_date"}
	case KindScheduleByDistrict:
		return columns{DatasetSchedules, ""}
	case KindEmissionsByProperty:
		return columns{DatasetEmissions, "year_ending"}
	case KindWaterByAccount:
		return columns{DatasetWater, "service_end_date"}
	case KindInspectionByID:
		return columns{DatasetInspections, "inspection_date"}
	case KindComplaintByID, KindComplaintByAddress:
		return columns{DatasetComplaints, "date_entered"}
	case KindPropertyAssessment:
		return columns{DatasetAssessments, ""}
	case KindTaxBill:
		return columns{DatasetTaxBills, "due_date"}
	case KindTaxLien:
		return columns{DatasetTaxLiens, "month"}
	case KindEnergyRating:
		return columns{DatasetEnergyRatings, "generation_date"}
	case KindLandmarkStatus:
		return columns{DatasetLandmarks, ""}
	case KindFootprintByID, KindFootprintByLocation:
		return columns{DatasetFootprints, ""}
	case KindConstructionByAddress:
		return columns{DatasetConstruction, "issued_date"}
	case KindLicenseByAddress:
		return columns{DatasetLicenses, "license_creation_date"}
	case KindAirQualityByAddress:
		return columns{DatasetAirQuality, "issuedate"}
	case KindHearingsByID:
		return columns{DatasetHearings, "violation_date"}
	case KindECBViolationByID:
		return columns{DatasetECBViolations, "issue_date"}
	case KindGrouped:
		return columns{f.Dataset, f.DateColumn}
	default:
		return columns{}
	}
}
