// Package report defines the verification report model: severity-tagged
// findings grouped into a fixed, ordered set of categories. Reports are
// built once by the engine and immutable afterwards; the presentation layer
// only reads them.
package report

// Severity grades one finding.
type Severity string

const (
	Info     Severity = "Info"
	Warning  Severity = "Warning"
	Critical Severity = "Critical"
)

// rank orders severities for the report summary (higher is worse).
func (s Severity) rank() int {
	switch s {
	case Critical:
		return 2
	case Warning:
		return 1
	default:
		return 0
	}
}

// Category names one report section.
type Category string

const (
	CategoryPlan      Category = "Plan"
	CategoryDose      Category = "Dose"
	CategoryBeam      Category = "Beam"
	CategoryStructure Category = "Structure"
	CategoryIsocenter Category = "Isocenter"
	CategoryStatus    Category = "Status"
)

// Categories is the fixed report section order. Every report carries all of
// them, even when a section degrades to a data-unavailable finding.
var Categories = []Category{
	CategoryPlan,
	CategoryDose,
	CategoryBeam,
	CategoryStructure,
	CategoryIsocenter,
	CategoryStatus,
}

// Finding is one verification observation.
type Finding struct {
	Category  Category `json:"category"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Checklist []string `json:"checklist,omitempty"` // unchecked action items
}

// Section is one ordered category of findings.
type Section struct {
	Category Category  `json:"category"`
	Findings []Finding `json:"findings"`
}

// Report is the ordered category -> findings mapping for one plan check.
type Report struct {
	PatientID string    `json:"patient_id"`
	PlanID    string    `json:"plan_id"`
	Sections  []Section `json:"sections"`
}

// Section returns the section for a category. Every built report carries
// all six, so lookups on a built report always succeed.
func (r *Report) Section(c Category) (Section, bool) {
	for _, s := range r.Sections {
		if s.Category == c {
			return s, true
		}
	}
	return Section{}, false
}

// WorstSeverity returns the highest severity present in the report.
func (r *Report) WorstSeverity() Severity {
	worst := Info
	for _, s := range r.Sections {
		for _, f := range s.Findings {
			if f.Severity.rank() > worst.rank() {
				worst = f.Severity
			}
		}
	}
	return worst
}

// Count returns the number of findings at the given severity.
func (r *Report) Count(sev Severity) int {
	var n int
	for _, s := range r.Sections {
		for _, f := range s.Findings {
			if f.Severity == sev {
				n++
			}
		}
	}
	return n
}

// Aggregate merges per-category finding lists into a complete report. The
// merge is pure: finding order inside a category follows the order the
// analyzers produced, nothing is dropped or resorted, and a category with
// no findings gets an explicit data-unavailable placeholder so all six
// sections are always present.
func Aggregate(patientID, planID string, findings []Finding) *Report {
	byCategory := map[Category][]Finding{}
	for _, f := range findings {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	r := &Report{PatientID: patientID, PlanID: planID}
	for _, c := range Categories {
		fs := byCategory[c]
		if len(fs) == 0 {
			fs = []Finding{{
				Category: c,
				Severity: Info,
				Message:  "data unavailable: no input produced findings for this category",
			}}
		}
		r.Sections = append(r.Sections, Section{Category: c, Findings: fs})
	}
	return r
}
