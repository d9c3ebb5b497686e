// Package plan defines the immutable snapshot of one radiotherapy plan that
// the verification engine consumes: prescription, beams, structures, and the
// dose-grid capability. A Snapshot is assembled once by an adapter (see
// loader.go) and never mutated by the engine.
package plan

import (
	"fmt"
	"math"
)

// Orientation is the patient treatment orientation.
type Orientation string

const (
	HeadFirstSupine  Orientation = "HFS"
	HeadFirstProne   Orientation = "HFP"
	FeetFirstSupine  Orientation = "FFS"
	FeetFirstProne   Orientation = "FFP"
	OrientationOther Orientation = "OTHER"
)

// IsStandard reports whether directional shift words (Right/Anterior/...)
// are validated for this orientation. Only head-first-supine is.
func (o Orientation) IsStandard() bool { return o == HeadFirstSupine }

// Vector3 is a point or displacement in patient coordinates, millimetres.
type Vector3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Sub returns v - u.
func (v Vector3) Sub(u Vector3) Vector3 {
	return Vector3{X: v.X - u.X, Y: v.Y - u.Y, Z: v.Z - u.Z}
}

// ScaledCm converts a millimetre vector to centimetres.
func (v Vector3) ScaledCm() Vector3 {
	return Vector3{X: v.X / 10, Y: v.Y / 10, Z: v.Z / 10}
}

// RoundedCm returns the vector in centimetres rounded to one decimal.
// Isocenter grouping compares positions through this rounding, so two beams
// whose isocenters differ by less than half a millimetre land in one group.
func (v Vector3) RoundedCm() Vector3 {
	return Vector3{X: round1(v.X / 10), Y: round1(v.Y / 10), Z: round1(v.Z / 10)}
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v.X, v.Y, v.Z)
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// ControlPoint is one beam control point.
type ControlPoint struct {
	GantryAngle     float64 `yaml:"gantry_angle" json:"gantry_angle"`
	CollimatorAngle float64 `yaml:"collimator_angle" json:"collimator_angle"`
	CouchAngle      float64 `yaml:"couch_angle" json:"couch_angle"`
	JawX1           float64 `yaml:"jaw_x1" json:"jaw_x1"`
	JawX2           float64 `yaml:"jaw_x2" json:"jaw_x2"`
	JawY1           float64 `yaml:"jaw_y1" json:"jaw_y1"`
	JawY2           float64 `yaml:"jaw_y2" json:"jaw_y2"`
}

// Beam is one treatment or setup field.
type Beam struct {
	ID             string         `yaml:"id" json:"id"`
	EnergyMode     string         `yaml:"energy_mode" json:"energy_mode"`         // e.g. "6X", "6E", "250 PROTON"
	MLCTechnique   string         `yaml:"mlc_technique" json:"mlc_technique"`     // e.g. "STATIC", "VMAT", "DOSE DYNAMIC"
	MonitorUnits   float64        `yaml:"monitor_units" json:"monitor_units"`
	TreatmentUnit  string         `yaml:"treatment_unit" json:"treatment_unit"`
	ControlPoints  []ControlPoint `yaml:"control_points" json:"control_points"`
	IsocenterMM    Vector3        `yaml:"isocenter_mm" json:"isocenter_mm"`
	IsSetup        bool           `yaml:"is_setup" json:"is_setup"`
	ReferenceImage string         `yaml:"reference_image,omitempty" json:"reference_image,omitempty"`
	Boluses        []string       `yaml:"boluses,omitempty" json:"boluses,omitempty"`
}

// GantrySpanDeg returns the absolute gantry travel across the beam's control
// points. Arc beams sweep; static beams return 0.
func (b Beam) GantrySpanDeg() float64 {
	if len(b.ControlPoints) < 2 {
		return 0
	}
	min, max := b.ControlPoints[0].GantryAngle, b.ControlPoints[0].GantryAngle
	for _, cp := range b.ControlPoints[1:] {
		if cp.GantryAngle < min {
			min = cp.GantryAngle
		}
		if cp.GantryAngle > max {
			max = cp.GantryAngle
		}
	}
	return max - min
}

// Bounds is an axis-aligned bounding box in millimetres.
type Bounds struct {
	Min Vector3 `yaml:"min" json:"min"`
	Max Vector3 `yaml:"max" json:"max"`
}

// Contains reports whether p lies inside the box (inclusive).
func (b Bounds) Contains(p Vector3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Structure is one contoured structure with its segmentation predicate.
type Structure struct {
	ID        string
	DICOMType string // PTV, CTV, GTV, ITV, ORGAN, EXTERNAL, SUPPORT, ""
	VolumeCm3 float64
	Bounds    Bounds
	Empty     bool

	// Contains is the segmentation predicate: true when the point (mm) lies
	// inside the structure. Never nil for non-empty structures built by the
	// loader; analyzers must tolerate nil and treat it as "outside".
	Contains func(Vector3) bool
}

// IsInside evaluates the segmentation predicate, treating a missing
// predicate or empty structure as "outside".
func (s Structure) IsInside(p Vector3) bool {
	if s.Empty || s.Contains == nil {
		return false
	}
	return s.Contains(p)
}

// Prescription is the plan-level prescription.
type Prescription struct {
	DosePerFractionCGy float64 `yaml:"dose_per_fraction_cgy" json:"dose_per_fraction_cgy"`
	Fractions          int     `yaml:"fractions" json:"fractions"`
	TotalDoseCGy       float64 `yaml:"total_dose_cgy" json:"total_dose_cgy"`
	NormalizationValue float64 `yaml:"normalization_value" json:"normalization_value"` // percent, 100 = none
	NormalizationMode  string  `yaml:"normalization_mode,omitempty" json:"normalization_mode,omitempty"`
}

// DoseGrid is the dose-distribution capability the engine queries. It is
// provided by the snapshot adapter; the engine never owns dose data.
type DoseGrid interface {
	// VolumeAtDose returns the percent of the structure's volume receiving
	// at least doseCGy.
	VolumeAtDose(structureID string, doseCGy float64) (float64, error)
	// AbsoluteVolumeAtDose is VolumeAtDose in cm³ instead of percent.
	AbsoluteVolumeAtDose(structureID string, doseCGy float64) (float64, error)
	// DoseAtVolume returns the minimum dose (cGy) received by the hottest
	// `percent` of the structure. DoseAtVolume(id, 0) is the structure max.
	DoseAtVolume(structureID string, percent float64) (float64, error)
	// MeanDose returns the structure mean dose in cGy.
	MeanDose(structureID string) (float64, error)
	// MaxDoseCGy is the global plan maximum dose.
	MaxDoseCGy() float64
	// ResolutionMM is the dose voxel size.
	ResolutionMM() float64
}

// Objective is one optimization objective carried for reporting.
type Objective struct {
	StructureID string  `yaml:"structure_id" json:"structure_id"`
	Kind        string  `yaml:"kind" json:"kind"` // upper, lower, mean
	DoseCGy     float64 `yaml:"dose_cgy" json:"dose_cgy"`
	VolumePct   float64 `yaml:"volume_pct" json:"volume_pct"`
	Priority    int     `yaml:"priority" json:"priority"`
}

// Snapshot is the normalized, immutable view of one plan.
type Snapshot struct {
	PatientID    string
	CourseID     string
	PlanID       string
	PlanName     string
	Status       string // e.g. PLANNING, REVIEWED, APPROVED
	Orientation  Orientation
	Prescription Prescription
	UserOriginMM Vector3
	Beams        []Beam
	Structures   []Structure
	Objectives   []Objective

	// Dose is nil when the plan has no computed dose distribution.
	Dose DoseGrid
}

// TreatmentBeams returns the non-setup beams in plan order.
func (s *Snapshot) TreatmentBeams() []Beam {
	out := make([]Beam, 0, len(s.Beams))
	for _, b := range s.Beams {
		if !b.IsSetup {
			out = append(out, b)
		}
	}
	return out
}

// SetupBeams returns the setup fields in plan order.
func (s *Snapshot) SetupBeams() []Beam {
	out := make([]Beam, 0, 4)
	for _, b := range s.Beams {
		if b.IsSetup {
			out = append(out, b)
		}
	}
	return out
}

// Identifiers returns the free-text identifiers naming rules run against.
func (s *Snapshot) Identifiers() []string {
	return []string{s.PlanID, s.PlanName, s.CourseID}
}
