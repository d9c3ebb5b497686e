package plan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// This file is the snapshot adapter: it turns a yaml plan document exported
// from the clinical record into the immutable Snapshot the engine consumes,
// including the DoseGrid capability built from per-structure cumulative DVH
// samples.

// snapshotDoc is the on-disk document shape.
type snapshotDoc struct {
	PatientID    string         `yaml:"patient_id"`
	CourseID     string         `yaml:"course_id"`
	PlanID       string         `yaml:"plan_id"`
	PlanName     string         `yaml:"plan_name"`
	Status       string         `yaml:"status"`
	Orientation  string         `yaml:"orientation"`
	Prescription Prescription   `yaml:"prescription"`
	UserOriginMM Vector3        `yaml:"user_origin_mm"`
	Beams        []Beam         `yaml:"beams"`
	Structures   []structureDoc `yaml:"structures"`
	Objectives   []Objective    `yaml:"objectives"`
	Dose         *doseDoc       `yaml:"dose"`
}

// structureDoc describes one structure with an analytic geometry stand-in
// for the segmentation. The clinical source exposes a per-point predicate;
// the export approximates it with a box or ellipsoid.
type structureDoc struct {
	ID        string       `yaml:"id"`
	DICOMType string       `yaml:"dicom_type"`
	VolumeCm3 float64      `yaml:"volume_cm3"`
	Empty     bool         `yaml:"empty"`
	Geometry  *geometryDoc `yaml:"geometry"`
}

type geometryDoc struct {
	Shape    string  `yaml:"shape"` // box or ellipsoid
	CenterMM Vector3 `yaml:"center_mm"`
	SizeMM   Vector3 `yaml:"size_mm"`  // box edge lengths
	RadiiMM  Vector3 `yaml:"radii_mm"` // ellipsoid semi-axes
}

type doseDoc struct {
	MaxCGy       float64               `yaml:"max_cgy"`
	ResolutionMM float64               `yaml:"resolution_mm"`
	DVH          map[string][]dvhPoint `yaml:"dvh"`
}

type dvhPoint struct {
	DoseCGy   float64 `yaml:"dose_cgy"`
	VolumePct float64 `yaml:"volume_pct"`
}

// LoadSnapshot reads and validates one snapshot document.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot builds a Snapshot from a yaml document.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var doc snapshotDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if doc.PlanID == "" {
		return nil, fmt.Errorf("snapshot has no plan_id")
	}

	s := &Snapshot{
		PatientID:    doc.PatientID,
		CourseID:     doc.CourseID,
		PlanID:       doc.PlanID,
		PlanName:     doc.PlanName,
		Status:       doc.Status,
		Orientation:  parseOrientation(doc.Orientation),
		Prescription: doc.Prescription,
		UserOriginMM: doc.UserOriginMM,
		Beams:        doc.Beams,
		Objectives:   doc.Objectives,
	}

	for _, sd := range doc.Structures {
		st, err := buildStructure(sd)
		if err != nil {
			return nil, err
		}
		s.Structures = append(s.Structures, st)
	}

	if doc.Dose != nil {
		grid, err := buildGrid(doc.Dose)
		if err != nil {
			return nil, err
		}
		grid.SetStructureVolumes(s.Structures)
		s.Dose = grid
	}

	return s, nil
}

func parseOrientation(v string) Orientation {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "HFS", "HEAD FIRST-SUPINE", "HEADFIRSTSUPINE":
		return HeadFirstSupine
	case "HFP":
		return HeadFirstProne
	case "FFS":
		return FeetFirstSupine
	case "FFP":
		return FeetFirstProne
	case "":
		return HeadFirstSupine
	default:
		return OrientationOther
	}
}

func buildStructure(sd structureDoc) (Structure, error) {
	st := Structure{
		ID:        sd.ID,
		DICOMType: sd.DICOMType,
		VolumeCm3: sd.VolumeCm3,
		Empty:     sd.Empty,
	}
	if sd.ID == "" {
		return st, fmt.Errorf("structure without id")
	}
	if sd.Empty || sd.Geometry == nil {
		st.Empty = true
		return st, nil
	}

	g := *sd.Geometry
	switch strings.ToLower(g.Shape) {
	case "box", "":
		half := Vector3{X: g.SizeMM.X / 2, Y: g.SizeMM.Y / 2, Z: g.SizeMM.Z / 2}
		st.Bounds = Bounds{Min: g.CenterMM.Sub(half), Max: g.CenterMM.Sub(Vector3{X: -half.X, Y: -half.Y, Z: -half.Z})}
		bounds := st.Bounds
		st.Contains = bounds.Contains
	case "ellipsoid":
		st.Bounds = Bounds{
			Min: g.CenterMM.Sub(g.RadiiMM),
			Max: g.CenterMM.Sub(Vector3{X: -g.RadiiMM.X, Y: -g.RadiiMM.Y, Z: -g.RadiiMM.Z}),
		}
		center, radii := g.CenterMM, g.RadiiMM
		st.Contains = func(p Vector3) bool {
			if radii.X == 0 || radii.Y == 0 || radii.Z == 0 {
				return false
			}
			dx := (p.X - center.X) / radii.X
			dy := (p.Y - center.Y) / radii.Y
			dz := (p.Z - center.Z) / radii.Z
			return dx*dx+dy*dy+dz*dz <= 1
		}
	default:
		return st, fmt.Errorf("structure %s: unknown geometry shape %q", sd.ID, g.Shape)
	}
	return st, nil
}

// sampledGrid implements DoseGrid over per-structure cumulative DVH samples
// by monotone piecewise-linear interpolation.
type sampledGrid struct {
	maxCGy  float64
	resMM   float64
	volumes map[string]float64
	dvh     map[string][]dvhPoint
}

func buildGrid(doc *doseDoc) (*sampledGrid, error) {
	if doc.MaxCGy <= 0 {
		return nil, fmt.Errorf("dose grid: max_cgy must be positive")
	}
	g := &sampledGrid{
		maxCGy:  doc.MaxCGy,
		resMM:   doc.ResolutionMM,
		volumes: map[string]float64{},
		dvh:     map[string][]dvhPoint{},
	}
	if g.resMM == 0 {
		g.resMM = 2.5
	}
	for id, points := range doc.DVH {
		if len(points) < 2 {
			return nil, fmt.Errorf("dose grid: structure %s needs at least two DVH samples", id)
		}
		sorted := append([]dvhPoint(nil), points...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].DoseCGy < sorted[j].DoseCGy })
		g.dvh[id] = sorted
	}
	return g, nil
}

// SetStructureVolumes records absolute volumes for cm³ conversions.
func (g *sampledGrid) SetStructureVolumes(structures []Structure) {
	for _, s := range structures {
		g.volumes[s.ID] = s.VolumeCm3
	}
}

func (g *sampledGrid) curve(structureID string) ([]dvhPoint, error) {
	points, ok := g.dvh[structureID]
	if !ok {
		return nil, fmt.Errorf("no DVH for structure %s", structureID)
	}
	return points, nil
}

func (g *sampledGrid) VolumeAtDose(structureID string, doseCGy float64) (float64, error) {
	points, err := g.curve(structureID)
	if err != nil {
		return 0, err
	}
	if doseCGy <= points[0].DoseCGy {
		return points[0].VolumePct, nil
	}
	last := points[len(points)-1]
	if doseCGy >= last.DoseCGy {
		if doseCGy > g.maxCGy {
			return 0, nil
		}
		return last.VolumePct, nil
	}
	for i := 1; i < len(points); i++ {
		if doseCGy > points[i].DoseCGy {
			continue
		}
		a, b := points[i-1], points[i]
		t := (doseCGy - a.DoseCGy) / (b.DoseCGy - a.DoseCGy)
		return a.VolumePct + t*(b.VolumePct-a.VolumePct), nil
	}
	return last.VolumePct, nil
}

func (g *sampledGrid) AbsoluteVolumeAtDose(structureID string, doseCGy float64) (float64, error) {
	pct, err := g.VolumeAtDose(structureID, doseCGy)
	if err != nil {
		return 0, err
	}
	total, ok := g.volumes[structureID]
	if !ok || total <= 0 {
		return 0, fmt.Errorf("no volume recorded for structure %s", structureID)
	}
	return pct / 100 * total, nil
}

func (g *sampledGrid) DoseAtVolume(structureID string, percent float64) (float64, error) {
	points, err := g.curve(structureID)
	if err != nil {
		return 0, err
	}
	// The cumulative DVH is non-increasing in dose; walk from the high-dose
	// end to find the first sample covering at least `percent`.
	last := points[len(points)-1]
	if percent <= last.VolumePct {
		return last.DoseCGy, nil
	}
	if percent >= points[0].VolumePct {
		return points[0].DoseCGy, nil
	}
	for i := len(points) - 1; i > 0; i-- {
		a, b := points[i-1], points[i]
		if percent > a.VolumePct || percent < b.VolumePct {
			continue
		}
		if a.VolumePct == b.VolumePct {
			return b.DoseCGy, nil
		}
		t := (percent - b.VolumePct) / (a.VolumePct - b.VolumePct)
		return b.DoseCGy + t*(a.DoseCGy-b.DoseCGy), nil
	}
	return points[0].DoseCGy, nil
}

func (g *sampledGrid) MeanDose(structureID string) (float64, error) {
	points, err := g.curve(structureID)
	if err != nil {
		return 0, err
	}
	// Mean dose from the cumulative DVH: integrate V(d) over dose by
	// trapezoids and divide by 100%.
	var area float64
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		area += (a.VolumePct + b.VolumePct) / 2 * (b.DoseCGy - a.DoseCGy)
	}
	// Contribution below the first sample, where coverage is flat.
	area += points[0].VolumePct * points[0].DoseCGy
	return area / 100, nil
}

func (g *sampledGrid) MaxDoseCGy() float64   { return g.maxCGy }
func (g *sampledGrid) ResolutionMM() float64 { return g.resMM }
