// Package coverage computes dose-coverage statistics for target structures
// and tiers their adequacy. All computations go through the snapshot's
// DoseGrid capability; a per-structure query failure is carried as a value
// in the result (OK=false), never an error or panic, so one bad structure
// cannot abort the batch.
package coverage

import (
	"fmt"

	"plancheck/internal/naming"
	"plancheck/internal/plan"
)

// Tier grades PTV coverage at the primary 95% metric.
type Tier string

const (
	TierExcellent  Tier = "Excellent"  // V95 >= 95%
	TierAcceptable Tier = "Acceptable" // 90% <= V95 < 95%
	TierPoor       Tier = "Poor"       // V95 < 90%
	TierUnknown    Tier = "Unknown"
)

// Source records how the target's prescription dose was resolved. A result
// is either name-derived or a plan-level fallback, never both.
type Source string

const (
	SourceName     Source = "name-derived"
	SourceFallback Source = "fallback"
	SourceEstimate Source = "estimated" // grid-max derived, verify manually
)

// VolumePoint is one Vx coverage sample.
type VolumePoint struct {
	ThresholdPct float64 // percent of prescription, e.g. 95
	DoseCGy      float64 // absolute threshold dose
	VolumePct    float64 // percent of structure receiving at least DoseCGy
}

// Result is the coverage outcome for one target.
type Result struct {
	StructureID     string
	Role            plan.Role
	PrescriptionCGy float64
	Source          Source
	Points          []VolumePoint
	MaxCGy          float64
	MeanCGy         float64
	Tier            Tier

	OK         bool
	FailReason string
}

// coverageThresholds returns the Vx levels reported for a target role. PTVs
// use the primary 95% metric; the inner volumes report all three.
func coverageThresholds(role plan.Role) []float64 {
	if role == plan.RolePTV {
		return []float64{95}
	}
	return []float64{95, 98, 99}
}

// ResolvePrescription resolves the prescription dose for one target:
// name-derived when the identifier carries a dose pattern, else the
// plan-level total dose. When the plan total dose is itself missing the
// prescription is estimated from the grid maximum scaled down by the
// near-mean factor and must be verified manually.
func ResolvePrescription(target plan.Structure, snapshot *plan.Snapshot, nearMeanScale float64) (float64, Source) {
	if res := naming.Resolve(target.ID); res.HasDose() {
		return res.DoseCGy, SourceName
	}
	if total := snapshot.Prescription.TotalDoseCGy; total > 0 {
		return total, SourceFallback
	}
	if snapshot.Dose != nil && nearMeanScale > 0 {
		return snapshot.Dose.MaxDoseCGy() / nearMeanScale, SourceEstimate
	}
	return 0, SourceFallback
}

// Thresholds carries the configurable coverage limits.
type Thresholds struct {
	ExcellentPct  float64 // V95 at or above this is Excellent (default 95)
	AcceptablePct float64 // V95 at or above this is Acceptable (default 90)
	NearMeanScale float64 // fallback near-mean approximation factor (default 1.05)
}

// AnalyzeTarget computes coverage for one target structure.
func AnalyzeTarget(target plan.Structure, snapshot *plan.Snapshot, grid plan.DoseGrid, th Thresholds) Result {
	role := plan.RoleOf(target)
	res := Result{StructureID: target.ID, Role: role, Tier: TierUnknown}

	res.PrescriptionCGy, res.Source = ResolvePrescription(target, snapshot, th.NearMeanScale)
	if res.PrescriptionCGy <= 0 {
		res.FailReason = "no prescription dose could be resolved"
		return res
	}
	if grid == nil {
		res.FailReason = "plan has no dose distribution"
		return res
	}
	if target.Empty {
		res.FailReason = "structure has no contours"
		return res
	}

	for _, pct := range coverageThresholds(role) {
		doseCGy := res.PrescriptionCGy * pct / 100
		vol, err := grid.VolumeAtDose(target.ID, doseCGy)
		if err != nil {
			res.FailReason = fmt.Sprintf("volume at %.0f%% of prescription: %v", pct, err)
			return res
		}
		res.Points = append(res.Points, VolumePoint{ThresholdPct: pct, DoseCGy: doseCGy, VolumePct: vol})
	}

	max, err := grid.DoseAtVolume(target.ID, 0)
	if err != nil {
		res.FailReason = fmt.Sprintf("max dose: %v", err)
		return res
	}
	res.MaxCGy = max

	mean, err := grid.MeanDose(target.ID)
	if err != nil {
		res.FailReason = fmt.Sprintf("mean dose: %v", err)
		return res
	}
	res.MeanCGy = mean

	res.Tier = tierOf(res.Points[0].VolumePct, th)
	res.OK = true
	return res
}

func tierOf(v95 float64, th Thresholds) Tier {
	switch {
	case v95 >= th.ExcellentPct:
		return TierExcellent
	case v95 >= th.AcceptablePct:
		return TierAcceptable
	default:
		return TierPoor
	}
}

// AnalyzeTargets runs AnalyzeTarget over every target volume in set order.
// Targets are independent: a failed one yields its OK=false result and the
// rest still compute.
func AnalyzeTargets(snapshot *plan.Snapshot, grid plan.DoseGrid, th Thresholds) []Result {
	targets := plan.Targets(snapshot.Structures)
	out := make([]Result, 0, len(targets))
	for _, t := range targets {
		out = append(out, AnalyzeTarget(t, snapshot, grid, th))
	}
	return out
}

// HotspotThresholds carries the configurable hotspot limits.
type HotspotThresholds struct {
	HotFactor     float64 // fraction of prescription that counts as hot (default 1.07)
	HotVolumeCm3  float64 // body volume above HotFactor needing review (default 2.0)
	PointVolume   float64 // cm³ at the global max that locates the hot structure (default 0.035)
	NearMeanScale float64
}

// HotLocation classifies where the global maximum dose sits.
type HotLocation string

const (
	HotInTarget HotLocation = "target"    // inside a PTV: acceptable
	HotInBody   HotLocation = "body-only" // inside BODY but no other structure
	HotInOrgan  HotLocation = "organ"     // inside a non-target structure
	HotUnknown  HotLocation = "unknown"
)

// HotspotResult reports the body hotspot evaluation.
type HotspotResult struct {
	BodyID          string
	PrescriptionCGy float64
	HotDoseCGy      float64
	HotVolumeCm3    float64
	ExceedsVolume   bool
	GlobalMaxCGy    float64
	HotStructureID  string
	Location        HotLocation

	OK         bool
	FailReason string
}

// CheckHotspot evaluates the body volume receiving more than the hot factor
// of prescription, and locates the structure containing the global maximum.
func CheckHotspot(snapshot *plan.Snapshot, grid plan.DoseGrid, th HotspotThresholds) HotspotResult {
	res := HotspotResult{Location: HotUnknown}
	bodies := plan.BodyStructures(snapshot.Structures)
	if len(bodies) == 0 {
		res.FailReason = "no BODY/EXTERNAL structure in the set"
		return res
	}
	if grid == nil {
		res.FailReason = "plan has no dose distribution"
		return res
	}
	body := bodies[0]
	res.BodyID = body.ID

	// Hotspot threshold follows the highest resolved target prescription so
	// boost plans are judged against the boost level.
	for _, t := range plan.Targets(snapshot.Structures) {
		d, _ := ResolvePrescription(t, snapshot, th.NearMeanScale)
		if d > res.PrescriptionCGy {
			res.PrescriptionCGy = d
		}
	}
	if res.PrescriptionCGy <= 0 {
		res.PrescriptionCGy = snapshot.Prescription.TotalDoseCGy
	}
	if res.PrescriptionCGy <= 0 {
		res.FailReason = "no prescription dose could be resolved"
		return res
	}

	res.HotDoseCGy = res.PrescriptionCGy * th.HotFactor
	vol, err := grid.AbsoluteVolumeAtDose(body.ID, res.HotDoseCGy)
	if err != nil {
		res.FailReason = fmt.Sprintf("body volume at %.0f cGy: %v", res.HotDoseCGy, err)
		return res
	}
	res.HotVolumeCm3 = vol
	res.ExceedsVolume = vol > th.HotVolumeCm3

	res.GlobalMaxCGy = grid.MaxDoseCGy()
	res.HotStructureID, res.Location = locateHotStructure(snapshot, grid, res.GlobalMaxCGy, th.PointVolume)
	res.OK = true
	return res
}

// locateHotStructure finds which structure receives at least PointVolume cm³
// of the global maximum dose. Targets are checked first (a hot spot inside
// the PTV is expected), then non-body structures, then the body itself.
func locateHotStructure(snapshot *plan.Snapshot, grid plan.DoseGrid, maxCGy, pointVolume float64) (string, HotLocation) {
	// Back off marginally from the literal maximum so voxel rounding at the
	// peak does not hide the containing structure.
	probe := maxCGy * 0.999

	receives := func(s plan.Structure) bool {
		if s.Empty {
			return false
		}
		v, err := grid.AbsoluteVolumeAtDose(s.ID, probe)
		return err == nil && v > pointVolume
	}

	for _, s := range snapshot.Structures {
		if plan.RoleOf(s) == plan.RolePTV && receives(s) {
			return s.ID, HotInTarget
		}
	}
	for _, s := range snapshot.Structures {
		role := plan.RoleOf(s)
		if role == plan.RoleBody || role == plan.RolePTV || role == plan.RoleSupport {
			continue
		}
		if receives(s) {
			return s.ID, HotInOrgan
		}
	}
	for _, s := range plan.BodyStructures(snapshot.Structures) {
		if receives(s) {
			return s.ID, HotInBody
		}
	}
	return "", HotUnknown
}
