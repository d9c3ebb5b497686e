// Package geometry verifies plan geometry: isocenter/user-origin shifts in
// clinical axes and point-in-structure containment. Directional words are
// only emitted for the head-first-supine orientation; every other
// orientation reports signed values and defers direction reading to a human.
package geometry

import (
	"math"
	"sort"

	"plancheck/internal/plan"
)

// Axis names one clinical coordinate axis.
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
	AxisZ Axis = "Z"
)

// AxisShift is the shift along one axis in centimetres.
type AxisShift struct {
	Axis      Axis
	Cm        float64
	Direction string // empty when the orientation is non-standard or Cm == 0
	Large     bool   // magnitude above the large-shift limit
}

// hfsDirections maps each axis to its positive/negative direction words for
// head-first-supine. The coordinate semantics are only validated for HFS.
var hfsDirections = map[Axis][2]string{
	AxisX: {"Right", "Left"},
	AxisY: {"Anterior", "Posterior"},
	AxisZ: {"Superior", "Inferior"},
}

// GroupResult is the verification outcome for one isocenter group.
type GroupResult struct {
	PositionMM      plan.Vector3
	ShiftCm         [3]float64
	Axes            [3]AxisShift
	DirectionsValid bool // false = non-standard orientation, verify manually
	BodyContained   bool
	TargetContained bool
	ContainedIn     []string // structure ids containing the isocenter, set order
	BeamIDs         []string // beams attributed to this group, plan order
}

// HasLargeShift reports whether any single axis exceeds the limit.
func (g GroupResult) HasLargeShift() bool {
	for _, a := range g.Axes {
		if a.Large {
			return true
		}
	}
	return false
}

// Thresholds carries the configurable geometry limits.
type Thresholds struct {
	LargeShiftCm float64 // single-axis magnitude needing re-verification (default 20)
}

// VerifyIsocenter verifies a single isocenter position against the user
// origin and the structure set.
func VerifyIsocenter(isoMM, originMM plan.Vector3, orientation plan.Orientation, structures []plan.Structure, th Thresholds) GroupResult {
	res := GroupResult{
		PositionMM:      isoMM,
		DirectionsValid: orientation.IsStandard(),
	}

	shift := isoMM.Sub(originMM).RoundedCm()
	res.ShiftCm = [3]float64{shift.X, shift.Y, shift.Z}
	for i, axis := range [3]Axis{AxisX, AxisY, AxisZ} {
		cm := res.ShiftCm[i]
		as := AxisShift{Axis: axis, Cm: cm, Large: math.Abs(cm) > th.LargeShiftCm}
		if res.DirectionsValid && cm != 0 {
			dirs := hfsDirections[axis]
			if cm > 0 {
				as.Direction = dirs[0]
			} else {
				as.Direction = dirs[1]
			}
		}
		res.Axes[i] = as
	}

	for _, s := range structures {
		if !s.IsInside(isoMM) {
			continue
		}
		res.ContainedIn = append(res.ContainedIn, s.ID)
		switch role := plan.RoleOf(s); {
		case role == plan.RoleBody:
			res.BodyContained = true
		case role.IsTarget():
			res.TargetContained = true
		}
	}

	return res
}

// VerifyIsocenters groups beam isocenters by one-decimal-cm rounding and
// verifies each group independently. Beams are attributed to their group by
// exact rounded match; groups are ordered by first appearance in the beam
// list so the output is stable for a given plan.
func VerifyIsocenters(snapshot *plan.Snapshot, th Thresholds) []GroupResult {
	type group struct {
		first plan.Vector3
		beams []string
		order int
	}
	groups := map[plan.Vector3]*group{}
	var n int
	for _, b := range snapshot.TreatmentBeams() {
		key := b.IsocenterMM.RoundedCm()
		g, ok := groups[key]
		if !ok {
			g = &group{first: b.IsocenterMM, order: n}
			groups[key] = g
			n++
		}
		g.beams = append(g.beams, b.ID)
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	out := make([]GroupResult, 0, len(ordered))
	for _, g := range ordered {
		res := VerifyIsocenter(g.first, snapshot.UserOriginMM, snapshot.Orientation, snapshot.Structures, th)
		res.BeamIDs = g.beams
		out = append(out, res)
	}
	return out
}
