// Package technique determines the delivery technique of a plan from its
// beam energy modes and MLC-motion labels. Classification is a set of
// ordered token-rule tables; the aggregate depends only on which per-beam
// classes are present and their counts, never on beam iteration order.
package technique

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"plancheck/internal/plan"
)

// Technique is the plan-level delivery technique.
type Technique string

const (
	VMAT             Technique = "VMAT"
	IMRT             Technique = "IMRT"
	Conformal        Technique = "3D-CRT"
	Electron         Technique = "Electron"
	Proton           Technique = "Proton"
	ElectronProton   Technique = "Electron + Proton"
	Stereotactic     Technique = "SRS/SBRT"
	TechniqueUnknown Technique = "Unknown"
)

// particle is the per-beam radiation type.
type particle int

const (
	photon particle = iota
	electron
	proton
)

// motion is the per-beam photon delivery class.
type motion int

const (
	motionStatic motion = iota // static gantry, static/conformal MLC
	motionIMRT                 // static gantry, dynamic MLC
	motionArc                  // arc gantry, dynamic MLC
)

// Result is the classification outcome with its supporting rationale.
type Result struct {
	Technique   Technique
	ArcBeams    int
	StaticBeams int
	Rationale   []string
}

var (
	electronEnergyRe = regexp.MustCompile(`^\d+\s*(E|MEV)$`)
	protonTokenRe    = regexp.MustCompile(`(?:^|[^A-Z])(PROTON|P)(?:[^A-Z]|$)`)
	stereoTokenRe    = regexp.MustCompile(`(?:^|[^A-Z])(SRS|SBRT|SABR)(?:[^A-Z]|$)`)
)

// particleOf classifies one energy mode label.
func particleOf(energyMode string) particle {
	upper := strings.ToUpper(strings.TrimSpace(energyMode))
	if electronEnergyRe.MatchString(upper) {
		return electron
	}
	if protonTokenRe.MatchString(upper) {
		return proton
	}
	return photon
}

// arcTokens and dynamicTokens drive the MLC-motion table. Arc labels take
// priority: a "CONFORMAL ARC" beam is an arc even without a dynamic token.
var (
	arcTokens     = []string{"VMAT", "ARC", "RAPIDARC"}
	dynamicTokens = []string{"DYNAMIC", "DMLC", "SLIDING", "IMRT", "DOSE DYN"}
)

// motionOf classifies one photon beam's MLC/technique label, consulting the
// control points for gantry travel when the label alone is ambiguous.
func motionOf(b plan.Beam) motion {
	upper := strings.ToUpper(b.MLCTechnique)
	arcLabel := containsAny(upper, arcTokens)
	dynLabel := containsAny(upper, dynamicTokens)
	sweeps := b.GantrySpanDeg() > 5

	switch {
	case arcLabel || (dynLabel && sweeps):
		return motionArc
	case dynLabel:
		return motionIMRT
	default:
		return motionStatic
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Classify determines the plan technique. Plan identifiers carrying an
// SRS/SBRT token short-circuit; otherwise the non-setup beams are classified
// individually and aggregated by presence priority.
func Classify(snapshot *plan.Snapshot) Result {
	for _, id := range snapshot.Identifiers() {
		if stereoTokenRe.MatchString(strings.ToUpper(id)) {
			return Result{
				Technique: Stereotactic,
				Rationale: []string{fmt.Sprintf("plan identifier %q carries a stereotactic token", id)},
			}
		}
	}

	beams := snapshot.TreatmentBeams()
	if len(beams) == 0 {
		return Result{
			Technique: TechniqueUnknown,
			Rationale: []string{"plan has no treatment beams"},
		}
	}

	var electrons, protons, arcs, imrts, statics int
	unitCounts := map[string]int{}
	for _, b := range beams {
		unitCounts[b.EnergyMode]++
		switch particleOf(b.EnergyMode) {
		case electron:
			electrons++
		case proton:
			protons++
		default:
			switch motionOf(b) {
			case motionArc:
				arcs++
			case motionIMRT:
				imrts++
			default:
				statics++
			}
		}
	}

	res := Result{ArcBeams: arcs, StaticBeams: imrts + statics}
	res.Rationale = append(res.Rationale, energySummary(unitCounts))

	photons := arcs + imrts + statics
	switch {
	case electrons > 0 && protons > 0:
		res.Technique = ElectronProton
		res.Rationale = append(res.Rationale,
			fmt.Sprintf("%d electron and %d proton beams present", electrons, protons))
	case electrons > 0 && photons == 0 && protons == 0:
		res.Technique = Electron
		res.Rationale = append(res.Rationale, fmt.Sprintf("all %d beams are electron", electrons))
	case protons > 0 && photons == 0 && electrons == 0:
		res.Technique = Proton
		res.Rationale = append(res.Rationale, fmt.Sprintf("all %d beams are proton", protons))
	case arcs > 0:
		res.Technique = VMAT
		res.Rationale = append(res.Rationale, fmt.Sprintf("%d arc beams with dynamic MLC", arcs))
		if imrts+statics > 0 {
			res.Rationale = append(res.Rationale,
				fmt.Sprintf("mixed technique: %d static-gantry beams alongside the arcs", imrts+statics))
		}
	case imrts > 0:
		res.Technique = IMRT
		res.Rationale = append(res.Rationale, fmt.Sprintf("%d static-gantry beams with dynamic MLC", imrts))
		if statics > 0 {
			res.Rationale = append(res.Rationale,
				fmt.Sprintf("mixed technique: %d conformal beams alongside IMRT", statics))
		}
	default:
		res.Technique = Conformal
		res.Rationale = append(res.Rationale, fmt.Sprintf("%d static/conformal beams", statics))
	}

	if electrons > 0 && photons > 0 {
		res.Rationale = append(res.Rationale,
			fmt.Sprintf("%d electron beams mixed with photon beams", electrons))
	}

	return res
}

// energySummary renders the energy-mode census in a stable order.
func energySummary(unitCounts map[string]int) string {
	modes := make([]string, 0, len(unitCounts))
	for m := range unitCounts {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	parts := make([]string, 0, len(modes))
	for _, m := range modes {
		parts = append(parts, fmt.Sprintf("%s×%d", m, unitCounts[m]))
	}
	return "energy modes: " + strings.Join(parts, ", ")
}
