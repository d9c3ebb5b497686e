package engine

import (
	"fmt"
	"math"
	"strings"

	"plancheck/internal/coverage"
	"plancheck/internal/geometry"
	"plancheck/internal/naming"
	"plancheck/internal/plan"
	"plancheck/internal/report"
)

// planFindings covers technique, target multiplicity, laterality, breathing
// technique, and orientation.
func planFindings(s *plan.Snapshot, a analysis) []report.Finding {
	var out []report.Finding

	out = append(out, report.Finding{
		Category:  report.CategoryPlan,
		Severity:  report.Info,
		Message:   fmt.Sprintf("treatment technique: %s", a.technique.Technique),
		Checklist: a.technique.Rationale,
	})

	if ptvs := plan.StructuresByRole(s.Structures, plan.RolePTV); len(ptvs) > 1 {
		names := make([]string, len(ptvs))
		for i, p := range ptvs {
			names[i] = p.ID
		}
		out = append(out, report.Finding{
			Category: report.CategoryPlan,
			Severity: report.Warning,
			Message: fmt.Sprintf("%d PTVs in structure set (%s): possible simultaneous integrated boost",
				len(ptvs), strings.Join(names, ", ")),
			Checklist: []string{
				"Confirm the dose level prescribed to each PTV",
				"Confirm the plan normalization covers the primary PTV",
			},
		})
	}

	switch a.laterality {
	case naming.LateralityBilateral:
		out = append(out, report.Finding{
			Category:  report.CategoryPlan,
			Severity:  report.Warning,
			Message:   "left- and right-side markers both present: bilateral treatment",
			Checklist: []string{"Confirm both sides are intended in one plan"},
		})
	case naming.LateralityLeft, naming.LateralityRight:
		out = append(out, report.Finding{
			Category: report.CategoryPlan,
			Severity: report.Info,
			Message:  fmt.Sprintf("laterality: %s", a.laterality),
		})
	}

	if a.planHints.BreathingMethod != "" {
		out = append(out, report.Finding{
			Category:  report.CategoryPlan,
			Severity:  report.Info,
			Message:   fmt.Sprintf("breathing technique: %s", a.planHints.BreathingMethod),
			Checklist: []string{"Confirm the breathing technique matches the CT acquisition"},
		})
	}
	if a.planHints.SiteHint != "" {
		out = append(out, report.Finding{
			Category: report.CategoryPlan,
			Severity: report.Info,
			Message:  fmt.Sprintf("anatomic site: %s", a.planHints.SiteHint),
		})
	}

	if !s.Orientation.IsStandard() {
		out = append(out, report.Finding{
			Category:  report.CategoryPlan,
			Severity:  report.Warning,
			Message:   fmt.Sprintf("non-standard treatment orientation %s", s.Orientation),
			Checklist: []string{"Verify patient positioning instructions against the orientation"},
		})
	}

	return out
}

// doseFindings maps the coverage and hotspot results.
func doseFindings(s *plan.Snapshot, a analysis) []report.Finding {
	var out []report.Finding

	if s.Dose == nil {
		out = append(out, report.Finding{
			Category: report.CategoryDose,
			Severity: report.Warning,
			Message:  "data unavailable: plan has no computed dose distribution",
		})
		return out
	}

	for _, c := range a.coverage {
		out = append(out, coverageFinding(c)...)
	}

	out = append(out, hotspotFindings(a.hotspot)...)
	return out
}

func coverageFinding(c coverage.Result) []report.Finding {
	if !c.OK {
		return []report.Finding{{
			Category: report.CategoryDose,
			Severity: report.Warning,
			Message:  fmt.Sprintf("unable to compute coverage for %s: %s", c.StructureID, c.FailReason),
		}}
	}

	var out []report.Finding
	sev := report.Info
	switch c.Tier {
	case coverage.TierAcceptable:
		sev = report.Warning
	case coverage.TierPoor:
		sev = report.Critical
	}

	points := make([]string, len(c.Points))
	for i, p := range c.Points {
		points[i] = fmt.Sprintf("V%.0f%%=%.1f%%", p.ThresholdPct, p.VolumePct)
	}
	msg := fmt.Sprintf("%s (%s): prescription %.0f cGy [%s], %s, max %.0f cGy, mean %.0f cGy — %s",
		c.StructureID, c.Role, c.PrescriptionCGy, c.Source,
		strings.Join(points, ", "), c.MaxCGy, c.MeanCGy, c.Tier)

	f := report.Finding{Category: report.CategoryDose, Severity: sev, Message: msg}
	if c.Tier == coverage.TierPoor {
		f.Checklist = []string{
			fmt.Sprintf("Review coverage of %s with the planner before sign-off", c.StructureID),
		}
	}
	out = append(out, f)

	switch c.Source {
	case coverage.SourceFallback:
		out = append(out, report.Finding{
			Category: report.CategoryDose,
			Severity: report.Info,
			Message: fmt.Sprintf("%s: prescription taken from plan total dose (no dose pattern in the name), low confidence",
				c.StructureID),
		})
	case coverage.SourceEstimate:
		out = append(out, report.Finding{
			Category:  report.CategoryDose,
			Severity:  report.Warning,
			Message:   fmt.Sprintf("%s: prescription estimated from the dose maximum, verify manually", c.StructureID),
			Checklist: []string{"Confirm the intended prescription dose for " + c.StructureID},
		})
	}
	return out
}

func hotspotFindings(h coverage.HotspotResult) []report.Finding {
	if !h.OK {
		return []report.Finding{{
			Category: report.CategoryDose,
			Severity: report.Warning,
			Message:  "unable to evaluate hotspot: " + h.FailReason,
		}}
	}

	var out []report.Finding
	if h.ExceedsVolume {
		out = append(out, report.Finding{
			Category: report.CategoryDose,
			Severity: report.Warning,
			Message: fmt.Sprintf("%.2f cm³ of %s receives over %.0f cGy (107%% region)",
				h.HotVolumeCm3, h.BodyID, h.HotDoseCGy),
			Checklist: []string{"Review the hotspot location on the dose display"},
		})
	} else {
		out = append(out, report.Finding{
			Category: report.CategoryDose,
			Severity: report.Info,
			Message: fmt.Sprintf("hotspot volume in %s above %.0f cGy: %.2f cm³ (within tolerance)",
				h.BodyID, h.HotDoseCGy, h.HotVolumeCm3),
		})
	}

	switch h.Location {
	case coverage.HotInTarget:
		out = append(out, report.Finding{
			Category: report.CategoryDose,
			Severity: report.Info,
			Message: fmt.Sprintf("global maximum %.0f cGy sits inside target %s",
				h.GlobalMaxCGy, h.HotStructureID),
		})
	case coverage.HotInBody:
		out = append(out, report.Finding{
			Category:  report.CategoryDose,
			Severity:  report.Warning,
			Message:   fmt.Sprintf("global maximum %.0f cGy sits in %s outside any target", h.GlobalMaxCGy, h.HotStructureID),
			Checklist: []string{"Review whether the maximum outside the targets is acceptable"},
		})
	case coverage.HotInOrgan:
		out = append(out, report.Finding{
			Category:  report.CategoryDose,
			Severity:  report.Critical,
			Message:   fmt.Sprintf("global maximum %.0f cGy sits inside %s", h.GlobalMaxCGy, h.HotStructureID),
			Checklist: []string{"Escalate: dose maximum inside a non-target structure"},
		})
	}
	return out
}

// beamFindings covers monitor units, setup imaging, boluses, and treatment
// units.
func beamFindings(s *plan.Snapshot) []report.Finding {
	var out []report.Finding
	beams := s.TreatmentBeams()
	if len(beams) == 0 {
		return []report.Finding{{
			Category: report.CategoryBeam,
			Severity: report.Warning,
			Message:  "data unavailable: plan has no treatment beams",
		}}
	}

	var totalMU float64
	units := map[string]bool{}
	var unitOrder []string
	for _, b := range beams {
		totalMU += b.MonitorUnits
		if !units[b.TreatmentUnit] {
			units[b.TreatmentUnit] = true
			unitOrder = append(unitOrder, b.TreatmentUnit)
		}
		if b.MonitorUnits <= 0 {
			out = append(out, report.Finding{
				Category:  report.CategoryBeam,
				Severity:  report.Warning,
				Message:   fmt.Sprintf("beam %s has %.1f MU", b.ID, b.MonitorUnits),
				Checklist: []string{fmt.Sprintf("Check whether beam %s is meant to be deliverable", b.ID)},
			})
		}
		if len(b.Boluses) > 0 {
			out = append(out, report.Finding{
				Category:  report.CategoryBeam,
				Severity:  report.Info,
				Message:   fmt.Sprintf("beam %s uses bolus %s", b.ID, strings.Join(b.Boluses, ", ")),
				Checklist: []string{"Confirm bolus placement in the setup note"},
			})
		}
	}

	out = append(out, report.Finding{
		Category: report.CategoryBeam,
		Severity: report.Info,
		Message:  fmt.Sprintf("%d treatment beams, %.1f MU total", len(beams), totalMU),
	})

	if len(unitOrder) > 1 {
		out = append(out, report.Finding{
			Category:  report.CategoryBeam,
			Severity:  report.Warning,
			Message:   fmt.Sprintf("beams assigned to multiple treatment units: %s", strings.Join(unitOrder, ", ")),
			Checklist: []string{"Confirm the plan is meant to split across machines"},
		})
	}

	setups := s.SetupBeams()
	if len(setups) == 0 {
		out = append(out, report.Finding{
			Category:  report.CategoryBeam,
			Severity:  report.Warning,
			Message:   "no setup fields in the plan",
			Checklist: []string{"Add setup imaging fields before approval"},
		})
	}
	for _, b := range setups {
		if b.ReferenceImage == "" {
			out = append(out, report.Finding{
				Category:  report.CategoryBeam,
				Severity:  report.Warning,
				Message:   fmt.Sprintf("setup field %s has no reference image", b.ID),
				Checklist: []string{fmt.Sprintf("Attach a DRR to setup field %s", b.ID)},
			})
		}
	}

	return out
}

// structureFindings covers the structure census, empty contours, and the
// mandatory body outline.
func structureFindings(s *plan.Snapshot) []report.Finding {
	if len(s.Structures) == 0 {
		return []report.Finding{{
			Category: report.CategoryStructure,
			Severity: report.Warning,
			Message:  "data unavailable: plan has no structure set",
		}}
	}

	var out []report.Finding

	targets := plan.Targets(s.Structures)
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = fmt.Sprintf("%s (%s, %.1f cm³)", t.ID, plan.RoleOf(t), t.VolumeCm3)
	}
	if len(targets) == 0 {
		out = append(out, report.Finding{
			Category:  report.CategoryStructure,
			Severity:  report.Warning,
			Message:   "no target volumes (PTV/CTV/GTV/ITV) in the structure set",
			Checklist: []string{"Confirm the target naming follows the department convention"},
		})
	} else {
		out = append(out, report.Finding{
			Category: report.CategoryStructure,
			Severity: report.Info,
			Message:  fmt.Sprintf("%d target volumes: %s", len(targets), strings.Join(names, "; ")),
		})
	}

	if len(plan.BodyStructures(s.Structures)) == 0 {
		out = append(out, report.Finding{
			Category:  report.CategoryStructure,
			Severity:  report.Critical,
			Message:   "no BODY/EXTERNAL structure in the set",
			Checklist: []string{"Create the body outline before dose review"},
		})
	}

	for _, st := range s.Structures {
		if st.Empty {
			out = append(out, report.Finding{
				Category: report.CategoryStructure,
				Severity: report.Warning,
				Message:  fmt.Sprintf("structure %s has no contours", st.ID),
			})
		}
	}

	return out
}

// isocenterFindings maps the geometry results: shifts with directional
// wording, large-shift alerts, containment, and multiplicity.
func isocenterFindings(s *plan.Snapshot, groups []geometry.GroupResult) []report.Finding {
	if len(groups) == 0 {
		return []report.Finding{{
			Category: report.CategoryIsocenter,
			Severity: report.Warning,
			Message:  "data unavailable: no beam isocenters to verify",
		}}
	}

	var out []report.Finding

	if len(groups) > 1 {
		out = append(out, report.Finding{
			Category:  report.CategoryIsocenter,
			Severity:  report.Warning,
			Message:   fmt.Sprintf("%d distinct isocenter positions in one plan", len(groups)),
			Checklist: []string{"Confirm the multi-isocenter setup sequence with the therapists"},
		})
	}

	for gi, g := range groups {
		label := "isocenter"
		if len(groups) > 1 {
			label = fmt.Sprintf("isocenter %d (beams %s)", gi+1, strings.Join(g.BeamIDs, ", "))
		}

		out = append(out, report.Finding{
			Category: report.CategoryIsocenter,
			Severity: report.Info,
			Message:  fmt.Sprintf("%s: shift from user origin %s", label, shiftText(g)),
		})

		if !g.DirectionsValid {
			out = append(out, report.Finding{
				Category:  report.CategoryIsocenter,
				Severity:  report.Warning,
				Message:   fmt.Sprintf("%s: shift directions not validated for orientation %s, verify manually", label, s.Orientation),
				Checklist: []string{"Verify shift directions at the machine for this orientation"},
			})
		}

		for _, a := range g.Axes {
			if !a.Large {
				continue
			}
			out = append(out, report.Finding{
				Category:  report.CategoryIsocenter,
				Severity:  report.Critical,
				Message:   fmt.Sprintf("%s: %.1f cm shift on axis %s exceeds the large-shift limit", label, math.Abs(a.Cm), a.Axis),
				Checklist: []string{fmt.Sprintf("Re-verify the %s shift against the CT reference point", a.Axis)},
			})
		}

		if !g.BodyContained {
			out = append(out, report.Finding{
				Category:  report.CategoryIsocenter,
				Severity:  report.Critical,
				Message:   fmt.Sprintf("%s not inside BODY structure", label),
				Checklist: []string{"Invalid treatment geometry: re-check the isocenter placement"},
			})
		} else if !g.TargetContained {
			out = append(out, report.Finding{
				Category:  report.CategoryIsocenter,
				Severity:  report.Warning,
				Message:   fmt.Sprintf("%s not inside any target volume", label),
				Checklist: []string{"Confirm the off-target isocenter placement is intended"},
			})
		}
	}

	return out
}

// shiftText renders one group's shift with directional words when valid.
func shiftText(g geometry.GroupResult) string {
	parts := make([]string, 0, 3)
	for _, a := range g.Axes {
		if a.Cm == 0 {
			parts = append(parts, fmt.Sprintf("%s 0.0 cm", a.Axis))
			continue
		}
		if a.Direction != "" {
			parts = append(parts, fmt.Sprintf("%s %.1f cm %s", a.Axis, math.Abs(a.Cm), a.Direction))
		} else {
			parts = append(parts, fmt.Sprintf("%s %+.1f cm", a.Axis, a.Cm))
		}
	}
	return strings.Join(parts, ", ")
}

// statusFindings covers prescription arithmetic and normalization.
func statusFindings(s *plan.Snapshot) []report.Finding {
	var out []report.Finding
	p := s.Prescription

	if s.Status != "" {
		out = append(out, report.Finding{
			Category: report.CategoryStatus,
			Severity: report.Info,
			Message:  fmt.Sprintf("plan status: %s", s.Status),
		})
	}

	if p.Fractions > 0 && p.DosePerFractionCGy > 0 {
		expected := p.DosePerFractionCGy * float64(p.Fractions)
		if p.TotalDoseCGy > 0 && math.Abs(expected-p.TotalDoseCGy) > 0.5 {
			out = append(out, report.Finding{
				Category: report.CategoryStatus,
				Severity: report.Warning,
				Message: fmt.Sprintf("prescription arithmetic: %d × %.0f cGy = %.0f cGy, plan total is %.0f cGy",
					p.Fractions, p.DosePerFractionCGy, expected, p.TotalDoseCGy),
				Checklist: []string{"Reconcile fractionation with the plan total dose"},
			})
		} else {
			out = append(out, report.Finding{
				Category: report.CategoryStatus,
				Severity: report.Info,
				Message: fmt.Sprintf("prescription: %d × %.0f cGy = %.0f cGy",
					p.Fractions, p.DosePerFractionCGy, expected),
			})
		}
	} else {
		out = append(out, report.Finding{
			Category:  report.CategoryStatus,
			Severity:  report.Warning,
			Message:   "incomplete prescription: fractionation or dose per fraction missing",
			Checklist: []string{"Complete the prescription before approval"},
		})
	}

	if p.NormalizationValue > 0 && p.NormalizationValue != 100 {
		out = append(out, report.Finding{
			Category: report.CategoryStatus,
			Severity: report.Info,
			Message: fmt.Sprintf("plan normalization %.1f%% (%s)",
				p.NormalizationValue, normalizationMode(p.NormalizationMode)),
		})
	}

	return out
}

func normalizationMode(mode string) string {
	if mode == "" {
		return "mode not recorded"
	}
	return mode
}
