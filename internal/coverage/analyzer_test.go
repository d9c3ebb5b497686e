package coverage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancheck/internal/plan"
)

// stubGrid answers dose queries from fixed tables.
type stubGrid struct {
	volumeAtDose map[string]float64 // structure id -> percent, ignores dose level
	absVolume    map[string]float64 // structure id -> cm³ at any queried dose
	maxAt        map[string]float64
	meanAt       map[string]float64
	maxCGy       float64
	failFor      map[string]bool
}

func (g *stubGrid) VolumeAtDose(id string, dose float64) (float64, error) {
	if g.failFor[id] {
		return 0, fmt.Errorf("segment geometry invalid")
	}
	return g.volumeAtDose[id], nil
}

func (g *stubGrid) AbsoluteVolumeAtDose(id string, dose float64) (float64, error) {
	if g.failFor[id] {
		return 0, fmt.Errorf("segment geometry invalid")
	}
	return g.absVolume[id], nil
}

func (g *stubGrid) DoseAtVolume(id string, pct float64) (float64, error) {
	if g.failFor[id] {
		return 0, fmt.Errorf("segment geometry invalid")
	}
	return g.maxAt[id], nil
}

func (g *stubGrid) MeanDose(id string) (float64, error) {
	if g.failFor[id] {
		return 0, fmt.Errorf("segment geometry invalid")
	}
	return g.meanAt[id], nil
}

func (g *stubGrid) MaxDoseCGy() float64   { return g.maxCGy }
func (g *stubGrid) ResolutionMM() float64 { return 2.5 }

func target(id, dicomType string) plan.Structure {
	return plan.Structure{ID: id, DICOMType: dicomType, VolumeCm3: 100, Contains: func(plan.Vector3) bool { return true }}
}

func testThresholds() Thresholds {
	return Thresholds{ExcellentPct: 95, AcceptablePct: 90, NearMeanScale: 1.05}
}

func snapshotWith(totalDose float64, structures ...plan.Structure) *plan.Snapshot {
	return &plan.Snapshot{
		PlanID:       "Plan1",
		Prescription: plan.Prescription{TotalDoseCGy: totalDose},
		Structures:   structures,
	}
}

func TestAnalyzeTarget_NameDerivedPrescription(t *testing.T) {
	grid := &stubGrid{
		volumeAtDose: map[string]float64{"PTV5400": 96.2},
		maxAt:        map[string]float64{"PTV5400": 5700},
		meanAt:       map[string]float64{"PTV5400": 5500},
	}
	s := snapshotWith(5000, target("PTV5400", "PTV"))

	res := AnalyzeTarget(s.Structures[0], s, grid, testThresholds())
	require.True(t, res.OK)
	assert.Equal(t, 5400.0, res.PrescriptionCGy)
	assert.Equal(t, SourceName, res.Source)
	require.Len(t, res.Points, 1)
	assert.Equal(t, 95.0, res.Points[0].ThresholdPct)
	assert.InDelta(t, 5130.0, res.Points[0].DoseCGy, 0.001)
	assert.Equal(t, TierExcellent, res.Tier)
}

func TestAnalyzeTarget_FallbackPrescription(t *testing.T) {
	grid := &stubGrid{
		volumeAtDose: map[string]float64{"PTV Breast": 95.0},
		maxAt:        map[string]float64{"PTV Breast": 4400},
		meanAt:       map[string]float64{"PTV Breast": 4300},
	}
	s := snapshotWith(4256, target("PTV Breast", "PTV"))

	res := AnalyzeTarget(s.Structures[0], s, grid, testThresholds())
	require.True(t, res.OK)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 4256.0, res.PrescriptionCGy)
}

func TestAnalyzeTarget_Tiering(t *testing.T) {
	cases := []struct {
		v95  float64
		tier Tier
	}{
		{95.0, TierExcellent},
		{92.0, TierAcceptable},
		{90.0, TierAcceptable},
		{80.0, TierPoor},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("V95=%.0f", tc.v95), func(t *testing.T) {
			grid := &stubGrid{
				volumeAtDose: map[string]float64{"PTV5400": tc.v95},
				maxAt:        map[string]float64{"PTV5400": 5700},
				meanAt:       map[string]float64{"PTV5400": 5400},
			}
			s := snapshotWith(0, target("PTV5400", "PTV"))
			res := AnalyzeTarget(s.Structures[0], s, grid, testThresholds())
			require.True(t, res.OK)
			assert.Equal(t, tc.tier, res.Tier)
		})
	}
}

func TestAnalyzeTarget_InnerVolumesReportThreePoints(t *testing.T) {
	grid := &stubGrid{
		volumeAtDose: map[string]float64{"CTV5400": 99.0},
		maxAt:        map[string]float64{"CTV5400": 5700},
		meanAt:       map[string]float64{"CTV5400": 5500},
	}
	s := snapshotWith(0, target("CTV5400", "CTV"))
	res := AnalyzeTarget(s.Structures[0], s, grid, testThresholds())
	require.True(t, res.OK)
	require.Len(t, res.Points, 3)
	assert.Equal(t, []float64{95, 98, 99},
		[]float64{res.Points[0].ThresholdPct, res.Points[1].ThresholdPct, res.Points[2].ThresholdPct})
}

func TestAnalyzeTargets_FailureIsIsolated(t *testing.T) {
	grid := &stubGrid{
		volumeAtDose: map[string]float64{"PTV5400": 96.0},
		maxAt:        map[string]float64{"PTV5400": 5700},
		meanAt:       map[string]float64{"PTV5400": 5500},
		failFor:      map[string]bool{"CTV5400": true},
	}
	s := snapshotWith(0, target("CTV5400", "CTV"), target("PTV5400", "PTV"))

	results := AnalyzeTargets(s, grid, testThresholds())
	require.Len(t, results, 2)

	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].FailReason, "segment geometry invalid")

	// The sibling target still computed.
	assert.True(t, results[1].OK)
	assert.Equal(t, TierExcellent, results[1].Tier)
}

func TestAnalyzeTarget_NoGrid(t *testing.T) {
	s := snapshotWith(5400, target("PTV5400", "PTV"))
	res := AnalyzeTarget(s.Structures[0], s, nil, testThresholds())
	assert.False(t, res.OK)
	assert.Contains(t, res.FailReason, "no dose distribution")
}

func TestResolvePrescription_EstimateFromGridMax(t *testing.T) {
	grid := &stubGrid{maxCGy: 5670}
	s := snapshotWith(0, target("PTV Breast", "PTV"))
	s.Dose = grid

	dose, source := ResolvePrescription(s.Structures[0], s, 1.05)
	assert.Equal(t, SourceEstimate, source)
	assert.InDelta(t, 5400, dose, 0.001)
}

func TestCheckHotspot(t *testing.T) {
	body := plan.Structure{ID: "BODY", DICOMType: "EXTERNAL", VolumeCm3: 30000}
	ptv := target("PTV5400", "PTV")
	heart := target("HEART", "ORGAN")

	t.Run("volume above limit warns", func(t *testing.T) {
		grid := &stubGrid{
			absVolume: map[string]float64{"BODY": 3.4, "PTV5400": 0.2},
			maxCGy:    5900,
		}
		s := snapshotWith(5400, body, ptv)
		res := CheckHotspot(s, grid, HotspotThresholds{HotFactor: 1.07, HotVolumeCm3: 2.0, PointVolume: 0.035, NearMeanScale: 1.05})
		require.True(t, res.OK)
		assert.True(t, res.ExceedsVolume)
		assert.InDelta(t, 5400*1.07, res.HotDoseCGy, 0.001)
		assert.Equal(t, HotInTarget, res.Location)
		assert.Equal(t, "PTV5400", res.HotStructureID)
	})

	t.Run("maximum inside an organ is critical location", func(t *testing.T) {
		grid := &stubGrid{
			absVolume: map[string]float64{"BODY": 0.5, "HEART": 0.2, "PTV5400": 0.0},
			maxCGy:    5900,
		}
		s := snapshotWith(5400, body, ptv, heart)
		res := CheckHotspot(s, grid, HotspotThresholds{HotFactor: 1.07, HotVolumeCm3: 2.0, PointVolume: 0.035, NearMeanScale: 1.05})
		require.True(t, res.OK)
		assert.False(t, res.ExceedsVolume)
		assert.Equal(t, HotInOrgan, res.Location)
		assert.Equal(t, "HEART", res.HotStructureID)
	})

	t.Run("no body structure degrades", func(t *testing.T) {
		grid := &stubGrid{}
		s := snapshotWith(5400, ptv)
		res := CheckHotspot(s, grid, HotspotThresholds{HotFactor: 1.07, HotVolumeCm3: 2.0, PointVolume: 0.035})
		assert.False(t, res.OK)
		assert.Contains(t, res.FailReason, "no BODY/EXTERNAL")
	})
}
