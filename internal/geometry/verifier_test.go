package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancheck/internal/plan"
)

func th() Thresholds { return Thresholds{LargeShiftCm: 20} }

func sphere(id, dicomType string, centerMM plan.Vector3, radiusMM float64) plan.Structure {
	return plan.Structure{
		ID:        id,
		DICOMType: dicomType,
		Contains: func(p plan.Vector3) bool {
			d := p.Sub(centerMM)
			return d.X*d.X+d.Y*d.Y+d.Z*d.Z <= radiusMM*radiusMM
		},
	}
}

func TestVerifyIsocenter_ZeroShift(t *testing.T) {
	origin := plan.Vector3{X: 12, Y: -40, Z: 7}
	res := VerifyIsocenter(origin, origin, plan.HeadFirstSupine, nil, th())

	assert.Equal(t, [3]float64{0, 0, 0}, res.ShiftCm)
	assert.False(t, res.HasLargeShift())
	for _, a := range res.Axes {
		assert.Empty(t, a.Direction)
		assert.False(t, a.Large)
	}
}

func TestVerifyIsocenter_DirectionalWords(t *testing.T) {
	origin := plan.Vector3{}
	iso := plan.Vector3{X: 25, Y: -13, Z: 104} // mm

	res := VerifyIsocenter(iso, origin, plan.HeadFirstSupine, nil, th())
	require.True(t, res.DirectionsValid)

	assert.Equal(t, 2.5, res.Axes[0].Cm)
	assert.Equal(t, "Right", res.Axes[0].Direction)
	assert.Equal(t, -1.3, res.Axes[1].Cm)
	assert.Equal(t, "Posterior", res.Axes[1].Direction)
	assert.Equal(t, 10.4, res.Axes[2].Cm)
	assert.Equal(t, "Superior", res.Axes[2].Direction)
}

func TestVerifyIsocenter_NonStandardOrientationWithholdsWords(t *testing.T) {
	iso := plan.Vector3{X: 25}
	res := VerifyIsocenter(iso, plan.Vector3{}, plan.FeetFirstSupine, nil, th())
	assert.False(t, res.DirectionsValid)
	for _, a := range res.Axes {
		assert.Empty(t, a.Direction)
	}
	// The signed values are still reported.
	assert.Equal(t, 2.5, res.Axes[0].Cm)
}

func TestVerifyIsocenter_LargeShiftSingleAxis(t *testing.T) {
	iso := plan.Vector3{X: 250} // 25 cm
	res := VerifyIsocenter(iso, plan.Vector3{}, plan.HeadFirstSupine, nil, th())

	assert.True(t, res.Axes[0].Large)
	assert.False(t, res.Axes[1].Large)
	assert.False(t, res.Axes[2].Large)
	assert.True(t, res.HasLargeShift())
}

func TestVerifyIsocenter_Containment(t *testing.T) {
	body := sphere("BODY", "EXTERNAL", plan.Vector3{}, 200)
	ptv := sphere("PTV5400", "PTV", plan.Vector3{}, 30)

	t.Run("inside body and target", func(t *testing.T) {
		res := VerifyIsocenter(plan.Vector3{X: 10}, plan.Vector3{}, plan.HeadFirstSupine,
			[]plan.Structure{body, ptv}, th())
		assert.True(t, res.BodyContained)
		assert.True(t, res.TargetContained)
		assert.Equal(t, []string{"BODY", "PTV5400"}, res.ContainedIn)
	})

	t.Run("inside body only", func(t *testing.T) {
		res := VerifyIsocenter(plan.Vector3{X: 100}, plan.Vector3{}, plan.HeadFirstSupine,
			[]plan.Structure{body, ptv}, th())
		assert.True(t, res.BodyContained)
		assert.False(t, res.TargetContained)
	})

	t.Run("outside everything", func(t *testing.T) {
		res := VerifyIsocenter(plan.Vector3{X: 500}, plan.Vector3{}, plan.HeadFirstSupine,
			[]plan.Structure{body, ptv}, th())
		assert.False(t, res.BodyContained)
		assert.False(t, res.TargetContained)
		assert.Empty(t, res.ContainedIn)
	})

	t.Run("empty structure never contains", func(t *testing.T) {
		empty := plan.Structure{ID: "BODY", DICOMType: "EXTERNAL", Empty: true}
		res := VerifyIsocenter(plan.Vector3{}, plan.Vector3{}, plan.HeadFirstSupine,
			[]plan.Structure{empty}, th())
		assert.False(t, res.BodyContained)
	})
}

func TestVerifyIsocenters_Grouping(t *testing.T) {
	mk := func(id string, iso plan.Vector3) plan.Beam {
		return plan.Beam{ID: id, IsocenterMM: iso}
	}
	s := &plan.Snapshot{
		PlanID:      "Plan1",
		Orientation: plan.HeadFirstSupine,
		Beams: []plan.Beam{
			mk("B1", plan.Vector3{X: 100, Y: 0, Z: 0}),
			// Within half a millimetre of B1: same group after rounding.
			mk("B2", plan.Vector3{X: 100.4, Y: 0, Z: 0}),
			mk("B3", plan.Vector3{X: 160, Y: 0, Z: 0}),
		},
	}

	groups := VerifyIsocenters(s, th())
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"B1", "B2"}, groups[0].BeamIDs)
	assert.Equal(t, []string{"B3"}, groups[1].BeamIDs)
	assert.Equal(t, 10.0, groups[0].ShiftCm[0])
	assert.Equal(t, 16.0, groups[1].ShiftCm[0])
}

func TestVerifyIsocenters_SetupBeamsExcluded(t *testing.T) {
	s := &plan.Snapshot{
		PlanID:      "Plan1",
		Orientation: plan.HeadFirstSupine,
		Beams: []plan.Beam{
			{ID: "SETUP", IsocenterMM: plan.Vector3{X: 999}, IsSetup: true},
			{ID: "B1", IsocenterMM: plan.Vector3{X: 100}},
		},
	}
	groups := VerifyIsocenters(s, th())
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"B1"}, groups[0].BeamIDs)
}
