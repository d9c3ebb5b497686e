package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOf_DICOMTypeWinsOverName(t *testing.T) {
	// Explicit type takes precedence over whatever the name says.
	s := Structure{ID: "PTV boost", DICOMType: "ORGAN"}
	assert.Equal(t, RoleOrgan, RoleOf(s))
}

func TestRoleOf_NameFallback(t *testing.T) {
	cases := []struct {
		id   string
		role Role
	}{
		{"PTV5400", RolePTV},
		{"ctv boost", RoleCTV},
		{"GTV primary", RoleGTV},
		{"ITV lung", RoleITV},
		{"BODY", RoleBody},
		{"External", RoleBody},
		{"CouchSurface", RoleSupport},
		{"Heart", RoleUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			assert.Equal(t, tc.role, RoleOf(Structure{ID: tc.id}))
		})
	}
}

func TestRoleOf_UnmappedDICOMTypeIsOrgan(t *testing.T) {
	s := Structure{ID: "Lens", DICOMType: "CONTROL"}
	assert.Equal(t, RoleOrgan, RoleOf(s))
}

func TestTargets_SetOrder(t *testing.T) {
	structures := []Structure{
		{ID: "BODY", DICOMType: "EXTERNAL"},
		{ID: "CTV5400", DICOMType: "CTV"},
		{ID: "HEART", DICOMType: "ORGAN"},
		{ID: "PTV5400", DICOMType: "PTV"},
	}
	targets := Targets(structures)
	assert.Len(t, targets, 2)
	assert.Equal(t, "CTV5400", targets[0].ID)
	assert.Equal(t, "PTV5400", targets[1].ID)
}

func TestVector3_RoundedCm(t *testing.T) {
	v := Vector3{X: 104.9, Y: -13.44, Z: 0}
	r := v.RoundedCm()
	assert.Equal(t, 10.5, r.X)
	assert.Equal(t, -1.3, r.Y)
	assert.Equal(t, 0.0, r.Z)
}

func TestVector3_RoundingGroupsNearbyIsocenters(t *testing.T) {
	a := Vector3{X: 100.0}
	b := Vector3{X: 100.4}
	c := Vector3{X: 101.0}
	assert.Equal(t, a.RoundedCm(), b.RoundedCm())
	assert.NotEqual(t, a.RoundedCm(), c.RoundedCm())
}

func TestBeam_GantrySpanDeg(t *testing.T) {
	arc := Beam{ControlPoints: []ControlPoint{{GantryAngle: 181}, {GantryAngle: 240}, {GantryAngle: 300}}}
	assert.Equal(t, 119.0, arc.GantrySpanDeg())

	static := Beam{ControlPoints: []ControlPoint{{GantryAngle: 90}}}
	assert.Equal(t, 0.0, static.GantrySpanDeg())
}

func TestStructure_IsInside(t *testing.T) {
	s := Structure{ID: "X", Contains: func(p Vector3) bool { return p.X > 0 }}
	assert.True(t, s.IsInside(Vector3{X: 1}))
	assert.False(t, s.IsInside(Vector3{X: -1}))

	t.Run("nil predicate is outside", func(t *testing.T) {
		assert.False(t, Structure{ID: "Y"}.IsInside(Vector3{}))
	})
	t.Run("empty structure is outside", func(t *testing.T) {
		s := Structure{ID: "Z", Empty: true, Contains: func(Vector3) bool { return true }}
		assert.False(t, s.IsInside(Vector3{}))
	})
}

func TestSnapshot_BeamPartition(t *testing.T) {
	s := &Snapshot{Beams: []Beam{
		{ID: "B1"},
		{ID: "SETUP", IsSetup: true},
		{ID: "B2"},
	}}
	tb := s.TreatmentBeams()
	assert.Equal(t, []string{"B1", "B2"}, []string{tb[0].ID, tb[1].ID})
	sb := s.SetupBeams()
	assert.Len(t, sb, 1)
	assert.Equal(t, "SETUP", sb[0].ID)
}
