package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_DosePatterns(t *testing.T) {
	t.Run("four digit run is cGy verbatim", func(t *testing.T) {
		res := Resolve("PTV5400")
		assert.Equal(t, DoseFromName, res.DoseSource)
		assert.Equal(t, 5400.0, res.DoseCGy)
	})

	t.Run("five digit run scales down by 100", func(t *testing.T) {
		res := Resolve("PTV54000")
		assert.Equal(t, DoseFromName, res.DoseSource)
		assert.Equal(t, 540.0, res.DoseCGy)
	})

	t.Run("decimal is Gy converted to cGy", func(t *testing.T) {
		res := Resolve("PTV 50.4 Boost")
		assert.Equal(t, DoseFromName, res.DoseSource)
		assert.Equal(t, 5040.0, res.DoseCGy)
	})

	t.Run("no numeric pattern means not found", func(t *testing.T) {
		res := Resolve("PTV Breast")
		assert.Equal(t, DoseNotFound, res.DoseSource)
		assert.False(t, res.HasDose())
		assert.Zero(t, res.DoseCGy)
	})

	t.Run("long digit runs do not match", func(t *testing.T) {
		res := Resolve("PTV123456")
		assert.Equal(t, DoseNotFound, res.DoseSource)
	})

	t.Run("empty identifier", func(t *testing.T) {
		res := Resolve("")
		assert.Equal(t, DoseNotFound, res.DoseSource)
	})
}

func TestResolve_Breathing(t *testing.T) {
	cases := []struct {
		id     string
		method string
	}{
		{"Breast LT IABC 4000", "Inspiration ABC"},
		{"Breast EABC", "Expiration ABC"},
		{"Lung ABC", "ABC"},
		{"Lung DIBH", "Breath hold"},
		{"Lung FB", "Free breathing"},
		{"Lung 4D", "4D-CT"},
		{"Liver gating", "Gating"},
		{"Prostate 7800", ""},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			assert.Equal(t, tc.method, Resolve(tc.id).BreathingMethod)
		})
	}
}

func TestResolve_SpecificBreathingTokenWins(t *testing.T) {
	// IABC contains ABC; the more specific rule must fire first.
	res := Resolve("IABC breast")
	assert.Equal(t, "Inspiration ABC", res.BreathingMethod)
}

func TestResolve_Laterality(t *testing.T) {
	assert.Equal(t, LateralityLeft, Resolve("Breast LEFT").Laterality)
	assert.Equal(t, LateralityRight, Resolve("PTV_RT_5000").Laterality)
	assert.Equal(t, LateralityBilateral, Resolve("Bilateral lung").Laterality)

	t.Run("RT inside a word is not a side", func(t *testing.T) {
		assert.Equal(t, LateralityNone, Resolve("HEART").Laterality)
	})
	t.Run("LT inside a word is not a side", func(t *testing.T) {
		assert.Equal(t, LateralityNone, Resolve("PELTID").Laterality)
	})
}

func TestResolveLaterality_SetEscalation(t *testing.T) {
	t.Run("both sides escalate to bilateral", func(t *testing.T) {
		got := ResolveLaterality([]string{"PTV LT Breast", "PTV RT Breast", "HEART"})
		assert.Equal(t, LateralityBilateral, got)
	})
	t.Run("single side stays single", func(t *testing.T) {
		got := ResolveLaterality([]string{"PTV LT Breast", "HEART", "LUNG"})
		assert.Equal(t, LateralityLeft, got)
	})
	t.Run("no side markers", func(t *testing.T) {
		got := ResolveLaterality([]string{"PTV5400", "BODY"})
		assert.Equal(t, LateralityNone, got)
	})
}

func TestResolve_SiteHint(t *testing.T) {
	assert.Equal(t, "Breast", Resolve("LT Breast 4256").SiteHint)
	assert.Equal(t, "Prostate", Resolve("Prostate 7800").SiteHint)
	assert.Equal(t, "", Resolve("PTV5400").SiteHint)
}

func TestResolve_Deterministic(t *testing.T) {
	a := Resolve("PTV LT Breast IABC 4256")
	b := Resolve("PTV LT Breast IABC 4256")
	assert.Equal(t, a, b)
}
