package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_AllCategoriesPresent(t *testing.T) {
	r := Aggregate("pat1", "plan1", nil)
	require.Len(t, r.Sections, len(Categories))
	for i, c := range Categories {
		assert.Equal(t, c, r.Sections[i].Category)
		require.Len(t, r.Sections[i].Findings, 1)
		assert.Contains(t, r.Sections[i].Findings[0].Message, "data unavailable")
		assert.Equal(t, Info, r.Sections[i].Findings[0].Severity)
	}
}

func TestAggregate_PreservesOrderWithinCategory(t *testing.T) {
	findings := []Finding{
		{Category: CategoryDose, Severity: Critical, Message: "third"},
		{Category: CategoryPlan, Severity: Info, Message: "first"},
		{Category: CategoryDose, Severity: Info, Message: "fourth"},
		{Category: CategoryPlan, Severity: Warning, Message: "second"},
	}
	r := Aggregate("pat1", "plan1", findings)

	planSec, ok := r.Section(CategoryPlan)
	require.True(t, ok)
	require.Len(t, planSec.Findings, 2)
	assert.Equal(t, "first", planSec.Findings[0].Message)
	assert.Equal(t, "second", planSec.Findings[1].Message)

	doseSec, ok := r.Section(CategoryDose)
	require.True(t, ok)
	assert.Equal(t, "third", doseSec.Findings[0].Message)
	assert.Equal(t, "fourth", doseSec.Findings[1].Message)
}

func TestReport_WorstSeverity(t *testing.T) {
	t.Run("empty report is info", func(t *testing.T) {
		r := Aggregate("p", "p", nil)
		assert.Equal(t, Info, r.WorstSeverity())
	})
	t.Run("critical dominates", func(t *testing.T) {
		r := Aggregate("p", "p", []Finding{
			{Category: CategoryPlan, Severity: Warning, Message: "w"},
			{Category: CategoryDose, Severity: Critical, Message: "c"},
		})
		assert.Equal(t, Critical, r.WorstSeverity())
	})
}

func TestReport_Count(t *testing.T) {
	r := Aggregate("p", "p", []Finding{
		{Category: CategoryPlan, Severity: Warning, Message: "a"},
		{Category: CategoryBeam, Severity: Warning, Message: "b"},
		{Category: CategoryDose, Severity: Critical, Message: "c"},
	})
	assert.Equal(t, 2, r.Count(Warning))
	assert.Equal(t, 1, r.Count(Critical))
}
