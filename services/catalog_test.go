package services

import (
	"testing"
	"time"

	"recovery-companion-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModuleCatalogRejectsCycles(t *testing.T) {
	_, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "A", Prerequisites: []int{2}, IsActive: true},
		{ID: 2, Title: "B", Prerequisites: []int{1}, IsActive: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNewModuleCatalogRejectsSelfLoop(t *testing.T) {
	_, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "A", Prerequisites: []int{1}, IsActive: true},
	})
	require.Error(t, err)
}

func TestNewModuleCatalogRejectsDuplicateIDs(t *testing.T) {
	_, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "A", IsActive: true},
		{ID: 1, Title: "B", IsActive: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewModuleCatalogRejectsUnknownPrerequisite(t *testing.T) {
	_, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "A", Prerequisites: []int{99}, IsActive: true},
	})
	require.Error(t, err)
}

func TestNewModuleCatalogRejectsDuplicateActivityIDs(t *testing.T) {
	_, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "A", IsActive: true, Activities: []models.ActivityConfig{
			{ID: "act", Points: 10},
			{ID: "act", Points: 20},
		}},
	})
	require.Error(t, err)
}

func TestNewModuleCatalogComputesSlug(t *testing.T) {
	c, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "Understanding Your Triggers", IsActive: true},
	})
	require.NoError(t, err)

	mod, ok := c.Module(1)
	require.True(t, ok)
	assert.Equal(t, "understanding-your-triggers", mod.Slug)
}

func TestActiveSortedOrdersAscending(t *testing.T) {
	c, err := NewModuleCatalog([]models.Module{
		{ID: 3, Title: "C", IsActive: true},
		{ID: 1, Title: "A", IsActive: true},
		{ID: 2, Title: "B", IsActive: false},
	})
	require.NoError(t, err)

	active := c.ActiveSorted()
	require.Len(t, active, 2)
	assert.Equal(t, 1, active[0].ID)
	assert.Equal(t, 3, active[1].ID)
}

func TestActivateDueFlipsOnlyPastDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	c, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "A", IsActive: false, ActivatesAt: &past},
		{ID: 2, Title: "B", IsActive: false, ActivatesAt: &future},
		{ID: 3, Title: "C", IsActive: false},
	})
	require.NoError(t, err)

	activated := c.ActivateDue(now)
	assert.Equal(t, []int{1}, activated)

	mod, _ := c.Module(1)
	assert.True(t, mod.IsActive)
	mod, _ = c.Module(2)
	assert.False(t, mod.IsActive)
	mod, _ = c.Module(3)
	assert.False(t, mod.IsActive)

	// Second sweep is a no-op
	assert.Empty(t, c.ActivateDue(now))
}

func TestModuleReturnsCopy(t *testing.T) {
	c, err := NewModuleCatalog([]models.Module{
		{ID: 1, Title: "A", IsActive: true, Activities: []models.ActivityConfig{{ID: "x", Points: 5}}},
	})
	require.NoError(t, err)

	mod, ok := c.Module(1)
	require.True(t, ok)
	mod.Title = "mutated"

	again, _ := c.Module(1)
	assert.Equal(t, "A", again.Title)
}
