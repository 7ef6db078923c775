package services

import (
	"testing"
	"time"

	"recovery-companion-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var insightNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testInsightEngine() *InsightEngine {
	e := NewInsightEngine(nil)
	e.Now = func() time.Time { return insightNow }
	return e
}

func sev(n int) *int { return &n }

func logObs(t *testing.T, e *InsightEngine, userID string, typ models.PatternType, severity *int, age time.Duration, payload map[string]string) {
	t.Helper()
	_, err := e.RecordObservation(userID, models.PatternObservation{
		Type:       typ,
		Severity:   severity,
		Payload:    payload,
		ObservedAt: insightNow.Add(-age),
	})
	require.NoError(t, err)
}

func TestRecordObservationRejectsUnknownType(t *testing.T) {
	e := testInsightEngine()

	_, err := e.RecordObservation("user-1", models.PatternObservation{Type: "nap"})
	assert.ErrorIs(t, err, ErrInvalidObservation)
}

func TestRecordObservationRejectsSeverityOutOfRange(t *testing.T) {
	e := testInsightEngine()

	_, err := e.RecordObservation("user-1", models.PatternObservation{Type: models.PatternTypeMood, Severity: sev(0)})
	assert.ErrorIs(t, err, ErrInvalidObservation)

	_, err = e.RecordObservation("user-1", models.PatternObservation{Type: models.PatternTypeMood, Severity: sev(11)})
	assert.ErrorIs(t, err, ErrInvalidObservation)
}

func TestRecordObservationDefaultsIDAndTimestamp(t *testing.T) {
	e := testInsightEngine()

	obs, err := e.RecordObservation("user-1", models.PatternObservation{Type: models.PatternTypeMood})
	require.NoError(t, err)
	assert.NotEmpty(t, obs.ID)
	assert.Equal(t, insightNow, obs.ObservedAt)
	assert.Equal(t, "user-1", obs.ExternalUserID)
}

func TestWindowBoundaryIsExclusive(t *testing.T) {
	e := testInsightEngine()

	// Exactly seven days old: outside the window
	logObs(t, e, "user-1", models.PatternTypeMood, sev(4), 7*24*time.Hour, nil)
	// One minute inside
	logObs(t, e, "user-1", models.PatternTypeMood, sev(4), 7*24*time.Hour-time.Minute, nil)

	insights := e.GetInsights("user-1")
	require.Len(t, insights.Patterns, 1)
	assert.Equal(t, insightNow.Add(-(7*24*time.Hour - time.Minute)), insights.Patterns[0].ObservedAt)
}

func TestCrisisObservationForcesHighRisk(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeCrisis, nil, time.Hour, nil)

	insights := e.GetInsights("user-1")
	assert.Equal(t, models.RiskLevelHigh, insights.RiskLevel)

	require.NotEmpty(t, insights.Predictions)
	p := insights.Predictions[0]
	assert.Equal(t, models.PredictionTypeRisk, p.Type)
	assert.InDelta(t, 0.7, p.Confidence, 1e-9)
	assert.True(t, p.Actionable)
}

func TestHighSeverityAboveSevenCountsAsCrisisSignal(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeMood, sev(8), time.Hour, nil)

	insights := e.GetInsights("user-1")
	require.NotEmpty(t, insights.Predictions)
	assert.Equal(t, models.PredictionTypeRisk, insights.Predictions[0].Type)

	// Severity exactly 7 does not trip the crisis signal
	e2 := testInsightEngine()
	logObs(t, e2, "user-2", models.PatternTypeMood, sev(7), time.Hour, nil)
	assert.Empty(t, e2.GetInsights("user-2").Predictions)
}

func TestRiskLevelAggregation(t *testing.T) {
	// Low: plenty of calm observations
	e := testInsightEngine()
	for i := 0; i < 5; i++ {
		logObs(t, e, "user-1", models.PatternTypeMood, sev(3), time.Duration(i+1)*time.Hour, nil)
	}
	assert.Equal(t, models.RiskLevelLow, e.GetInsights("user-1").RiskLevel)

	// Medium: sparse week, no severity signal
	e = testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeMood, sev(3), time.Hour, nil)
	logObs(t, e, "user-1", models.PatternTypeMood, sev(3), 2*time.Hour, nil)
	assert.Equal(t, models.RiskLevelMedium, e.GetInsights("user-1").RiskLevel)

	// Medium: one high-severity entry among many calm ones
	e = testInsightEngine()
	for i := 0; i < 5; i++ {
		logObs(t, e, "user-1", models.PatternTypeMood, sev(3), time.Duration(i+1)*time.Hour, nil)
	}
	logObs(t, e, "user-1", models.PatternTypeMood, sev(9), 6*time.Hour, nil)
	assert.Equal(t, models.RiskLevelMedium, e.GetInsights("user-1").RiskLevel)

	// High: more than two high-severity entries
	e = testInsightEngine()
	for i := 0; i < 3; i++ {
		logObs(t, e, "user-1", models.PatternTypeMood, sev(9), time.Duration(i+1)*time.Hour, nil)
	}
	assert.Equal(t, models.RiskLevelHigh, e.GetInsights("user-1").RiskLevel)
}

func TestSparseMealLoggingProducesRiskPrediction(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeMeal, sev(3), time.Hour, nil)
	logObs(t, e, "user-1", models.PatternTypeMeal, sev(3), 2*time.Hour, nil)

	insights := e.GetInsights("user-1")
	assert.Equal(t, models.RiskLevelMedium, insights.RiskLevel)

	require.NotEmpty(t, insights.Predictions)
	found := false
	for _, p := range insights.Predictions {
		if p.Type == models.PredictionTypeRisk && p.Confidence == 0.8 {
			found = true
		}
	}
	assert.True(t, found, "expected the sparse-meal risk prediction")

	// Not in crisis: recommendations carry the logging nudge, never crisis items
	assert.Contains(t, insights.Recommendations, "Try to log your experiences regularly - it helps track your progress")
	assert.NotContains(t, insights.Recommendations, "Use your crisis tools and emergency contacts")
}

func TestDistressedMealtimesProduceInsightPrediction(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeMeal, sev(7), time.Hour, nil)
	logObs(t, e, "user-1", models.PatternTypeMeal, sev(7), 2*time.Hour, nil)
	logObs(t, e, "user-1", models.PatternTypeMeal, sev(7), 3*time.Hour, nil)

	insights := e.GetInsights("user-1")
	found := false
	for _, p := range insights.Predictions {
		if p.Type == models.PredictionTypeInsight && p.Confidence == 0.7 {
			found = true
		}
	}
	assert.True(t, found, "expected the meal-difficulty insight")
}

func TestRecurringTriggerInsightWithEarliestTieBreak(t *testing.T) {
	e := testInsightEngine()
	// Oldest first so in-window order matches logging order
	logObs(t, e, "user-1", models.PatternTypeTrigger, nil, 4*time.Hour, map[string]string{"trigger_type": "work stress"})
	logObs(t, e, "user-1", models.PatternTypeTrigger, nil, 3*time.Hour, map[string]string{"trigger_type": "family dinners"})
	logObs(t, e, "user-1", models.PatternTypeTrigger, nil, 2*time.Hour, map[string]string{"trigger_type": "family dinners"})
	logObs(t, e, "user-1", models.PatternTypeTrigger, nil, 1*time.Hour, map[string]string{"trigger_type": "work stress"})

	insights := e.GetInsights("user-1")
	found := ""
	for _, p := range insights.Predictions {
		if p.Type == models.PredictionTypeInsight {
			found = p.Message
		}
	}
	require.NotEmpty(t, found)
	// Tied at 2-2: the value seen earliest in the window wins
	assert.Contains(t, found, "work stress")
}

func TestTriggerInsightRequiresMoreThanTwo(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeTrigger, nil, time.Hour, map[string]string{"trigger_type": "social media"})
	logObs(t, e, "user-1", models.PatternTypeTrigger, nil, 2*time.Hour, map[string]string{"trigger_type": "social media"})

	for _, p := range e.GetInsights("user-1").Predictions {
		assert.NotEqual(t, models.PredictionTypeInsight, p.Type)
	}
}

func TestPredictionHistoryIsBounded(t *testing.T) {
	e := testInsightEngine()
	for i := 0; i < 8; i++ {
		logObs(t, e, "user-1", models.PatternTypeCrisis, nil, time.Duration(i+1)*time.Minute, nil)
	}

	insights := e.GetInsights("user-1")
	assert.Len(t, insights.Predictions, 5)
}

func TestClearPredictionsKeepsObservations(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeCrisis, nil, time.Hour, nil)

	e.ClearPredictions("user-1")

	insights := e.GetInsights("user-1")
	assert.Empty(t, insights.Predictions)
	assert.Len(t, insights.Patterns, 1)
	// Risk derives from observations, not from predictions
	assert.Equal(t, models.RiskLevelHigh, insights.RiskLevel)
}

func TestDefaultRecommendationWhenNothingFires(t *testing.T) {
	e := testInsightEngine()
	for i := 0; i < 6; i++ {
		logObs(t, e, "user-1", models.PatternTypeMood, sev(2), time.Duration(i+1)*time.Hour, nil)
	}

	insights := e.GetInsights("user-1")
	assert.Equal(t, models.RiskLevelLow, insights.RiskLevel)
	assert.Equal(t, []string{"You're doing great! Keep up the good work in your recovery journey"}, insights.Recommendations)
}

func TestHighRiskRecommendationsLeadWithCrisisItems(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeCrisis, nil, time.Hour, nil)
	logObs(t, e, "user-1", models.PatternTypeMeal, sev(6), 2*time.Hour, nil)

	recs := e.GetInsights("user-1").Recommendations
	require.GreaterOrEqual(t, len(recs), 3)
	assert.Equal(t, "Consider reaching out to your treatment team immediately", recs[0])
	assert.Equal(t, "Use your crisis tools and emergency contacts", recs[1])
	// Meal nudge fires after the crisis items (severity above 5)
	assert.Contains(t, recs, "Meal times seem challenging - remember to be gentle with yourself")
}

func TestSnapshotSummarizesWindow(t *testing.T) {
	e := testInsightEngine()
	logObs(t, e, "user-1", models.PatternTypeMood, sev(9), time.Hour, nil)
	logObs(t, e, "user-1", models.PatternTypeMood, sev(3), 2*time.Hour, nil)
	logObs(t, e, "user-1", models.PatternTypeMood, sev(3), 8*24*time.Hour, nil) // outside window

	snap := e.Snapshot("user-1")
	assert.Equal(t, "user-1", snap.ExternalUserID)
	assert.Equal(t, 2, snap.ObservationCount)
	assert.Equal(t, 1, snap.HighSeverityCount)
	assert.Equal(t, models.RiskLevelMedium, snap.Level)
	assert.Equal(t, insightNow, snap.ComputedAt)
}

// --- persistence collaborator ---

type fakeObservationStore struct {
	rows  []models.PatternObservation
	saved []models.PatternObservation
}

func (f *fakeObservationStore) LoadObservations(externalUserID string) ([]models.PatternObservation, error) {
	var out []models.PatternObservation
	for _, r := range f.rows {
		if r.ExternalUserID == externalUserID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeObservationStore) SaveObservation(o *models.PatternObservation) error {
	f.saved = append(f.saved, *o)
	return nil
}

func TestHydratesPersistedObservations(t *testing.T) {
	store := &fakeObservationStore{rows: []models.PatternObservation{
		{ID: "obs-1", ExternalUserID: "user-1", Type: models.PatternTypeCrisis, ObservedAt: insightNow.Add(-time.Hour)},
	}}
	e := NewInsightEngine(store)
	e.Now = func() time.Time { return insightNow }

	insights := e.GetInsights("user-1")
	assert.Equal(t, models.RiskLevelHigh, insights.RiskLevel)
	require.Len(t, insights.Patterns, 1)
	assert.Equal(t, "obs-1", insights.Patterns[0].ID)
}

func TestObservationsArePersisted(t *testing.T) {
	store := &fakeObservationStore{}
	e := NewInsightEngine(store)
	e.Now = func() time.Time { return insightNow }

	obs, err := e.RecordObservation("user-1", models.PatternObservation{Type: models.PatternTypeMood, Severity: sev(4)})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, obs.ID, store.saved[0].ID)
}
