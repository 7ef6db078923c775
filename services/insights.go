package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"recovery-companion-system/models"

	"github.com/google/uuid"
)

// InsightThresholds define the policy constants behind the pattern heuristics
// (tunable via config later). Defaults are the product's literal values.
type InsightThresholds struct {
	Window time.Duration // "recent" = strictly newer than now - Window

	CrisisSeverity   int     // severity strictly above this counts as a crisis signal
	CrisisConfidence float64 // fixed: a hard trigger, not a statistical estimate

	MealWeekMinimum       int     // fewer meal logs than this per window ⇒ risk
	MealRiskConfidence    float64
	MealSeverityAvg       float64 // average meal severity above this ⇒ insight
	MealInsightConfidence float64

	TriggerMinimum           int // more trigger logs than this ⇒ recurring-trigger insight
	TriggerInsightConfidence float64

	HighRiskSeverityCount        int // more high-severity logs than this ⇒ high risk
	MediumRiskObservationMinimum int // fewer total logs than this ⇒ at least medium

	RecommendationLogMinimum   int // fewer logs than this ⇒ logging-consistency nudge
	RecommendationMealSeverity int // any meal log above this ⇒ meal nudge

	PredictionHistory int // bounded per-user prediction history
}

var DefaultInsightThresholds = InsightThresholds{
	Window:                       7 * 24 * time.Hour,
	CrisisSeverity:               7,
	CrisisConfidence:             0.7,
	MealWeekMinimum:              3,
	MealRiskConfidence:           0.8,
	MealSeverityAvg:              6,
	MealInsightConfidence:        0.7,
	TriggerMinimum:               2,
	TriggerInsightConfidence:     0.6,
	HighRiskSeverityCount:        2,
	MediumRiskObservationMinimum: 3,
	RecommendationLogMinimum:     5,
	RecommendationMealSeverity:   5,
	PredictionHistory:            5,
}

// ObservationStore is the persistence collaborator for the observation log.
type ObservationStore interface {
	LoadObservations(externalUserID string) ([]models.PatternObservation, error)
	SaveObservation(o *models.PatternObservation) error
}

// InsightEngine maintains the per-user observation log and derives risk levels,
// predictions and recommendations over a rolling window. The window is filtered
// from the full log at read time rather than maintained incrementally — O(n) per
// read, with n bounded by real-world logging cadence (tens per week).
type InsightEngine struct {
	T     InsightThresholds
	Store ObservationStore // optional; nil means in-memory only

	// Now supplies current time; injectable for deterministic tests
	Now func() time.Time

	mu    sync.Mutex
	users map[string]*userInsightState
}

type userInsightState struct {
	mu           sync.Mutex
	loaded       bool
	observations []models.PatternObservation // append order breaks timestamp ties
	predictions  []models.Prediction         // bounded to T.PredictionHistory
}

func NewInsightEngine(store ObservationStore) *InsightEngine {
	return &InsightEngine{
		T:     DefaultInsightThresholds,
		Store: store,
		Now:   time.Now,
		users: make(map[string]*userInsightState),
	}
}

func (e *InsightEngine) userState(externalUserID string) *userInsightState {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[externalUserID]
	if !ok {
		u = &userInsightState{}
		e.users[externalUserID] = u
	}
	return u
}

// hydrate loads persisted observations on first touch. Caller holds u.mu.
func (e *InsightEngine) hydrate(externalUserID string, u *userInsightState) {
	if u.loaded {
		return
	}
	u.loaded = true
	if e.Store == nil {
		return
	}
	rows, err := e.Store.LoadObservations(externalUserID)
	if err != nil {
		log.Printf("⚠️ Failed to load observations for %s, starting cold: %v", externalUserID, err)
		return
	}
	u.observations = rows
}

// RecordObservation validates and appends an observation, then recomputes the
// derived predictions for that user only. Observations are immutable once
// recorded.
func (e *InsightEngine) RecordObservation(externalUserID string, obs models.PatternObservation) (*models.PatternObservation, error) {
	if !models.KnownPatternType(obs.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidObservation, obs.Type)
	}
	if obs.Severity != nil && (*obs.Severity < 1 || *obs.Severity > 10) {
		return nil, fmt.Errorf("%w: severity %d outside 1-10", ErrInvalidObservation, *obs.Severity)
	}

	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	obs.ExternalUserID = externalUserID
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = e.Now()
	}

	u := e.userState(externalUserID)
	u.mu.Lock()
	e.hydrate(externalUserID, u)
	u.observations = append(u.observations, obs)
	e.analyze(u)
	cp := obs
	u.mu.Unlock()

	if e.Store != nil {
		if err := e.Store.SaveObservation(&cp); err != nil {
			log.Printf("⚠️ Failed to persist observation %s for %s: %v", cp.ID, externalUserID, err)
		}
	}
	return &cp, nil
}

// analyze recomputes predictions from the current window. Caller holds u.mu.
// The crisis check re-fires on every recomputation while the triggering
// observation remains inside the window; the category heuristics are purely
// additive and never suppress it.
func (e *InsightEngine) analyze(u *userInsightState) {
	now := e.Now()
	recent := windowed(u.observations, now, e.T.Window)

	for _, o := range recent {
		if o.Type == models.PatternTypeCrisis || o.HighSeverity(e.T.CrisisSeverity) {
			e.addPrediction(u, models.Prediction{
				Type:       models.PredictionTypeRisk,
				Confidence: e.T.CrisisConfidence,
				Message:    "Recent entries suggest you may be going through a very hard moment.",
				Actionable: true,
				Action:     "Seek immediate support — reach out to your treatment team or a crisis line",
				CreatedAt:  now,
			})
			break
		}
	}

	e.analyzeMealPatterns(u, filterByType(recent, models.PatternTypeMeal), now)
	e.analyzeTriggerPatterns(u, filterByType(recent, models.PatternTypeTrigger), now)
}

func (e *InsightEngine) analyzeMealPatterns(u *userInsightState, meals []models.PatternObservation, now time.Time) {
	if len(meals) == 0 {
		return
	}

	if len(meals) < e.T.MealWeekMinimum {
		e.addPrediction(u, models.Prediction{
			Type:       models.PredictionTypeRisk,
			Confidence: e.T.MealRiskConfidence,
			Message:    "You've logged fewer meals than usual this week. Remember that regular nourishment supports your recovery.",
			Actionable: true,
			Action:     "Consider reaching out to your support team",
			CreatedAt:  now,
		})
	}

	var sum float64
	for _, m := range meals {
		if m.Severity != nil {
			sum += float64(*m.Severity)
		}
	}
	if sum/float64(len(meals)) > e.T.MealSeverityAvg {
		e.addPrediction(u, models.Prediction{
			Type:       models.PredictionTypeInsight,
			Confidence: e.T.MealInsightConfidence,
			Message:    "Meal times seem to be particularly challenging right now. This is normal in recovery.",
			Actionable: true,
			Action:     "Try some gentle self-compassion exercises",
			CreatedAt:  now,
		})
	}
}

func (e *InsightEngine) analyzeTriggerPatterns(u *userInsightState, triggers []models.PatternObservation, now time.Time) {
	if len(triggers) <= e.T.TriggerMinimum {
		return
	}

	common := mostCommonTrigger(triggers)
	if common == "" {
		return
	}
	e.addPrediction(u, models.Prediction{
		Type:       models.PredictionTypeInsight,
		Confidence: e.T.TriggerInsightConfidence,
		Message:    fmt.Sprintf("I notice that %s seems to be a recurring challenge. You're not alone in this.", common),
		Actionable: true,
		Action:     "Consider discussing this pattern with your therapist",
		CreatedAt:  now,
	})
}

// mostCommonTrigger returns the mode of the trigger_type payload values; on a
// tie, the value that occurred earliest in the window wins.
func mostCommonTrigger(triggers []models.PatternObservation) string {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, t := range triggers {
		name := t.Payload["trigger_type"]
		if name == "" {
			name = "unknown"
		}
		if _, ok := firstSeen[name]; !ok {
			firstSeen[name] = i
		}
		counts[name]++
	}

	best := ""
	for name, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && firstSeen[name] < firstSeen[best]) {
			best = name
		}
	}
	return best
}

// addPrediction appends and trims to the bounded history. Caller holds u.mu.
func (e *InsightEngine) addPrediction(u *userInsightState, p models.Prediction) {
	u.predictions = append(u.predictions, p)
	if over := len(u.predictions) - e.T.PredictionHistory; over > 0 {
		u.predictions = u.predictions[over:]
	}
}

// GetInsights returns the recent window, the bounded prediction history, the
// aggregated risk level and the recommendation list — all from one consistent
// snapshot of the log at call time.
func (e *InsightEngine) GetInsights(externalUserID string) models.UserInsights {
	u := e.userState(externalUserID)
	u.mu.Lock()
	defer u.mu.Unlock()
	e.hydrate(externalUserID, u)

	recent := windowed(u.observations, e.Now(), e.T.Window)
	level := e.riskLevel(recent)

	predictions := make([]models.Prediction, len(u.predictions))
	copy(predictions, u.predictions)

	return models.UserInsights{
		Patterns:        recent,
		Predictions:     predictions,
		RiskLevel:       level,
		Recommendations: e.recommendations(recent, level),
	}
}

// ClearPredictions empties the ephemeral prediction history without touching the
// observation log (UI "dismiss").
func (e *InsightEngine) ClearPredictions(externalUserID string) {
	u := e.userState(externalUserID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.predictions = nil
}

// riskLevel aggregates the window. The check order is significant: high first,
// then medium, else low — a sparse week with no severity signal is medium, not
// low, because sparse data is itself a risk signal.
func (e *InsightEngine) riskLevel(recent []models.PatternObservation) models.RiskLevel {
	crisisCount := 0
	highSeverity := 0
	for _, o := range recent {
		if o.Type == models.PatternTypeCrisis {
			crisisCount++
		}
		if o.HighSeverity(e.T.CrisisSeverity) {
			highSeverity++
		}
	}

	if crisisCount > 0 || highSeverity > e.T.HighRiskSeverityCount {
		return models.RiskLevelHigh
	}
	if highSeverity > 0 || len(recent) < e.T.MediumRiskObservationMinimum {
		return models.RiskLevelMedium
	}
	return models.RiskLevelLow
}

// recommendations is a fixed-priority list: crisis items first (high risk only),
// then the logging-consistency nudge, then the meal-difficulty nudge, and a
// single affirming default when nothing fired. At most one message per rule.
func (e *InsightEngine) recommendations(recent []models.PatternObservation, level models.RiskLevel) []string {
	var out []string

	if level == models.RiskLevelHigh {
		out = append(out,
			"Consider reaching out to your treatment team immediately",
			"Use your crisis tools and emergency contacts",
		)
	}

	if len(recent) < e.T.RecommendationLogMinimum {
		out = append(out, "Try to log your experiences regularly - it helps track your progress")
	}

	for _, o := range recent {
		if o.Type == models.PatternTypeMeal && o.HighSeverity(e.T.RecommendationMealSeverity) {
			out = append(out, "Meal times seem challenging - remember to be gentle with yourself")
			break
		}
	}

	if len(out) == 0 {
		out = append(out, "You're doing great! Keep up the good work in your recovery journey")
	}
	return out
}

// Snapshot computes a persistable point-in-time risk summary for the user.
// Used by the periodic risk sweep worker.
func (e *InsightEngine) Snapshot(externalUserID string) models.RiskSnapshot {
	u := e.userState(externalUserID)
	u.mu.Lock()
	defer u.mu.Unlock()
	e.hydrate(externalUserID, u)

	now := e.Now()
	recent := windowed(u.observations, now, e.T.Window)

	highSeverity := 0
	for _, o := range recent {
		if o.HighSeverity(e.T.CrisisSeverity) {
			highSeverity++
		}
	}

	return models.RiskSnapshot{
		ExternalUserID:    externalUserID,
		Level:             e.riskLevel(recent),
		ObservationCount:  len(recent),
		HighSeverityCount: highSeverity,
		ComputedAt:        now,
	}
}

// TrackedUsers lists users with in-memory observation state, for sweep jobs.
func (e *InsightEngine) TrackedUsers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.users))
	for id := range e.users {
		out = append(out, id)
	}
	return out
}

// windowed filters to observations strictly newer than now - window. An
// observation at exactly the window boundary is excluded.
func windowed(observations []models.PatternObservation, now time.Time, window time.Duration) []models.PatternObservation {
	cutoff := now.Add(-window)
	var out []models.PatternObservation
	for _, o := range observations {
		if o.ObservedAt.After(cutoff) {
			out = append(out, o)
		}
	}
	return out
}

func filterByType(observations []models.PatternObservation, t models.PatternType) []models.PatternObservation {
	var out []models.PatternObservation
	for _, o := range observations {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}
