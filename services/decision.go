package services

import (
	"fmt"
	"time"

	"recovery-companion-system/models"

	"github.com/google/uuid"
)

// DecisionService is the single entry point surrounding components call. It
// routes module events to the progression engine and pattern events to the
// insight engine, appending every accepted event to the event log. It holds no
// state of its own and propagates subsystem errors unchanged.
type DecisionService struct {
	Events      *EventLog
	Progression *ProgressionEngine
	Insights    *InsightEngine

	Now func() time.Time
}

func NewDecisionService(events *EventLog, progression *ProgressionEngine, insights *InsightEngine) *DecisionService {
	return &DecisionService{
		Events:      events,
		Progression: progression,
		Insights:    insights,
		Now:         time.Now,
	}
}

// EventInput is the ingestion payload for RecordEvent.
type EventInput struct {
	Kind        models.EventKind
	ModuleID    int
	ActivityID  string
	Score       int64
	Observation *models.PatternObservation
}

// RecordEvent routes one user event to the subsystem it concerns. The event is
// appended to the log only after the subsystem accepted it — a failed operation
// leaves no trace anywhere.
func (s *DecisionService) RecordEvent(externalUserID string, in EventInput) (*models.RecoveryEvent, error) {
	ev := models.RecoveryEvent{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Kind:           in.Kind,
		RecordedAt:     s.Now(),
	}

	switch in.Kind {
	case models.EventKindModuleStarted:
		if _, err := s.Progression.StartModule(externalUserID, in.ModuleID); err != nil {
			return nil, err
		}
		ev.ModuleID = in.ModuleID

	case models.EventKindActivityCompleted:
		if err := s.Progression.CompleteActivity(externalUserID, in.ModuleID, in.ActivityID, in.Score); err != nil {
			return nil, err
		}
		ev.ModuleID = in.ModuleID
		ev.ActivityID = in.ActivityID
		ev.Score = in.Score

	case models.EventKindObservationLogged:
		if in.Observation == nil {
			return nil, fmt.Errorf("%w: missing observation payload", ErrInvalidObservation)
		}
		obs, err := s.Insights.RecordObservation(externalUserID, *in.Observation)
		if err != nil {
			return nil, err
		}
		ev.ObservationID = obs.ID

	default:
		return nil, fmt.Errorf("%w: unknown event kind %q", ErrInvalidObservation, in.Kind)
	}

	s.Events.Append(ev)
	return &ev, nil
}

// StartModule routes a module-start event through RecordEvent and returns the
// resulting progress record.
func (s *DecisionService) StartModule(externalUserID string, moduleID int) (*models.UserModuleProgress, error) {
	rec, err := s.Progression.StartModule(externalUserID, moduleID)
	if err != nil {
		return nil, err
	}
	s.Events.Append(models.RecoveryEvent{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Kind:           models.EventKindModuleStarted,
		ModuleID:       moduleID,
		RecordedAt:     s.Now(),
	})
	return rec, nil
}

// GetModuleStatus serves gated status on demand (pull model).
func (s *DecisionService) GetModuleStatus(externalUserID string, moduleID int) (*models.ModuleStatus, error) {
	return s.Progression.GetModuleStatus(externalUserID, moduleID)
}

// GetInsights serves the derived risk view on demand (pull model).
func (s *DecisionService) GetInsights(externalUserID string) models.UserInsights {
	return s.Insights.GetInsights(externalUserID)
}

// EventsFor returns a read-only copy of the user's event log.
func (s *DecisionService) EventsFor(externalUserID string) []models.RecoveryEvent {
	return s.Events.ForUser(externalUserID)
}
