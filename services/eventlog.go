package services

import (
	"sync"

	"recovery-companion-system/models"
)

// EventLog is the append-only, per-user ordered log of recovery events. Entries
// are written once by ingestion and never mutated; readers get copies. Each user
// has their own lock — operations on different users never contend.
type EventLog struct {
	mu    sync.Mutex
	users map[string]*userEvents
}

type userEvents struct {
	mu     sync.Mutex
	events []models.RecoveryEvent
}

func NewEventLog() *EventLog {
	return &EventLog{users: make(map[string]*userEvents)}
}

func (l *EventLog) userLog(externalUserID string) *userEvents {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[externalUserID]
	if !ok {
		u = &userEvents{}
		l.users[externalUserID] = u
	}
	return u
}

// Append adds an event to the user's log.
func (l *EventLog) Append(ev models.RecoveryEvent) {
	u := l.userLog(ev.ExternalUserID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, ev)
}

// ForUser returns a copy of the user's event log in insertion order.
func (l *EventLog) ForUser(externalUserID string) []models.RecoveryEvent {
	u := l.userLog(externalUserID)
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]models.RecoveryEvent, len(u.events))
	copy(out, u.events)
	return out
}
