package services

import (
	"log"
	"sort"
	"sync"
	"time"

	"recovery-companion-system/models"

	"github.com/google/uuid"
)

// ProgressStore is the persistence collaborator for progress records. The engine
// tolerates a cold start with zero records (user never started anything); stores
// are invoked synchronously around mutations, never inside another user's lock.
type ProgressStore interface {
	LoadProgress(externalUserID string) ([]models.UserModuleProgress, error)
	SaveProgress(p *models.UserModuleProgress) error
}

// ProgressionEngine resolves per-user module availability and completion over the
// prerequisite DAG. All per-user state is held in explicit injected containers —
// no ambient instance, so tests can construct isolated fixtures.
type ProgressionEngine struct {
	Catalog *ModuleCatalog
	Store   ProgressStore // optional; nil means in-memory only

	// Now supplies current time; injectable for deterministic tests
	Now func() time.Time

	mu    sync.Mutex
	users map[string]*userProgress
}

// userProgress serializes every operation for one user. Locks are never shared
// across users.
type userProgress struct {
	mu      sync.Mutex
	loaded  bool
	records map[int]*models.UserModuleProgress // keyed by module id
}

func NewProgressionEngine(catalog *ModuleCatalog, store ProgressStore) *ProgressionEngine {
	return &ProgressionEngine{
		Catalog: catalog,
		Store:   store,
		Now:     time.Now,
		users:   make(map[string]*userProgress),
	}
}

func (e *ProgressionEngine) userState(externalUserID string) *userProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[externalUserID]
	if !ok {
		u = &userProgress{records: make(map[int]*models.UserModuleProgress)}
		e.users[externalUserID] = u
	}
	return u
}

// hydrate loads the user's persisted records on first touch. Caller holds u.mu.
func (e *ProgressionEngine) hydrate(externalUserID string, u *userProgress) {
	if u.loaded {
		return
	}
	u.loaded = true
	if e.Store == nil {
		return
	}
	rows, err := e.Store.LoadProgress(externalUserID)
	if err != nil {
		log.Printf("⚠️ Failed to load progress for %s, starting cold: %v", externalUserID, err)
		return
	}
	for i := range rows {
		r := rows[i]
		u.records[r.ModuleID] = &r
	}
}

func (e *ProgressionEngine) persist(p models.UserModuleProgress) {
	if e.Store == nil {
		return
	}
	if err := e.Store.SaveProgress(&p); err != nil {
		log.Printf("⚠️ Failed to persist progress (user=%s, module=%d): %v", p.ExternalUserID, p.ModuleID, err)
	}
}

// StartModule creates a progress record for (user, module). Starting an
// in-progress module is idempotent and returns the existing record unchanged;
// starting a completed module fails. Prerequisite gating is the caller's job —
// callers must have observed "available" status first — but module existence is
// always re-validated.
func (e *ProgressionEngine) StartModule(externalUserID string, moduleID int) (*models.UserModuleProgress, error) {
	if _, ok := e.Catalog.Module(moduleID); !ok {
		return nil, ErrUnknownModule
	}

	u := e.userState(externalUserID)
	u.mu.Lock()
	e.hydrate(externalUserID, u)

	if existing, ok := u.records[moduleID]; ok {
		cp := *existing
		u.mu.Unlock()
		if cp.CompletedAt != nil {
			return nil, ErrAlreadyCompleted
		}
		return &cp, nil
	}

	rec := &models.UserModuleProgress{
		ID:                  uuid.NewString(),
		ExternalUserID:      externalUserID,
		ModuleID:            moduleID,
		StartedAt:           e.Now(),
		ActivitiesCompleted: []string{},
		Score:               0,
		IsActive:            true,
	}
	u.records[moduleID] = rec
	cp := *rec
	u.mu.Unlock()

	e.persist(cp)
	return &cp, nil
}

// CompleteActivity marks an activity done and accumulates score. Re-completing
// an activity is a no-op for the completed set and never double-counts score.
// The activity id must belong to the module's declared activity list.
func (e *ProgressionEngine) CompleteActivity(externalUserID string, moduleID int, activityID string, score int64) error {
	mod, ok := e.Catalog.Module(moduleID)
	if !ok {
		return ErrUnknownModule
	}

	u := e.userState(externalUserID)
	u.mu.Lock()
	e.hydrate(externalUserID, u)

	rec, ok := u.records[moduleID]
	if !ok || rec.CompletedAt != nil {
		u.mu.Unlock()
		return ErrModuleNotStarted
	}

	if _, ok := mod.Activity(activityID); !ok {
		u.mu.Unlock()
		return ErrUnknownActivity
	}

	if !rec.HasCompleted(activityID) {
		rec.ActivitiesCompleted = append(rec.ActivitiesCompleted, activityID)
		rec.Score += score
	}

	if moduleCompleted(rec, &mod) {
		now := e.Now()
		rec.CompletedAt = &now
		rec.IsActive = false
	}

	cp := *rec
	u.mu.Unlock()

	e.persist(cp)
	return nil
}

// moduleCompleted: a module is complete iff every required activity is done.
func moduleCompleted(rec *models.UserModuleProgress, mod *models.Module) bool {
	for _, a := range mod.Activities {
		if a.Required && !rec.HasCompleted(a.ID) {
			return false
		}
	}
	return true
}

// GetModuleStatus derives the gating state for (user, module). Recomputed on
// every call — never cached across mutations.
func (e *ProgressionEngine) GetModuleStatus(externalUserID string, moduleID int) (*models.ModuleStatus, error) {
	mod, ok := e.Catalog.Module(moduleID)
	if !ok {
		return nil, ErrUnknownModule
	}

	u := e.userState(externalUserID)
	u.mu.Lock()
	defer u.mu.Unlock()
	e.hydrate(externalUserID, u)

	completed := completedModuleSet(u)

	status := models.ModuleStateLocked
	if prerequisitesSatisfied(&mod, completed) {
		rec, started := u.records[moduleID]
		switch {
		case !started:
			status = models.ModuleStateAvailable
		case rec.CompletedAt != nil:
			status = models.ModuleStateCompleted
		default:
			status = models.ModuleStateInProgress
		}
	}

	done := 0
	if rec, ok := u.records[moduleID]; ok {
		done = len(rec.ActivitiesCompleted)
	}
	total := len(mod.Activities)
	progress := 0
	if total > 0 {
		progress = done * 100 / total
	}

	return &models.ModuleStatus{
		ModuleID:            moduleID,
		Status:              status,
		Progress:            progress,
		ActivitiesCompleted: done,
		TotalActivities:     total,
	}, nil
}

// GetAvailableModules returns every active module whose full prerequisite set is
// satisfied for the user, ascending by module id.
func (e *ProgressionEngine) GetAvailableModules(externalUserID string) []models.Module {
	u := e.userState(externalUserID)
	u.mu.Lock()
	e.hydrate(externalUserID, u)
	completed := completedModuleSet(u)
	u.mu.Unlock()

	var available []models.Module
	for _, mod := range e.Catalog.ActiveSorted() {
		m := mod
		if prerequisitesSatisfied(&m, completed) {
			available = append(available, m)
		}
	}
	return available
}

// GetNextModule returns the first available module (ascending id) with no
// progress record yet, or nil when every unlocked module has been started.
func (e *ProgressionEngine) GetNextModule(externalUserID string) *models.Module {
	available := e.GetAvailableModules(externalUserID)

	u := e.userState(externalUserID)
	u.mu.Lock()
	defer u.mu.Unlock()

	for i := range available {
		if _, started := u.records[available[i].ID]; !started {
			return &available[i]
		}
	}
	return nil
}

// GetUserOverview summarizes the user's position across the curriculum: current
// module, completed module ids, total accumulated score and catalog size.
func (e *ProgressionEngine) GetUserOverview(externalUserID string) models.UserOverview {
	u := e.userState(externalUserID)
	u.mu.Lock()
	e.hydrate(externalUserID, u)

	var completedIDs []int
	var totalScore int64
	currentModule := 0
	for id, rec := range u.records {
		totalScore += rec.Score
		if rec.CompletedAt != nil {
			completedIDs = append(completedIDs, id)
		}
		if rec.IsActive && (currentModule == 0 || id < currentModule) {
			currentModule = id
		}
	}
	u.mu.Unlock()
	sort.Ints(completedIDs)

	if currentModule == 0 {
		if next := e.GetNextModule(externalUserID); next != nil {
			currentModule = next.ID
		}
	}

	return models.UserOverview{
		CurrentModule:    currentModule,
		ModulesCompleted: completedIDs,
		TotalScore:       totalScore,
		TotalModules:     e.Catalog.Size(),
	}
}

// completedModuleSet: caller holds u.mu.
func completedModuleSet(u *userProgress) map[int]bool {
	out := make(map[int]bool, len(u.records))
	for id, rec := range u.records {
		if rec.CompletedAt != nil {
			out[id] = true
		}
	}
	return out
}

func prerequisitesSatisfied(mod *models.Module, completed map[int]bool) bool {
	for _, p := range mod.Prerequisites {
		if !completed[p] {
			return false
		}
	}
	return true
}
