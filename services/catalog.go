package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"recovery-companion-system/models"
	"recovery-companion-system/utils"

	"github.com/gosimple/slug"
)

// ModuleCatalog holds the static curriculum definitions supplied at startup.
// Modules form a DAG over prerequisites; cycles are a configuration error and are
// rejected at load time, never at runtime.
type ModuleCatalog struct {
	mu      sync.RWMutex
	modules map[int]*models.Module
	order   []int // ascending module ids
}

// NewModuleCatalog validates the module set and builds the catalog.
func NewModuleCatalog(modules []models.Module) (*ModuleCatalog, error) {
	c := &ModuleCatalog{modules: make(map[int]*models.Module, len(modules))}

	for i := range modules {
		m := modules[i]
		if m.ID <= 0 {
			return nil, fmt.Errorf("module id must be a positive integer, got %d (%q)", m.ID, m.Title)
		}
		if _, dup := c.modules[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %d", m.ID)
		}
		if m.Slug == "" {
			m.Slug = slug.Make(m.Title)
		}
		seen := map[string]bool{}
		for _, a := range m.Activities {
			if a.ID == "" {
				return nil, fmt.Errorf("module %d has an activity without an id", m.ID)
			}
			if seen[a.ID] {
				return nil, fmt.Errorf("module %d has duplicate activity id %q", m.ID, a.ID)
			}
			seen[a.ID] = true
		}
		c.modules[m.ID] = &m
		c.order = append(c.order, m.ID)
	}
	sort.Ints(c.order)

	for _, m := range c.modules {
		for _, p := range m.Prerequisites {
			if _, ok := c.modules[p]; !ok {
				return nil, fmt.Errorf("module %d requires unknown prerequisite %d", m.ID, p)
			}
		}
	}

	if err := c.checkAcyclic(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkAcyclic runs a DFS over prerequisite edges and fails on the first cycle.
func (c *ModuleCatalog) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[int]int, len(c.modules))

	var visit func(id int) error
	visit = func(id int) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("prerequisite cycle detected at module %d", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, p := range c.modules[id].Prerequisites {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, id := range c.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Module returns a copy of the module definition for the given id.
func (c *ModuleCatalog) Module(id int) (models.Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[id]
	if !ok {
		return models.Module{}, false
	}
	return *m, true
}

// All returns all modules sorted ascending by id.
func (c *ModuleCatalog) All() []models.Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Module, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.modules[id])
	}
	return out
}

// ActiveSorted returns active modules sorted ascending by id.
func (c *ModuleCatalog) ActiveSorted() []models.Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Module, 0, len(c.order))
	for _, id := range c.order {
		if c.modules[id].IsActive {
			out = append(out, *c.modules[id])
		}
	}
	return out
}

// Size returns the number of modules in the catalog.
func (c *ModuleCatalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modules)
}

// ActivateDue flips inactive modules whose activation time has passed and
// returns their ids. Called by the maintenance scheduler.
func (c *ModuleCatalog) ActivateDue(now time.Time) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var activated []int
	for _, id := range c.order {
		m := c.modules[id]
		if !m.IsActive && m.ActivatesAt != nil && !m.ActivatesAt.After(now) {
			m.IsActive = true
			m.ActivatesAt = nil
			activated = append(activated, id)
		}
	}
	return activated
}

// LoadCatalogFromDir walks dir for per-module config.json files (one directory
// per module, mirroring the content bundle layout) and decodes them.
func LoadCatalogFromDir(dir string) ([]models.Module, error) {
	paths, err := utils.FindModuleConfigs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog dir %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no module config.json files found under %s", dir)
	}

	var modules []models.Module
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read module config %s: %w", p, err)
		}
		var m models.Module
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse module config %s: %w", p, err)
		}
		modules = append(modules, m)
	}
	return modules, nil
}
