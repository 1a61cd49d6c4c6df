package controller

import (
	"sync"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// Status is the synchronization-guarded view of the controller exposed to
// the control surface. All mutation goes through accessor methods.
type Status struct {
	mu        sync.RWMutex
	running   bool
	phase     harvest.Phase
	page      int
	category  harvest.Category
	harvested int64
	verified  int64
	removed   int64
}

// StatusSnapshot is one consistent copy of the controller status.
type StatusSnapshot struct {
	Running         bool             `json:"running"`
	Phase           harvest.Phase    `json:"phase"`
	CurrentPage     int              `json:"current_page"`
	CurrentCategory harvest.Category `json:"current_category"`
	TotalHarvested  int64            `json:"total_items_harvested"`
	TotalVerified   int64            `json:"total_items_verified"`
	TotalRemoved    int64            `json:"total_items_removed"`
}

// NewStatus returns a Status at the default resting position.
func NewStatus() *Status {
	return &Status{phase: harvest.PhaseHarvesting, page: 1}
}

// SetRunning records whether the loop goroutine is alive.
func (s *Status) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// Running reports whether the loop goroutine is alive.
func (s *Status) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetPhase records the active phase.
func (s *Status) SetPhase(phase harvest.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

// SetCursor records the harvest position.
func (s *Status) SetCursor(page int, category harvest.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
	s.category = category
}

// IncHarvested counts one newly merged record.
func (s *Status) IncHarvested() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.harvested++
}

// IncVerified counts one record confirmed still valid.
func (s *Status) IncVerified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified++
}

// IncRemoved counts one record pruned by verification.
func (s *Status) IncRemoved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed++
}

// Snapshot returns a consistent copy for the control surface.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatusSnapshot{
		Running:         s.running,
		Phase:           s.phase,
		CurrentPage:     s.page,
		CurrentCategory: s.category,
		TotalHarvested:  s.harvested,
		TotalVerified:   s.verified,
		TotalRemoved:    s.removed,
	}
}
