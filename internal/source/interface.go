package source

import (
	"context"

	"github.com/Prabhat2912/contest-tracker/internal/models"
)

// ContestSource defines the interface for upstream contest providers
type ContestSource interface {
	// Name returns the unique name of this source
	Name() string

	// Fetch retrieves and normalizes contests from the source
	Fetch(ctx context.Context) ([]models.Contest, error)
}

// FetchResult carries the outcome of one source's fetch. A failed source is
// reported with Err set and no contests so the caller can merge partial
// successes without losing sight of the failure.
type FetchResult struct {
	Source   string
	Contests []models.Contest
	Err      error
}

// Manager manages multiple contest sources
type Manager struct {
	sources []ContestSource
}

// NewManager creates a new source manager
func NewManager() *Manager {
	return &Manager{
		sources: make([]ContestSource, 0),
	}
}

// Register adds a source to the manager
func (m *Manager) Register(source ContestSource) {
	m.sources = append(m.sources, source)
}

// Sources returns all registered sources
func (m *Manager) Sources() []ContestSource {
	return m.sources
}

// GetSourceByName returns a source by name
func (m *Manager) GetSourceByName(name string) ContestSource {
	for _, s := range m.sources {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// FetchAll fetches contests from all sources concurrently. It waits for every
// fetch to settle; one source failing never blocks or fails the others.
func (m *Manager) FetchAll(ctx context.Context) []FetchResult {
	results := make(chan FetchResult, len(m.sources))

	for _, src := range m.sources {
		go func(s ContestSource) {
			contests, err := s.Fetch(ctx)
			results <- FetchResult{Source: s.Name(), Contests: contests, Err: err}
		}(src)
	}

	all := make([]FetchResult, 0, len(m.sources))
	for range m.sources {
		all = append(all, <-results)
	}

	return all
}
