package services

import (
	"sort"
	"sync"
	"time"

	"modelhub-backend/internal/models"
)

// CatalogSnapshot is a consistent view of the catalog and its prompt.
type CatalogSnapshot struct {
	Models      []models.ModelRecord
	Prompt      string
	LastUpdated *time.Time
}

// CatalogState owns the in-memory catalog, the rendered system prompt and
// the last sync time. Readers always see all three from the same sync.
type CatalogState struct {
	mu          sync.RWMutex
	models      []models.ModelRecord
	prompt      string
	lastUpdated *time.Time
}

func NewCatalogState(file *models.CatalogFile) *CatalogState {
	s := &CatalogState{}
	s.Replace(file)
	return s
}

// Replace renders the prompt for file and swaps it in.
func (s *CatalogState) Replace(file *models.CatalogFile) {
	if file == nil {
		file = models.EmptyCatalog()
	}

	records := make([]models.ModelRecord, len(file.Models))
	copy(records, file.Models)
	prompt := BuildSystemPrompt(len(records), FormatModelsForPrompt(records))

	var last *time.Time
	if file.LastUpdated != nil {
		t := file.LastUpdated.Time
		last = &t
	}

	s.mu.Lock()
	s.models = records
	s.prompt = prompt
	s.lastUpdated = last
	s.mu.Unlock()
}

func (s *CatalogState) Snapshot() CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CatalogSnapshot{Models: s.models, Prompt: s.prompt, LastUpdated: s.lastUpdated}
}

func (s *CatalogState) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

func (s *CatalogState) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

// Stats counts models per task name, most common first. Ties keep the order
// in which the task name was first seen.
func (s *CatalogState) Stats() models.StatsResponse {
	snap := s.Snapshot()

	index := make(map[string]int)
	var cats models.Categories
	for _, m := range snap.Models {
		task := m.Field("taskName")
		if task == "" {
			continue
		}
		i, ok := index[task]
		if !ok {
			i = len(cats)
			index[task] = i
			cats = append(cats, models.CategoryCount{Name: task})
		}
		cats[i].Count++
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].Count > cats[j].Count
	})

	resp := models.StatsResponse{Total: len(snap.Models), Categories: cats}
	if snap.LastUpdated != nil {
		resp.LastUpdated = models.NewTimestamp(*snap.LastUpdated)
	}
	return resp
}
