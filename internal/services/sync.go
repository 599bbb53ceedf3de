package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"modelhub-backend/internal/models"
)

// CatalogFetcher pulls the full remote catalog.
type CatalogFetcher interface {
	FetchAll(ctx context.Context, pageSize int) []models.ModelRecord
}

// CatalogStore persists the merged catalog.
type CatalogStore interface {
	Load() (*models.CatalogFile, error)
	MergeAndSave(existing *models.CatalogFile, fresh []models.ModelRecord, now time.Time) (*models.CatalogFile, int, error)
}

// EventPublisher pushes sync notifications to connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, msg models.WSMessage) error
}

// SyncResult describes one completed sync.
type SyncResult struct {
	Fetched int
	Added   int
	Total   int
}

// Syncer runs fetch → merge → prompt rebuild. Overlapping calls share one run.
type Syncer struct {
	fetcher  CatalogFetcher
	store    CatalogStore
	state    *CatalogState
	events   EventPublisher
	tokens   *TokenCounter
	pageSize int
	now      func() time.Time

	group singleflight.Group
}

func NewSyncer(fetcher CatalogFetcher, store CatalogStore, state *CatalogState, pageSize int) *Syncer {
	return &Syncer{
		fetcher:  fetcher,
		store:    store,
		state:    state,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// WithEvents sets where sync outcomes are published.
func (s *Syncer) WithEvents(events EventPublisher) *Syncer {
	s.events = events
	return s
}

// WithTokenCounter enables prompt size logging after each rebuild.
func (s *Syncer) WithTokenCounter(tokens *TokenCounter) *Syncer {
	s.tokens = tokens
	return s
}

// Run performs a sync, or waits for the one already in flight and returns its
// result. On failure the in-memory catalog is left as it was.
func (s *Syncer) Run(ctx context.Context) (SyncResult, error) {
	v, err, shared := s.group.Do("sync", func() (interface{}, error) {
		return s.run(ctx)
	})
	if shared {
		log.Printf("sync: joined a sync already in progress")
	}
	if err != nil {
		return SyncResult{}, err
	}
	return v.(SyncResult), nil
}

// Trigger starts a sync in the background and returns immediately.
func (s *Syncer) Trigger() {
	go func() {
		if _, err := s.Run(context.Background()); err != nil {
			log.Printf("sync: manual sync failed: %v", err)
		}
	}()
}

func (s *Syncer) run(ctx context.Context) (SyncResult, error) {
	log.Printf("[%s] Syncing models...", s.now().Format("15:04:05"))

	existing, err := s.store.Load()
	if err != nil {
		return SyncResult{}, s.fail(ctx, fmt.Errorf("load catalog: %w", err))
	}

	fresh := s.fetcher.FetchAll(ctx, s.pageSize)

	merged, added, err := s.store.MergeAndSave(existing, fresh, s.now())
	if err != nil {
		return SyncResult{}, s.fail(ctx, fmt.Errorf("save catalog: %w", err))
	}

	if added > 0 {
		log.Printf("  New models: %d", added)
	} else {
		log.Printf("  No new models.")
	}

	s.state.Replace(merged)
	log.Printf("  Total models: %d", merged.Total)
	if s.tokens != nil {
		log.Printf("  System prompt: %d tokens", s.tokens.Count(s.state.SystemPrompt()))
	}

	result := SyncResult{Fetched: len(fresh), Added: added, Total: merged.Total}
	s.publish(ctx, models.WSMessage{
		Type:    models.EventSyncCompleted,
		Payload: models.SyncEvent{Total: result.Total, Added: result.Added, Timestamp: s.now()},
	})
	return result, nil
}

func (s *Syncer) fail(ctx context.Context, err error) error {
	log.Printf("  Sync failed: %v", err)
	s.publish(ctx, models.WSMessage{
		Type:    models.EventSyncFailed,
		Payload: models.SyncEvent{Total: s.state.Total(), Error: err.Error(), Timestamp: s.now()},
	})
	return err
}

func (s *Syncer) publish(ctx context.Context, msg models.WSMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, msg); err != nil {
		log.Printf("sync: failed to publish %s event: %v", msg.Type, err)
	}
}
