package handlers

import (
	"net/http"

	"modelhub-backend/internal/models"
)

type catalogStats interface {
	Stats() models.StatsResponse
}

type syncTrigger interface {
	Trigger()
}

type CatalogHandler struct {
	catalog catalogStats
	syncer  syncTrigger
}

func NewCatalogHandler(catalog catalogStats, syncer syncTrigger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, syncer: syncer}
}

func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Stats())
}

// Sync starts a manual sync and answers before it finishes. The outcome is
// reported over the event stream, not here.
func (h *CatalogHandler) Sync(w http.ResponseWriter, r *http.Request) {
	h.syncer.Trigger()
	writeJSON(w, http.StatusOK, map[string]string{"status": "sync started"})
}
