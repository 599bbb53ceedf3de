package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modelhub-backend/internal/models"
)

// ErrCatalogCorrupt is wrapped by Load when the file exists but is not a
// valid catalog.
var ErrCatalogCorrupt = errors.New("catalog file is corrupt")

// CatalogRepo persists the catalog mirror as a single JSON file.
type CatalogRepo struct {
	path string
	mu   sync.Mutex
}

func NewCatalogRepo(path string) *CatalogRepo {
	return &CatalogRepo{path: path}
}

func (r *CatalogRepo) Path() string {
	return r.path
}

// Load reads the catalog file. A missing file yields an empty catalog; any
// other read or decode failure is returned.
func (r *CatalogRepo) Load() (*models.CatalogFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.EmptyCatalog(), nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", r.path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var file models.CatalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCatalogCorrupt, r.path, err)
	}
	if file.Models == nil {
		file.Models = []models.ModelRecord{}
	}
	file.Total = len(file.Models)

	return &file, nil
}

// MergeAndSave appends the fresh records whose name is not yet known, stamps
// the catalog with now and writes it out. existing is not modified; the
// merged catalog and the number of added records are returned.
func (r *CatalogRepo) MergeAndSave(existing *models.CatalogFile, fresh []models.ModelRecord, now time.Time) (*models.CatalogFile, int, error) {
	merged, added := Merge(existing, fresh)
	merged.LastUpdated = models.NewTimestamp(now)

	if err := r.Save(merged); err != nil {
		return nil, 0, err
	}
	return merged, added, nil
}

// Merge returns a copy of existing with the unseen fresh records appended in
// fetch order. Nameless records are dropped.
func Merge(existing *models.CatalogFile, fresh []models.ModelRecord) (*models.CatalogFile, int) {
	if existing == nil {
		existing = models.EmptyCatalog()
	}

	seen := make(map[string]struct{}, len(existing.Models)+len(fresh))
	out := make([]models.ModelRecord, 0, len(existing.Models)+len(fresh))
	for _, m := range existing.Models {
		seen[m.Name()] = struct{}{}
		out = append(out, m)
	}

	added, skipped := 0, 0
	for _, m := range fresh {
		name := m.Name()
		if name == "" {
			skipped++
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, m)
		added++
	}
	if skipped > 0 {
		log.Printf("catalog: skipped %d records without a name", skipped)
	}

	return &models.CatalogFile{
		Models:      out,
		LastUpdated: existing.LastUpdated,
		Total:       len(out),
	}, added
}

// Save writes the catalog through a temp file and rename so readers never see
// a half-written file.
func (r *CatalogRepo) Save(file *models.CatalogFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file.Total = len(file.Models)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename catalog: %w", err)
	}

	return nil
}
