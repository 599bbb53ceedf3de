package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// ModelRecord is a single hub catalog entry. The hub schema is not
// validated, so the record is kept as the raw mapping it arrived as.
type ModelRecord map[string]any

// Name returns the record's unique identifier, or "" when absent.
func (m ModelRecord) Name() string {
	return m.Field("name")
}

// Field returns a string-valued field, or "" when the key is missing,
// null or not a string.
func (m ModelRecord) Field(key string) string {
	s, _ := m[key].(string)
	return s
}

// CatalogFile is the on-disk shape of the local catalog mirror.
type CatalogFile struct {
	Models      []ModelRecord `json:"models"`
	LastUpdated *Timestamp    `json:"last_updated"`
	Total       int           `json:"total"`
}

// Timestamp is an ISO-8601 instant. It also reads the zone-less
// "2006-01-02T15:04:05.999999" form older catalog files were written with.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// EmptyCatalog returns the store contents used before the first sync.
func EmptyCatalog() *CatalogFile {
	return &CatalogFile{Models: []ModelRecord{}}
}

// CategoryCount is one task name and the number of models carrying it.
type CategoryCount struct {
	Name  string
	Count int
}

// Categories marshals as a JSON object whose keys keep slice order, so the
// descending-count ordering survives encoding.
type Categories []CategoryCount

func (c Categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		count, _ := json.Marshal(cat.Count)
		buf.Write(count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	Total       int        `json:"total"`
	Categories  Categories `json:"categories"`
	LastUpdated *Timestamp `json:"last_updated"`
}
