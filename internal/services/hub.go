package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"modelhub-backend/internal/models"
)

// HubClient pages through the remote model hub catalog.
type HubClient struct {
	http *resty.Client
}

func NewHubClient(baseURL string, timeout time.Duration) *HubClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HubClient{http: client}
}

// FetchAll requests pages 0, 1, 2... until a page is empty or shorter than
// pageSize. A failing page ends the walk; whatever was collected before it is
// returned and the failure is only logged.
func (c *HubClient) FetchAll(ctx context.Context, pageSize int) []models.ModelRecord {
	var all []models.ModelRecord

	for page := 0; ; page++ {
		batch, err := c.fetchPage(ctx, page, pageSize)
		if err != nil {
			log.Printf("hub: sync error page %d: %v", page, err)
			break
		}
		if len(batch) == 0 {
			break
		}

		all = append(all, batch...)

		if len(batch) < pageSize {
			break
		}
	}

	return all
}

func (c *HubClient) fetchPage(ctx context.Context, page, limit int) ([]models.ModelRecord, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(limit),
		}).
		Get("/models/")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("hub returned status %d", resp.StatusCode())
	}

	return parsePage(resp.Body())
}

// parsePage accepts either a bare JSON list of records or an object holding
// them under "models". Anything else reads as an empty page.
func parsePage(body []byte) ([]models.ModelRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var items []interface{}
	switch v := data.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items, _ = v["models"].([]interface{})
	}

	batch := make([]models.ModelRecord, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			batch = append(batch, models.ModelRecord(m))
		}
	}
	return batch, nil
}
