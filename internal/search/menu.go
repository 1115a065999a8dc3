package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/cafe_pos/internal/models"
)

// MenuIndex keeps a searchable copy of the menu in Elasticsearch. The
// database stays the source of truth; search returns ids only.
type MenuIndex struct {
	ES    *elasticsearch.Client
	Index string
}

type menuDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Available   bool   `json:"available"`
}

func (m *MenuIndex) IndexMenuItem(ctx context.Context, item *models.MenuItem) error {
	doc := menuDocument{
		ID:          item.ID.String(),
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Price:       item.Price.StringFixed(models.MoneyScale),
		Available:   item.Available,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("search: encode menu item: %w", err)
	}

	res, err := m.ES.Index(
		m.Index,
		&buf,
		m.ES.Index.WithContext(ctx),
		m.ES.Index.WithDocumentID(doc.ID),
		m.ES.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("search: index menu item: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}
	return nil
}

func (m *MenuIndex) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	res, err := m.ES.Delete(
		m.Index,
		id.String(),
		m.ES.Delete.WithContext(ctx),
		m.ES.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("search: delete menu item: %w", err)
	}
	defer res.Body.Close()

	// already gone is fine
	if res.IsError() && res.StatusCode != 404 {
		return responseError("delete", res.Status(), res.Body)
	}
	return nil
}

func (m *MenuIndex) Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "category", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := m.ES.Search(
		m.ES.Search.WithContext(ctx),
		m.ES.Search.WithIndex(m.Index),
		m.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, responseError("query", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}

func responseError(op, status string, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("search: %s failed: %s: %s", op, status, bytes.TrimSpace(b))
}
