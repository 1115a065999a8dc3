package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/cafe_pos/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
	hits     []string
	status   int
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	var body map[string]any
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
	status := f.status
	hits := f.hits
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
		return
	}

	if strings.HasSuffix(r.URL.Path, "/_search") {
		out := map[string]any{"hits": map[string]any{"total": map[string]any{"value": len(hits)}}}
		docs := make([]map[string]any, 0, len(hits))
		for _, id := range hits {
			docs = append(docs, map[string]any{"_id": id})
		}
		out["hits"].(map[string]any)["hits"] = docs
		_ = json.NewEncoder(w).Encode(out)
		return
	}
	_, _ = w.Write([]byte(`{"result":"ok"}`))
}

func (f *fakeES) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newIndex(t *testing.T, fake *fakeES) *MenuIndex {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &MenuIndex{ES: client, Index: "menu_items"}
}

func TestMenuIndex_IndexMenuItem(t *testing.T) {
	t.Parallel()

	fake := &fakeES{}
	idx := newIndex(t, fake)

	item := &models.MenuItem{
		ID:        uuid.New(),
		Name:      "Burger",
		Category:  "mains",
		Price:     decimal.RequireFromString("9.5"),
		Available: true,
	}
	require.NoError(t, idx.IndexMenuItem(context.Background(), item))

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/menu_items/_doc/"+item.ID.String(), req.Path)
	assert.Equal(t, "Burger", req.Body["name"])
	assert.Equal(t, "9.50", req.Body["price"])
}

func TestMenuIndex_Search(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	fake := &fakeES{hits: []string{a.String(), "not-a-uuid", b.String()}}
	idx := newIndex(t, fake)

	total, ids, err := idx.Search(context.Background(), "burgr", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	req := fake.last()
	assert.Equal(t, "/menu_items/_search", req.Path)
	mm := req.Body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "burgr", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
}

func TestMenuIndex_Errors(t *testing.T) {
	t.Parallel()

	fake := &fakeES{status: http.StatusBadRequest}
	idx := newIndex(t, fake)

	_, _, err := idx.Search(context.Background(), "x", 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	require.Error(t, idx.IndexMenuItem(context.Background(), &models.MenuItem{ID: uuid.New()}))
}

func TestMenuIndex_DeleteMissingIsFine(t *testing.T) {
	t.Parallel()

	fake := &fakeES{status: http.StatusNotFound}
	idx := newIndex(t, fake)

	require.NoError(t, idx.DeleteMenuItem(context.Background(), uuid.New()))
	assert.Equal(t, http.MethodDelete, fake.last().Method)
}
