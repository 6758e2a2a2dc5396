package archive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"digitalroom/internal/infra/persistence/memory"
	"digitalroom/pkg/domain"
)

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	rows := []map[string]any{
		{"name": "Neovim", "category": "dev", "icon": "code", "sort_order": 20},
		{"name": "Figma", "category": "design", "icon": "palette", "sort_order": 10},
		{"name": "Keyboard", "category": "hardware", "icon": "mystery", "sort_order": 30},
	}
	for _, r := range rows {
		if _, err := store.Insert(ctx, "tools", r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return store
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type recordsResponse struct {
	Entity  string           `json:"entity"`
	Records []map[string]any `json:"records"`
	Record  map[string]any   `json:"record"`
	Error   string           `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) recordsResponse {
	t.Helper()
	var out recordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func names(resp recordsResponse) []string {
	var out []string
	for _, r := range resp.Records {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestListArchivesAndHealth(t *testing.T) {
	h := NewHandler(seeded(t), nil)
	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	rec = get(t, h, "/api/v1/archives/")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var body struct {
		Archives []archiveDescriptor `json:"archives"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Archives) != 12 || body.Archives[0].Entity != "anime" {
		t.Fatalf("unexpected archives %+v", body.Archives)
	}
	if body.Archives[0].Fields[0].Name != "title" || !body.Archives[0].Fields[0].Required {
		t.Fatalf("unexpected field descriptor %+v", body.Archives[0].Fields[0])
	}
}

func TestArchiveRecordsOrderingAndFilters(t *testing.T) { //nolint:cyclop
	h := NewHandler(seeded(t), nil)
	resp := decode(t, get(t, h, "/api/v1/archives/tools"))
	if got := strings.Join(names(resp), ","); got != "Figma,Neovim,Keyboard" {
		t.Fatalf("unexpected default order %s", got)
	}
	if resp.Records[0]["icon_symbol"] != "🎨" || resp.Records[2]["icon_symbol"] != "•" {
		t.Fatalf("icons not resolved: %+v", resp.Records)
	}
	resp = decode(t, get(t, h, "/api/v1/archives/tools?order=name&desc=true"))
	if got := strings.Join(names(resp), ","); got != "Neovim,Keyboard,Figma" {
		t.Fatalf("unexpected custom order %s", got)
	}
	resp = decode(t, get(t, h, "/api/v1/archives/tools?category=dev"))
	if got := strings.Join(names(resp), ","); got != "Neovim" {
		t.Fatalf("unexpected filter result %s", got)
	}
	resp = decode(t, get(t, h, "/api/v1/archives/tools?sort_order=30"))
	if len(resp.Records) != 1 {
		t.Fatalf("numeric filter should match, got %+v", resp.Records)
	}

	rec := get(t, h, "/api/v1/archives/tools/2")
	resp = decode(t, rec)
	if rec.Code != http.StatusOK || resp.Record["name"] != "Figma" || resp.Record["id"] != "2" {
		t.Fatalf("unexpected single record %d %+v", rec.Code, resp.Record)
	}
	if rec := get(t, h, "/api/v1/archives/tools/99"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing record, got %d", rec.Code)
	}
}

func TestArchiveErrors(t *testing.T) {
	h := NewHandler(seeded(t), nil)
	cases := map[string]int{
		"/api/v1/archives/podcasts":         http.StatusNotFound,
		"/api/v1/archives/tools?colour=red": http.StatusBadRequest,
		"/api/v1/archives/tools?order=nope": http.StatusBadRequest,
		"/api/v1/archives/tools/1/extra":    http.StatusNotFound,
		"/elsewhere":                        http.StatusNotFound,
	}
	for target, want := range cases {
		if rec := get(t, h, target); rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", target, want, rec.Code)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/archives/tools", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	rec = get(t, NewHandler(nil, nil), "/healthz")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without store, got %d", rec.Code)
	}
}

type failingStore struct{ domain.RowStore }

func (failingStore) Select(context.Context, string, domain.Query) ([]domain.Record, error) {
	return nil, errors.New("db down")
}

func TestArchiveStoreFailure(t *testing.T) {
	rec := get(t, NewHandler(failingStore{}, nil), "/api/v1/archives/tools")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("store error leaked to client: %s", rec.Body.String())
	}
}

func TestArchiveExportFormats(t *testing.T) {
	h := NewHandler(seeded(t), nil)
	rec := get(t, h, "/api/v1/archives/tools", "Accept", "text/csv")
	if rec.Header().Get("Content-Type") != "text/csv" || !strings.HasPrefix(rec.Body.String(), "id,name,") {
		t.Fatalf("unexpected csv response %q", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "tools.csv") {
		t.Fatalf("missing attachment header")
	}
	rec = get(t, h, "/api/v1/archives/tools?format=xlsx")
	if rec.Header().Get("Content-Type") != contentXLSX || rec.Body.Len() == 0 {
		t.Fatalf("unexpected xlsx response")
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatalf("xlsx body should be a zip archive")
	}
}
