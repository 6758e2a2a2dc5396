// Package archive serves the room's archives over a read-only HTTP API.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"digitalroom/internal/catalog"
	"digitalroom/internal/editor"
	"digitalroom/internal/export"
	"digitalroom/internal/icons"
	"digitalroom/pkg/domain"
)

const (
	apiPrefix   = "/api/v1/archives"
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var reservedParams = map[string]bool{"order": true, "desc": true, "format": true}

// Handler provides HTTP access to archive records.
type Handler struct {
	Store  domain.RowStore
	Logger *zap.Logger
}

// NewHandler constructs an archive HTTP handler.
func NewHandler(store domain.RowStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: store, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusInternalServerError, "archive store not configured")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case path == apiPrefix:
		h.handleListArchives(w)
	case strings.HasPrefix(path, apiPrefix+"/"):
		h.handleArchive(w, r, strings.Split(strings.TrimPrefix(path, apiPrefix+"/"), "/"))
	default:
		http.NotFound(w, r)
	}
}

type fieldDescriptor struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

type archiveDescriptor struct {
	Entity     string            `json:"entity"`
	Label      string            `json:"label"`
	TitleField string            `json:"title_field"`
	Fields     []fieldDescriptor `json:"fields"`
}

func describe(s editor.Schema) archiveDescriptor {
	d := archiveDescriptor{Entity: s.Entity, Label: s.DisplayName(), TitleField: s.TitleField}
	for _, f := range s.Fields {
		d.Fields = append(d.Fields, fieldDescriptor{
			Name: f.Name, Label: f.DisplayLabel(), Kind: f.Kind.String(), Required: f.Required, Options: f.Options,
		})
	}
	return d
}

func (h *Handler) handleListArchives(w http.ResponseWriter) {
	archives := make([]archiveDescriptor, 0)
	for _, name := range catalog.Names() {
		s, _ := catalog.Lookup(name)
		archives = append(archives, describe(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": archives})
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request, segments []string) { //nolint:cyclop
	schema, ok := catalog.Lookup(segments[0])
	if !ok {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	if len(segments) > 2 {
		writeError(w, http.StatusNotFound, "archive endpoint not found")
		return
	}

	params := r.URL.Query()
	var filters []domain.Filter
	for key, values := range params {
		if reservedParams[key] || len(values) == 0 {
			continue
		}
		if _, known := schema.Field(key); !known && key != domain.FieldCreatedAt {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown filter field %q", key))
			return
		}
		filters = append(filters, domain.Filter{Field: key, Value: values[0]})
	}
	if len(segments) == 2 {
		filters = append(filters, domain.Filter{Field: domain.FieldID, Value: segments[1]})
	}
	q := schema.Query(filters)
	if field := params.Get("order"); field != "" {
		if _, known := schema.Field(field); !known && field != domain.FieldID && field != domain.FieldCreatedAt {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown order field %q", field))
			return
		}
		desc, _ := strconv.ParseBool(params.Get("desc"))
		q.Order = domain.WithIDTiebreak([]domain.Order{{Field: field, Desc: desc}})
	}

	records, err := h.Store.Select(r.Context(), schema.Table, q)
	if err != nil {
		h.Logger.Error("select archive", zap.String("entity", schema.Entity), zap.Error(err))
		writeError(w, http.StatusBadGateway, "archive unavailable")
		return
	}

	if len(segments) == 2 {
		if len(records) == 0 {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entity": schema.Entity, "record": present(records[0])})
		return
	}

	switch format(r) {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, schema, records); err != nil {
			writeError(w, http.StatusInternalServerError, "csv export failed")
			return
		}
		writeAttachment(w, "text/csv", schema.Entity+".csv", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, schema, records); err != nil {
			writeError(w, http.StatusInternalServerError, "xlsx export failed")
			return
		}
		writeAttachment(w, contentXLSX, schema.Entity+".xlsx", buf.Bytes())
	default:
		out := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			out = append(out, present(rec))
		}
		writeJSON(w, http.StatusOK, map[string]any{"entity": schema.Entity, "records": out})
	}
}

func format(r *http.Request) string {
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		return f
	}
	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		return "csv"
	}
	return "json"
}

// present flattens a record into its JSON shape, resolving icon names.
func present(r domain.Record) map[string]any {
	out := make(map[string]any, len(r.Values)+2)
	for k, v := range r.Values {
		out[k] = v
	}
	out[domain.FieldID] = string(r.ID)
	if name, ok := r.Values["icon"].(string); ok {
		out["icon_symbol"] = icons.Lookup(name)
	}
	return out
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
