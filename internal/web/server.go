// Package web exposes the grid pages, detail pages, and the tabular query
// endpoint over HTTP. The wire shape of the tabular exchange follows the
// DataTables server-side protocol: draw/start/length plus per-column
// search parameters in, draw/recordsTotal/recordsFiltered/data out.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/docgrid/docgrid/internal/detail"
	"github.com/docgrid/docgrid/internal/layout"
	"github.com/docgrid/docgrid/internal/schema"
	"github.com/docgrid/docgrid/internal/store"
	"github.com/docgrid/docgrid/internal/tabular"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options tunes the grid pages the server emits.
type Options struct {
	// PageLength is the default rows-per-page of every grid.
	PageLength int
	// StateTTLSecs bounds how long a reloaded grid page restores its
	// previous filter and sort state.
	StateTTLSecs int
}

// Server binds a schema registry and a document store to HTTP routes.
type Server struct {
	registry  *schema.Registry
	store     store.Store
	templates *template.Template
	opts      Options
}

func NewServer(registry *schema.Registry, st store.Store, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if opts.PageLength <= 0 {
		opts.PageLength = 25
	}
	if opts.StateTTLSecs <= 0 {
		opts.StateTTLSecs = 120
	}
	return &Server{registry: registry, store: st, templates: tmpl, opts: opts}, nil
}

// Routes wires the handlers. Related-record links resolve to
// /{collection}/{id}; that path convention is part of the relation
// rendering contract, so it is fixed here and in the renderer together.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
	mux.HandleFunc("GET /api/{collection}/table", s.handleTable)
	mux.HandleFunc("POST /api/{collection}/table", s.handleTable)
	mux.HandleFunc("GET /{collection}", s.handleGridPage)
	mux.HandleFunc("GET /{collection}/{id}", s.handleDetailPage)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct{ Collections []string }{Collections: s.registry.Collections()}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.Error("Failed to render index", "error", err)
	}
}

// columnMeta is the per-column configuration handed to the grid widget.
// It carries everything the widget needs to render values by the same
// rules as the server-side renderer.
type columnMeta struct {
	Data       string   `json:"data"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Visible    bool     `json:"visible"`
	Searchable bool     `json:"searchable"`
	Precision  int      `json:"precision,omitempty"`
	Choices    []string `json:"choices,omitempty"`
	Related    string   `json:"related,omitempty"`
	Element    string   `json:"element,omitempty"`
}

func (s *Server) handleGridPage(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	sch, err := s.registry.Get(collection)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	cols := layout.Columns(sch, layout.Grid)
	meta := make([]columnMeta, 0, len(cols))
	for _, c := range cols {
		m := columnMeta{
			Data:       c.Name,
			Title:      c.DisplayTitle(),
			Type:       string(c.Type),
			Visible:    c.Visible,
			Searchable: c.Type.Searchable(),
			Precision:  c.Precision,
			Choices:    c.Choices,
			Related:    c.RelatedCollection,
		}
		if c.Element != nil {
			m.Element = string(c.Element.Type)
			m.Precision = c.Element.Precision
			m.Choices = c.Element.Choices
			m.Related = c.Element.RelatedCollection
		}
		meta = append(meta, m)
	}
	colJSON, err := json.Marshal(meta)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := struct {
		Collection   string
		Columns      []columnMeta
		ColumnsJSON  template.JS
		APIPath      string
		PageLength   int
		StateTTLSecs int
	}{
		Collection:   collection,
		Columns:      meta,
		ColumnsJSON:  template.JS(colJSON),
		APIPath:      "/api/" + collection + "/table",
		PageLength:   s.opts.PageLength,
		StateTTLSecs: s.opts.StateTTLSecs,
	}
	if err := s.templates.ExecuteTemplate(w, "grid.html", data); err != nil {
		slog.Error("Failed to render grid page", "collection", collection, "error", err)
	}
}

func (s *Server) handleDetailPage(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	id := r.PathValue("id")

	sch, err := s.registry.Get(collection)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	doc, err := s.store.Get(r.Context(), collection, sch.IdentifierField().Name, id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("Detail fetch failed", "collection", collection, "id", id, "error", err)
		http.Error(w, "Document store unavailable", http.StatusServiceUnavailable)
		return
	}

	type rowView struct {
		Label   string
		Display template.HTML
		Failed  bool
	}
	rows := detail.Compose(sch, doc, nil)
	views := make([]rowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, rowView{Label: row.Label, Display: template.HTML(row.Display), Failed: row.Failed})
	}

	data := struct {
		Collection string
		ID         string
		Rows       []rowView
	}{Collection: collection, ID: id, Rows: views}
	if err := s.templates.ExecuteTemplate(w, "detail.html", data); err != nil {
		slog.Error("Failed to render detail page", "collection", collection, "id", id, "error", err)
	}
}

// handleTable serves the tabular query protocol. Protocol errors reject
// the whole request with no partial result; store failures surface as 503
// so the widget shows a failed-to-load state and keeps its current rows.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	sch, err := s.registry.Get(collection)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, tabular.ErrMalformedRequest.Error())
		return
	}

	req, err := tabular.ParseRequest(r.Form, sch)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := tabular.Execute(r.Context(), s.store, sch, req)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			slog.Error("Tabular query failed", "collection", collection, "error", err)
			writeJSONError(w, http.StatusServiceUnavailable, store.ErrUnavailable.Error())
			return
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode tabular response", "collection", collection, "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
