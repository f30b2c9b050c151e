// Package server serves the stored curations as HTML pages and JSON.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for browsing curations.
type Server struct {
	store store.Store
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// countryGroup is the index listing of one country.
type countryGroup struct {
	Country news.Country
	Keys    []store.Key
}

// New creates a new Server.
func New(st store.Store) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"title":    displayName,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so their "content" blocks don't collide.
	pageNames := []string{"index.html", "curation.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{store: st, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/curation/", s.handleCuration)
	s.mux.HandleFunc("/api/curations", s.handleAPIList)
	s.mux.HandleFunc("/api/curations/", s.handleAPICuration)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	keys, err := s.store.ListCurations(r.Context())
	if err != nil {
		log.Printf("Error listing curations: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var groups []countryGroup
	for _, k := range keys {
		if len(groups) == 0 || groups[len(groups)-1].Country != k.Country {
			groups = append(groups, countryGroup{Country: k.Country})
		}
		groups[len(groups)-1].Keys = append(groups[len(groups)-1].Keys, k)
	}

	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Groups": groups,
	})
}

func (s *Server) handleCuration(w http.ResponseWriter, r *http.Request) {
	country, sector, ok := parseKey(strings.TrimPrefix(r.URL.Path, "/curation/"))
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	cur, err := s.store.LoadCuration(r.Context(), country, sector)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, news.ErrNotFound) {
			status = http.StatusNotFound
		} else {
			log.Printf("Error loading curation %s/%s: %v", country, sector, err)
		}
		s.render(w, status, "curation.html", map[string]any{
			"Country": country,
			"Sector":  sector,
		})
		return
	}

	s.render(w, http.StatusOK, "curation.html", map[string]any{
		"Country":  country,
		"Sector":   sector,
		"Curation": cur,
	})
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListCurations(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not list curations")
		return
	}

	type entry struct {
		Country news.Country `json:"country"`
		Sector  string       `json:"sector"`
	}
	entries := make([]entry, len(keys))
	for i, k := range keys {
		entries[i] = entry{Country: k.Country, Sector: k.Sector}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAPICuration(w http.ResponseWriter, r *http.Request) {
	country, sector, ok := parseKey(strings.TrimPrefix(r.URL.Path, "/api/curations/"))
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "expected /api/curations/<country>/<sector>")
		return
	}

	cur, err := s.store.LoadCuration(r.Context(), country, sector)
	if errors.Is(err, news.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "no curation for "+string(country)+"/"+sector)
		return
	}
	if err != nil {
		log.Printf("Error loading curation %s/%s: %v", country, sector, err)
		writeJSONError(w, http.StatusInternalServerError, "could not load curation")
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

// parseKey splits "<country>/<sector>" and validates the country.
func parseKey(path string) (news.Country, string, bool) {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	country, err := news.ParseCountry(parts[0])
	if err != nil {
		return "", "", false
	}
	return country, parts[1], true
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// displayName turns a slug such as "financial_services" into "Financial Services".
func displayName(slug string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(slug))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// Serve starts the HTTP server on the given port.
func Serve(st store.Store, port int) error {
	srv, err := New(st)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
