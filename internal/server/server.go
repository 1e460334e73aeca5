// Package server exposes the extraction pipeline over HTTP: a JSON API for
// uploads, bulk paste and stored events, plus a small dashboard.
package server

import (
	"bytes"
	"crypto/subtle"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/catalysts/internal/pipeline"
	"github.com/TobiSchelling/catalysts/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

//go:embed help.md
var helpMarkdown string

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// DefaultMaxUploadBytes limits screenshot uploads when no limit is set.
const DefaultMaxUploadBytes = 10 << 20

// Options configures a Server.
type Options struct {
	// APIToken, when set, is required as a bearer token on mutating API routes.
	APIToken       string
	MaxUploadBytes int64
}

// Server is the HTTP server for the extraction API and dashboard.
type Server struct {
	p     *pipeline.Pipeline
	store store.Store
	opts  Options
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server.
func New(p *pipeline.Pipeline, opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of the base so their "content" blocks
	// don't collide.
	pageNames := []string{"index.html", "help.html"}
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

	s := &Server{p: p, store: p.Store(), opts: opts, pages: pages, mux: http.NewServeMux()}
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

	s.mux.HandleFunc("/{$}", s.handleIndex)
	s.mux.HandleFunc("/help", s.handleHelp)
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.Handle("/api/earnings/upload", allow(http.MethodPost, s.requireToken(http.HandlerFunc(s.handleUpload))))
	s.mux.Handle("/api/earnings/bulk", allow(http.MethodPost, s.requireToken(http.HandlerFunc(s.handleBulk))))
	s.mux.Handle("/api/earnings", http.HandlerFunc(s.handleEarnings))
	s.mux.Handle("/api/earnings/{id}", allow(http.MethodGet, http.HandlerFunc(s.handleGetEvent)))
	s.mux.Handle("/api/directory/resolve", allow(http.MethodGet, http.HandlerFunc(s.handleResolve)))
}

// handleEarnings lists events on GET and saves reviewed events on POST.
func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEvents(w, r)
	case http.MethodPost:
		s.requireToken(http.HandlerFunc(s.handleSaveEvents)).ServeHTTP(w, r)
	default:
		methodNotAllowed(w, http.MethodGet+", "+http.MethodPost)
	}
}

// allow rejects requests whose method isn't m.
func allow(m string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			methodNotAllowed(w, m)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requireToken enforces the bearer token when one is configured: 401
// without credentials, 403 with the wrong ones.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.APIToken)) != 1 {
			writeError(w, http.StatusForbidden, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Today": store.Today()}

	if s.store != nil {
		upcoming, err := s.store.ListEvents(store.Filter{From: store.Today(), Limit: 50})
		if err != nil {
			log.Printf("Error listing events: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		stats, err := s.store.GetStats(store.Today())
		if err != nil {
			log.Printf("Error getting stats: %v", err)
		}
		data["Events"] = upcoming
		data["Stats"] = stats
	}

	s.render(w, "index.html", data)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	s.render(w, "help.html", map[string]any{"Help": helpMarkdown})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"directory": s.p.Extractor().Directory().Len(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(p *pipeline.Pipeline, opts Options, port int) error {
	srv, err := New(p, opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
