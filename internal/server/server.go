// Package server runs the development preview: a static file server over
// the output tree, a live-reload WebSocket hub and a source watcher.
package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// sharedDirs are output folders that are not client reports.
var sharedDirs = map[string]bool{"static": true, "assets": true}

// Server serves the generated reports from the output directory.
type Server struct {
	outputDir string
	script    []byte
	router    chi.Router
	logger    *slog.Logger
}

// New creates a Server for outputDir whose HTML pages connect to the reload
// hub on reloadPort.
func New(outputDir string, reloadPort int, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var script bytes.Buffer
	err := pages.ExecuteTemplate(&script, "reload.html", map[string]any{
		"Port":    reloadPort,
		"Message": ReloadMessage,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		outputDir: outputDir,
		script:    script.Bytes(),
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)
	s.router.Get("/", s.handleRoot)
	s.router.Get("/*", s.handleFile)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	clients := ClientFolders(s.outputDir)
	if len(clients) == 0 {
		s.notFound(w, r)
		return
	}
	http.Redirect(w, r, "/"+clients[0]+"/", http.StatusFound)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	for _, seg := range strings.Split(r.URL.Path, "/") {
		if seg == ".." {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
	}

	rel := strings.Trim(path.Clean("/"+r.URL.Path), "/")
	full := filepath.Join(s.outputDir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		// Report pages link their assets relatively.
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("stat failed", "path", full, "error", err)
		}
		s.notFound(w, r)
		return
	}

	data, err := os.ReadFile(full)
	if err != nil {
		s.logger.Error("read failed", "path", full, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(full))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if strings.HasPrefix(contentType, "text/html") {
		data = InjectScript(data, s.script)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	err := pages.ExecuteTemplate(w, "notfound.html", map[string]any{
		"Path":    r.URL.Path,
		"Clients": ClientFolders(s.outputDir),
	})
	if err != nil {
		s.logger.Error("rendering not found page", "error", err)
	}
}

// InjectScript inserts script before the first </body>, or appends it when
// the document has none.
func InjectScript(html, script []byte) []byte {
	i := bytes.Index(html, []byte("</body>"))
	if i < 0 {
		return append(append([]byte(nil), html...), script...)
	}
	out := make([]byte, 0, len(html)+len(script))
	out = append(out, html[:i]...)
	out = append(out, script...)
	return append(out, html[i:]...)
}

// ClientFolders lists the client report folders in outputDir in name order.
func ClientFolders(outputDir string) []string {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil
	}
	var folders []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || sharedDirs[name] || strings.HasPrefix(name, ".") {
			continue
		}
		folders = append(folders, name)
	}
	return folders
}
