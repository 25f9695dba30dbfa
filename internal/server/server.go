// Package server exposes the admin host over HTTP.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/calvinalkan/pagelister/internal/admin"
	"github.com/calvinalkan/pagelister/internal/content"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// shutdownGrace bounds graceful shutdown.
const shutdownGrace = 5 * time.Second

var errBadID = errors.New("id must be a positive integer")

var editTmpl = template.Must(template.New("edit").Funcs(template.FuncMap{
	"markup": func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec // markup fields are rendered by html/template
	"collapsed": func(f content.FormField) bool {
		return f.Visibility == content.Collapsed
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

// Server serves the admin routes.
type Server struct {
	host *admin.Host
	log  zerolog.Logger
	mux  *http.ServeMux
}

// New returns a Server with routes below adminURL.
func New(host *admin.Host, log zerolog.Logger, adminURL string) *Server {
	base := "/" + strings.Trim(adminURL, "/") + "/"
	if base == "//" {
		base = "/"
	}

	s := &Server{host: host, log: log, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET "+base+"page/edit/", s.handleEdit)
	s.mux.HandleFunc("GET "+base+"page/list/", s.handleList)
	s.mux.HandleFunc("GET "+base+"page/search/", s.handleSearch)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return s
}

// Handler returns the routes wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
// ready, if non-nil, receives the bound address once listening.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(addr string)) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	if ready != nil {
		ready(ln.Addr().String())
	}

	errChan := make(chan error, 1)

	go func() {
		errChan <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}

	s.log.Info().Msg("stopped")

	return nil
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pageID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	form, err := s.host.EditForm(r.Context(), id, r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	visible := form.VisibleFields()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err = editTmpl.ExecuteTemplate(w, "edit", struct {
		Record *content.Record
		Fields []content.FormField
	}{form.Record, visible})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("render edit page")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var id int64

	if r.URL.Query().Get("id") != "" {
		var err error

		id, err = pageID(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	nodes, err := s.host.TreeChildren(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, r, nodes)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeJSON(w, r, []admin.Node{})
		return
	}

	nodes, err := s.host.Search(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, r, nodes)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("encode response")
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, content.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func pageID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}

	return id, nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err
}

// withRequestLog tags each request with an id and logs one line per request.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", id)

		logger := s.log.With().Str("request_id", id).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
