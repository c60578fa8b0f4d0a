// Package devserver serves the built site locally, rebuilding it when a
// source, template or static file changes and reloading connected browsers.
package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/leapsite/internal/site"
	"golang.org/x/sync/errgroup"
)

// ReloadPath is the server-sent events endpoint browsers listen on.
const ReloadPath = "/__reload"

// Builder rebuilds the site.
type Builder interface {
	Build(ctx context.Context) (*site.Result, error)
}

// Config holds configuration for the dev server.
type Config struct {
	Builder Builder
	// OutputDir is the directory served over HTTP.
	OutputDir string
	// WatchDirs are watched recursively. Missing directories are ignored.
	WatchDirs []string
	Host      string
	Port      int
	Logger    *slog.Logger
}

// Server is the development server.
type Server struct {
	builder   Builder
	outputDir string
	watchDirs []string
	addr      string
	logger    *slog.Logger
	notifier  *reloadNotifier

	buildMu sync.Mutex
}

// New creates a dev server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		builder:   cfg.Builder,
		outputDir: cfg.OutputDir,
		watchDirs: cfg.WatchDirs,
		addr:      net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		logger:    logger,
		notifier:  newReloadNotifier(),
	}
}

// Serve builds the site, then serves it until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is like Serve but accepts connections on ln.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if err := s.rebuild(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("initial build failed: %w", err)
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("dev server running", "url", "http://"+ln.Addr().String(), "watching", s.watchDirs)

	eg.Go(func() error {
		return s.watch(egctx)
	})

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dev server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Handler returns the HTTP handler serving the output directory and the
// reload endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	r.Get(ReloadPath, s.handleReload)
	r.Handle("/*", s.siteHandler())
	return r
}

// rebuild runs one build. Builds never overlap.
func (s *Server) rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	result, err := s.builder.Build(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("rebuilt site", "written", len(result.Written), "duration", result.Duration)
	return nil
}

// siteHandler serves files from the output directory. HTML pages get the
// live reload script injected.
func (s *Server) siteHandler() http.Handler {
	files := http.FileServer(http.Dir(s.outputDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		target := filepath.Join(s.outputDir, filepath.FromSlash(name))
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			if !strings.HasSuffix(r.URL.Path, "/") {
				files.ServeHTTP(w, r)
				return
			}
			target = filepath.Join(target, "index.html")
		}
		if !strings.EqualFold(filepath.Ext(target), ".html") {
			files.ServeHTTP(w, r)
			return
		}

		data, err := os.ReadFile(target) //nolint:gosec // target is cleaned and rooted at the output directory
		if err != nil {
			files.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		_, _ = w.Write(injectReloadScript(data))
	})
}

// handleReload streams a "reload" event after every successful rebuild.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.notifier.subscribe()
	defer cancel()

	_, _ = fmt.Fprint(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			_, _ = fmt.Fprint(w, "data: reload\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == ReloadPath {
			return
		}
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

// injectReloadScript inserts the live reload script before </body>, or
// appends it when the page has no body end tag.
func injectReloadScript(page []byte) []byte {
	script := []byte("<script>" + liveReloadScript + "</script>")
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(page, script...)
	}
	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:idx]...)
	out = append(out, script...)
	return append(out, page[idx:]...)
}

const liveReloadScript = `
(function() {
  var es = new EventSource('` + ReloadPath + `');
  es.onmessage = function(e) {
    if (e.data === 'reload') {
      window.location.reload();
    }
  };
})();
`
