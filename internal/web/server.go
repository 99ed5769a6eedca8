// Package web serves the tableloom UI: upload a tabular file, view it next
// to a prompt box, and ask questions answered by the query engine. One
// request at a time per user action; the engine call blocks the handler
// goroutine for its duration.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tableloom/internal/dispatch"
)

// Querier answers one prompt against one dataset.
type Querier interface {
	Dispatch(ctx context.Context, prompt string) (dispatch.Result, error)
}

// Options configures the web server.
type Options struct {
	Addr string
	// MaxUploadBytes caps multipart upload size.
	MaxUploadBytes int64
	// MaxRows caps rows loaded per upload; 0 means unlimited.
	MaxRows int
	// SampleRows controls the profile's sample section.
	SampleRows int
	// MaxDatasets bounds the in-memory store.
	MaxDatasets int
}

// Server wires the router, the dataset store, and the dispatcher factory.
type Server struct {
	opt    Options
	store  *Store
	logger *zap.Logger
	// querierFor builds a dataset-scoped dispatcher. Injected so tests can
	// substitute a fake engine.
	querierFor func(*Dataset) Querier
	router     *mux.Router
}

// NewServer builds a Server. querierFor must not be nil.
func NewServer(opt Options, querierFor func(*Dataset) Querier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 32 << 20
	}
	if opt.MaxDatasets <= 0 {
		opt.MaxDatasets = 16
	}
	s := &Server{
		opt:        opt,
		store:      NewStore(opt.MaxDatasets),
		logger:     logger,
		querierFor: querierFor,
	}
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/datasets", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/datasets/{id}", s.handleDataset).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{id}/ask", s.handleAsk).Methods(http.MethodPost)
	r.Use(s.logRequests)
	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.opt.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("took", time.Since(start)))
	})
}
