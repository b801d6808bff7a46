package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/andaleebali/terraclass/internal/forest"
	"github.com/andaleebali/terraclass/internal/raster"
)

// maxUploadBytes caps classify request bodies. Tiles are small; this
// leaves generous headroom for 16-bit TIFFs.
const maxUploadBytes = 10 << 20

// Server answers classification requests for one loaded model.
type Server struct {
	model  *forest.Model
	mode   raster.Mode
	logger *slog.Logger
}

// New creates a server around a loaded model.
func New(model *forest.Model, logger *slog.Logger) (*Server, error) {
	mode, err := raster.ParseMode(model.Manifest.Mode)
	if err != nil {
		return nil, fmt.Errorf("model manifest: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{model: model, mode: mode, logger: logger}, nil
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/classify", s.handleClassify).Methods(http.MethodPost)
	r.HandleFunc("/model", s.handleModel).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves on addr until the listener fails or ctx is
// canceled, then drains in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Handler:      s.Router(),
		Addr:         addr,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("server listening",
		slog.String("addr", addr),
		slog.Int("classes", len(s.model.Manifest.Classes)))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
