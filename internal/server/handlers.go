package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andaleebali/terraclass/internal/raster"
)

type classifyRequest struct {
	Image string `json:"image"`
}

// ClassifyResponse is the POST /classify payload.
type ClassifyResponse struct {
	Label string             `json:"label"`
	Votes map[string]float64 `json:"votes"`
}

// ModelInfo is the GET /model payload.
type ModelInfo struct {
	Classes       []string  `json:"classes"`
	Mode          string    `json:"mode"`
	TileWidth     int       `json:"tile_width"`
	TileHeight    int       `json:"tile_height"`
	Channels      int       `json:"channels"`
	FeatureLen    int       `json:"feature_len"`
	Trees         int       `json:"trees"`
	TrainedAt     time.Time `json:"trained_at"`
	TrainSamples  int       `json:"train_samples"`
	TestSamples   int       `json:"test_samples"`
	Augmentations []string  `json:"augmentations,omitempty"`
}

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	data, err := readImageBytes(r)
	if err != nil {
		s.sendError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.sendError(w, "invalid_image", fmt.Sprintf("failed to decode image: %v", err), http.StatusBadRequest)
		return
	}

	features, err := s.extractFeatures(img)
	if err != nil {
		s.sendError(w, "invalid_image", err.Error(), http.StatusBadRequest)
		return
	}

	label, fractions, err := s.model.Classify(features)
	if err != nil {
		s.logger.Error("classification failed", slog.String("error", err.Error()))
		s.sendError(w, "classify_failed", err.Error(), http.StatusInternalServerError)
		return
	}

	votes := make(map[string]float64, len(s.model.Manifest.Classes))
	for i, c := range s.model.Manifest.Classes {
		votes[c] = fractions[i]
	}

	s.logger.Info("classified tile",
		slog.String("label", label),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))

	sendJSON(w, ClassifyResponse{Label: label, Votes: votes})
}

// extractFeatures rebuilds the model's training-time feature vector
// from an uploaded image, per the manifest's preprocessing recipe.
func (s *Server) extractFeatures(img image.Image) ([]float64, error) {
	m := s.model.Manifest
	return raster.ExtractFeatures(img, m.TileWidth, m.TileHeight, s.mode, m.SampleMax)
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	m := s.model.Manifest
	sendJSON(w, ModelInfo{
		Classes:       m.Classes,
		Mode:          m.Mode,
		TileWidth:     m.TileWidth,
		TileHeight:    m.TileHeight,
		Channels:      m.Channels,
		FeatureLen:    m.FeatureLen(),
		Trees:         len(s.model.Forest.Trees),
		TrainedAt:     m.TrainedAt,
		TrainSamples:  m.TrainSamples,
		TestSamples:   m.TestSamples,
		Augmentations: m.Augmentations,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, map[string]string{"status": "ok"})
}

// readImageBytes pulls the encoded image out of the request, picking
// the decode path from the Content-Type header.
func readImageBytes(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("failed to decode request JSON: %w", err)
		}
		if req.Image == "" {
			return nil, errors.New("request JSON is missing the image field")
		}
		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return nil, fmt.Errorf("image field is not valid base64: %w", err)
		}
		return data, nil
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New(`multipart form has no "image" file field`)
		}
		defer file.Close()
		return io.ReadAll(file)
	default:
		return io.ReadAll(r.Body)
	}
}

func (s *Server) sendError(w http.ResponseWriter, code, message string, status int) {
	s.logger.Debug("request rejected",
		slog.String("code", code),
		slog.String("error", message))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message})
}

func sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
