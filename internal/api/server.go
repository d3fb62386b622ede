// Package api exposes the read-side HTTP surface: clip metadata, clip
// audio, tags, health, and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/voxclip/voxclip/pkg/clips"
)

// ClipFiles resolves a clip's audio to a local file, downloading it
// when absent.
type ClipFiles interface {
	EnsureLocal(ctx context.Context, clip *clips.Clip) (string, error)
}

// Server is the HTTP API.
type Server struct {
	repo   clips.Repository
	files  ClipFiles
	logger zerolog.Logger
	router chi.Router
}

// NewServer builds the router. metricsHandler may be nil to disable
// the /metrics endpoint.
func NewServer(repo clips.Repository, files ClipFiles, metricsHandler http.Handler, logger zerolog.Logger) *Server {
	s := &Server{repo: repo, files: files, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/clips", func(r chi.Router) {
		r.Get("/", s.listClips)
		r.Get("/{id}", s.getClip)
		r.Get("/{id}/audio", s.getClipAudio)
	})
	r.Get("/tags", s.listTags)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type clipDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Command     string   `json:"command"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
	Counter     int      `json:"counter"`
	Tags        []string `json:"tags,omitempty"`
	FileName    string   `json:"fileName"`
	LengthMs    int      `json:"lengthMs,omitempty"`
}

func toDTO(clip *clips.Clip) clipDTO {
	return clipDTO{
		ID:          clip.ID,
		Name:        clip.Name,
		Command:     clip.Command,
		Aliases:     clip.Aliases,
		Description: clip.Description,
		Counter:     clip.Counter,
		Tags:        clip.Tags,
		FileName:    clip.FileName,
		LengthMs:    clip.LengthMs(),
	}
}

func (s *Server) listClips(w http.ResponseWriter, r *http.Request) {
	tags := r.URL.Query()["tag"]

	var list []*clips.Clip
	var err error
	if len(tags) > 0 {
		list, err = s.repo.ByTags(tags)
	} else {
		list, err = s.repo.All()
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("listing clips failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	dtos := make([]clipDTO, 0, len(list))
	for _, clip := range list {
		dtos = append(dtos, toDTO(clip))
	}
	writeJSON(w, dtos)
}

func (s *Server) getClip(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.findClip(w, r)
	if !ok {
		return
	}
	writeJSON(w, toDTO(clip))
}

func (s *Server) getClipAudio(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.findClip(w, r)
	if !ok {
		return
	}

	path, err := s.files.EnsureLocal(r.Context(), clip)
	if err != nil {
		s.logger.Error().Err(err).Str("clip", clip.Command).Msg("fetching clip audio failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

func (s *Server) listTags(w http.ResponseWriter, _ *http.Request) {
	tags, err := s.repo.AllTags()
	if err != nil {
		s.logger.Error().Err(err).Msg("listing tags failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, tags)
}

func (s *Server) findClip(w http.ResponseWriter, r *http.Request) (*clips.Clip, bool) {
	id := chi.URLParam(r, "id")
	clip, err := s.repo.Get(id)
	if errors.Is(err, clips.ErrNotFound) {
		http.Error(w, "clip not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Str("clip_id", id).Msg("loading clip failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return clip, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
