package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parakeep/parakeep-server/internal/logger"
	"github.com/parakeep/parakeep-server/internal/model"
	"github.com/parakeep/parakeep-server/internal/service"
)

// ParticleService defines particle operations scoped to an owner.
type ParticleService interface {
	CreateParticle(ctx context.Context, owner string, params service.CreateParticleParams) (model.Particle, error)
	GetParticle(ctx context.Context, id int64, owner string) (model.Particle, error)
	ListParticles(ctx context.Context, owner string, filter model.ParticleFilter) ([]model.Particle, error)
	UpdateParticle(ctx context.Context, id int64, owner string, fields model.ParticleUpdate) (model.Particle, error)
	DeleteParticle(ctx context.Context, id int64, owner string) error
	GetStats(ctx context.Context, owner string) (model.ParticleStats, error)
}

// Particle handles HTTP endpoints for particles.
type Particle struct {
	particleService ParticleService
	contextManager  model.ContextManager
	logger          *logger.Logger
}

// NewParticle creates a new Particle handler.
func NewParticle(particleService ParticleService, contextManager model.ContextManager, logger *logger.Logger) *Particle {
	return &Particle{
		particleService: particleService,
		contextManager:  contextManager,
		logger:          logger,
	}
}

type createParticleRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Section string   `json:"section"`
	Tags    []string `json:"tags"`
}

// updateParticleRequest distinguishes absent fields from empty ones:
// absent keys decode to nil and leave the stored value untouched.
type updateParticleRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Section *string   `json:"section"`
	Tags    *[]string `json:"tags"`
}

type particleResponse struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Section string   `json:"section"`
	User    string   `json:"user"`
	Created string   `json:"created"`
	Updated string   `json:"updated"`
}

func toParticleResponse(p model.Particle) particleResponse {
	return particleResponse{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
		Tags:    p.Tags,
		Section: string(p.Section),
		User:    p.Owner,
		Created: p.CreatedAt.Format(time.RFC3339),
		Updated: p.UpdatedAt.Format(time.RFC3339),
	}
}

// Create stores a new particle for the calling user.
func (h *Particle) Create(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	var req createParticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	particle, err := h.particleService.CreateParticle(r.Context(), username, service.CreateParticleParams{
		Title:   req.Title,
		Content: req.Content,
		Section: model.Section(req.Section),
		Tags:    req.Tags,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("Particle handler: particle created",
		"id", particle.ID,
		"username", username)

	writeJSON(w, http.StatusCreated, toParticleResponse(particle))
}

// Get returns one particle of the calling user.
func (h *Particle) Get(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	id, err := particleID(r)
	if err != nil {
		handleError(w, model.ErrNotFound)
		return
	}

	particle, err := h.particleService.GetParticle(r.Context(), id, username)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toParticleResponse(particle))
}

// List returns the calling user's particles, optionally narrowed by
// section and a case-insensitive substring query, paged by limit/offset.
func (h *Particle) List(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	filter := model.ParticleFilter{
		Query: r.URL.Query().Get("q"),
	}
	if s := r.URL.Query().Get("section"); s != "" {
		section := model.Section(s)
		if !section.Valid() {
			writeError(w, http.StatusBadRequest, "invalid section filter")
			return
		}
		filter.Section = &section
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > service.MaxListLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", service.MaxListLimit))
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	particles, err := h.particleService.ListParticles(r.Context(), username, filter)
	if err != nil {
		handleError(w, err)
		return
	}

	response := make([]particleResponse, 0, len(particles))
	for _, p := range particles {
		response = append(response, toParticleResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// Update applies a partial update to one particle of the calling user.
func (h *Particle) Update(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	id, err := particleID(r)
	if err != nil {
		handleError(w, model.ErrNotFound)
		return
	}

	var req updateParticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := model.ParticleUpdate{
		Title:   req.Title,
		Content: req.Content,
	}
	if req.Section != nil {
		section := model.Section(*req.Section)
		fields.Section = &section
	}
	if req.Tags != nil {
		fields.Tags = *req.Tags
		if fields.Tags == nil {
			fields.Tags = []string{}
		}
	}

	particle, err := h.particleService.UpdateParticle(r.Context(), id, username, fields)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("Particle handler: particle updated",
		"id", id,
		"username", username)

	writeJSON(w, http.StatusOK, toParticleResponse(particle))
}

// Delete removes one particle of the calling user.
func (h *Particle) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	id, err := particleID(r)
	if err != nil {
		handleError(w, model.ErrNotFound)
		return
	}

	if err := h.particleService.DeleteParticle(r.Context(), id, username); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("Particle handler: particle deleted",
		"id", id,
		"username", username)

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Particle deleted successfully",
		Success: true,
	})
}

// Stats returns per-section particle counts for the calling user.
func (h *Particle) Stats(w http.ResponseWriter, r *http.Request) {
	username, ok := h.contextManager.GetUsernameFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrInvalidToken)
		return
	}

	stats, err := h.particleService.GetStats(r.Context(), username)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func particleID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
