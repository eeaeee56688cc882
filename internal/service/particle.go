package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/parakeep/parakeep-server/internal/logger"
	"github.com/parakeep/parakeep-server/internal/model"
)

// List page bounds. A zero limit falls back to the default; the
// boundary rejects explicit out-of-range values before they get here.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ParticleLimits bounds particle field sizes.
type ParticleLimits struct {
	MaxTitleLength     int
	MaxContentLength   int
	MaxTagsPerParticle int
	MaxTagLength       int
}

// CreateParticleParams contains parameters to create a particle.
type CreateParticleParams struct {
	Title   string
	Content string
	Section model.Section
	Tags    []string
}

// Particle implements the particle operations. Every method is scoped
// to an owner; rows of other owners behave as missing.
type Particle struct {
	particleStore model.ParticleStore
	limits        ParticleLimits
	logger        *logger.Logger
}

func NewParticle(particleStore model.ParticleStore, limits ParticleLimits, logger *logger.Logger) *Particle {
	return &Particle{
		particleStore: particleStore,
		limits:        limits,
		logger:        logger,
	}
}

// CreateParticle validates params, normalizes its tags and persists a
// new particle owned by owner. The returned particle is the stored row,
// not an echo of the input.
func (s *Particle) CreateParticle(ctx context.Context, owner string, params CreateParticleParams) (model.Particle, error) {
	if err := s.validateTitle(params.Title); err != nil {
		return model.Particle{}, err
	}
	if err := s.validateContent(params.Content); err != nil {
		return model.Particle{}, err
	}
	if !params.Section.Valid() {
		return model.Particle{}, sectionValidationError()
	}

	tags, err := s.normalizeTags(params.Tags)
	if err != nil {
		return model.Particle{}, err
	}

	particle, err := s.particleStore.Create(ctx, model.Particle{
		Title:   params.Title,
		Content: params.Content,
		Section: params.Section,
		Tags:    tags,
		Owner:   owner,
	})
	if err != nil {
		s.logger.Error("Particle service: failed to create particle",
			"owner", owner,
			"error", err.Error())
		return model.Particle{}, fmt.Errorf("failed to create particle: %w", err)
	}

	s.logger.Info("Particle service: created particle",
		"id", particle.ID,
		"owner", owner)

	return particle, nil
}

// GetParticle returns one particle owned by owner.
func (s *Particle) GetParticle(ctx context.Context, id int64, owner string) (model.Particle, error) {
	particle, err := s.particleStore.GetByID(ctx, id, owner)
	if errors.Is(err, model.ErrNotFound) {
		return model.Particle{}, model.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Particle service: failed to get particle",
			"id", id,
			"owner", owner,
			"error", err.Error())
		return model.Particle{}, fmt.Errorf("failed to get particle: %w", err)
	}

	return particle, nil
}

// ListParticles returns owner's particles, newest first, narrowed by
// the optional section and substring filters. Limit defaults to 100 and
// is clamped to [1, 1000]; a negative offset is treated as zero.
func (s *Particle) ListParticles(ctx context.Context, owner string, filter model.ParticleFilter) ([]model.Particle, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	particles, err := s.particleStore.List(ctx, owner, filter)
	if err != nil {
		s.logger.Error("Particle service: failed to list particles",
			"owner", owner,
			"error", err.Error())
		return nil, fmt.Errorf("failed to list particles: %w", err)
	}

	return particles, nil
}

// UpdateParticle applies a partial update to one particle owned by
// owner. Only non-nil fields change; the updated timestamp refreshes on
// every successful call.
func (s *Particle) UpdateParticle(ctx context.Context, id int64, owner string, fields model.ParticleUpdate) (model.Particle, error) {
	if fields.Title != nil {
		if err := s.validateTitle(*fields.Title); err != nil {
			return model.Particle{}, err
		}
	}
	if fields.Content != nil {
		if err := s.validateContent(*fields.Content); err != nil {
			return model.Particle{}, err
		}
	}
	if fields.Section != nil && !fields.Section.Valid() {
		return model.Particle{}, sectionValidationError()
	}
	if fields.Tags != nil {
		tags, err := s.normalizeTags(fields.Tags)
		if err != nil {
			return model.Particle{}, err
		}
		fields.Tags = tags
	}

	particle, err := s.particleStore.Update(ctx, id, owner, fields)
	if errors.Is(err, model.ErrNotFound) {
		return model.Particle{}, model.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Particle service: failed to update particle",
			"id", id,
			"owner", owner,
			"error", err.Error())
		return model.Particle{}, fmt.Errorf("failed to update particle: %w", err)
	}

	s.logger.Info("Particle service: updated particle",
		"id", id,
		"owner", owner)

	return particle, nil
}

// DeleteParticle removes one particle owned by owner. Hard delete.
func (s *Particle) DeleteParticle(ctx context.Context, id int64, owner string) error {
	err := s.particleStore.Delete(ctx, id, owner)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Particle service: failed to delete particle",
			"id", id,
			"owner", owner,
			"error", err.Error())
		return fmt.Errorf("failed to delete particle: %w", err)
	}

	s.logger.Info("Particle service: deleted particle",
		"id", id,
		"owner", owner)

	return nil
}

// GetStats counts owner's particles per section. All four sections are
// present in the result, zero-filled when empty.
func (s *Particle) GetStats(ctx context.Context, owner string) (model.ParticleStats, error) {
	stats, err := s.particleStore.Stats(ctx, owner)
	if err != nil {
		s.logger.Error("Particle service: failed to get stats",
			"owner", owner,
			"error", err.Error())
		return model.ParticleStats{}, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

// Length bounds count characters, not bytes, so multibyte text is not
// penalized.
func (s *Particle) validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n < 1 || n > s.limits.MaxTitleLength {
		return model.NewValidationError(
			"title must be between 1 and %d characters", s.limits.MaxTitleLength)
	}
	return nil
}

func (s *Particle) validateContent(content string) error {
	if n := utf8.RuneCountInString(content); n < 1 || n > s.limits.MaxContentLength {
		return model.NewValidationError(
			"content must be between 1 and %d characters", s.limits.MaxContentLength)
	}
	return nil
}

func sectionValidationError() error {
	sections := model.Sections()
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = string(s)
	}
	return model.NewValidationError("section must be one of: %s", strings.Join(names, ", "))
}

// normalizeTags trims, validates and deduplicates tags. The count limit
// applies to the raw input, before blanks are dropped and duplicates
// collapsed. Deduplication is case-insensitive and keeps the first
// occurrence's casing and position. The result is idempotent: feeding
// it back through changes nothing.
func (s *Particle) normalizeTags(tags []string) ([]string, error) {
	if len(tags) > s.limits.MaxTagsPerParticle {
		return nil, model.NewValidationError(
			"cannot have more than %d tags", s.limits.MaxTagsPerParticle)
	}

	seen := make(map[string]bool, len(tags))
	normalized := []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > s.limits.MaxTagLength {
			return nil, model.NewValidationError(
				"tag %q exceeds %d character limit", tag, s.limits.MaxTagLength)
		}
		if !tagPattern.MatchString(tag) {
			return nil, model.NewValidationError(
				"tag %q contains invalid characters, use only letters, numbers, underscores, and hyphens", tag)
		}

		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, tag)
	}

	return normalized, nil
}
