package model

import (
	"context"
	"time"
)

// Section is a PARA method category.
type Section string

const (
	SectionProjects  Section = "Projects"
	SectionAreas     Section = "Areas"
	SectionResources Section = "Resources"
	SectionArchives  Section = "Archives"
)

// Sections lists every valid section in canonical order.
func Sections() []Section {
	return []Section{SectionProjects, SectionAreas, SectionResources, SectionArchives}
}

// Valid reports whether s is one of the four PARA sections.
// Matching is case-sensitive.
func (s Section) Valid() bool {
	switch s {
	case SectionProjects, SectionAreas, SectionResources, SectionArchives:
		return true
	}
	return false
}

// ParticleStore defines persistence operations for particles. Every
// operation is scoped to an owner; a row belonging to another owner is
// indistinguishable from a missing row.
type ParticleStore interface {
	Create(ctx context.Context, particle Particle) (Particle, error)
	GetByID(ctx context.Context, id int64, owner string) (Particle, error)
	List(ctx context.Context, owner string, filter ParticleFilter) ([]Particle, error)
	Update(ctx context.Context, id int64, owner string, fields ParticleUpdate) (Particle, error)
	Delete(ctx context.Context, id int64, owner string) error
	Stats(ctx context.Context, owner string) (ParticleStats, error)
}

// Particle represents a single user-owned note.
type Particle struct {
	ID        int64
	Title     string
	Content   string
	Section   Section
	Tags      []string
	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParticleFilter narrows and pages a particle listing.
type ParticleFilter struct {
	Section *Section
	Query   string
	Limit   int
	Offset  int
}

// ParticleUpdate carries a partial update. Nil fields are left untouched.
type ParticleUpdate struct {
	Title   *string
	Content *string
	Section *Section
	Tags    []string
}

// ParticleStats counts particles per section for one owner.
type ParticleStats struct {
	Projects  int `json:"Projects"`
	Areas     int `json:"Areas"`
	Resources int `json:"Resources"`
	Archives  int `json:"Archives"`
	Total     int `json:"total"`
}
