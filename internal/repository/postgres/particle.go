package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/parakeep/parakeep-server/internal/model"
)

// tagSeparator delimits tags in the serialized column. Tag validation
// forbids commas, so the encoding is unambiguous.
const tagSeparator = ","

var _ model.ParticleStore = (*ParticleRepository)(nil)

type ParticleRepository struct {
	db *Connection
}

func NewParticleRepository(db *Connection) *ParticleRepository {
	return &ParticleRepository{
		db: db,
	}
}

func encodeTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, tagSeparator)
}

func (r *ParticleRepository) Create(ctx context.Context, particle model.Particle) (model.Particle, error) {
	query := `
		INSERT INTO particles (title, content, section, tags, owner)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, content, section, tags, owner, created_at, updated_at`

	var saved model.Particle
	var rawTags string
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			particle.Title, particle.Content, string(particle.Section),
			encodeTags(particle.Tags), particle.Owner,
		).Scan(
			&saved.ID, &saved.Title, &saved.Content, &saved.Section,
			&rawTags, &saved.Owner, &saved.CreatedAt, &saved.UpdatedAt,
		)
	})
	if err != nil {
		return model.Particle{}, err
	}

	saved.Tags = decodeTags(rawTags)

	return saved, nil
}

func (r *ParticleRepository) GetByID(ctx context.Context, id int64, owner string) (model.Particle, error) {
	query := `
		SELECT id, title, content, section, tags, owner, created_at, updated_at
		FROM particles
		WHERE id = $1 AND owner = $2`

	var particle model.Particle
	var rawTags string
	err := r.db.QueryRow(ctx, query, id, owner).Scan(
		&particle.ID, &particle.Title, &particle.Content, &particle.Section,
		&rawTags, &particle.Owner, &particle.CreatedAt, &particle.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Particle{}, model.ErrNotFound
		}
		return model.Particle{}, err
	}

	particle.Tags = decodeTags(rawTags)

	return particle, nil
}

func (r *ParticleRepository) List(ctx context.Context, owner string, filter model.ParticleFilter) ([]model.Particle, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, title, content, section, tags, owner, created_at, updated_at
		FROM particles
		WHERE owner = $1`)
	args := []any{owner}

	if filter.Section != nil {
		args = append(args, string(*filter.Section))
		fmt.Fprintf(&sb, " AND section = $%d", len(args))
	}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		fmt.Fprintf(&sb, " AND (title ILIKE $%d OR content ILIKE $%d)", len(args), len(args))
	}

	// id breaks created_at ties so pagination stays a stable partition.
	args = append(args, filter.Limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	particles := []model.Particle{}
	for rows.Next() {
		var particle model.Particle
		var rawTags string
		err := rows.Scan(
			&particle.ID, &particle.Title, &particle.Content, &particle.Section,
			&rawTags, &particle.Owner, &particle.CreatedAt, &particle.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		particle.Tags = decodeTags(rawTags)
		particles = append(particles, particle)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return particles, nil
}

func (r *ParticleRepository) Update(ctx context.Context, id int64, owner string, fields model.ParticleUpdate) (model.Particle, error) {
	// updated_at is refreshed on every successful update, field changes
	// or not.
	set := []string{"updated_at = now()"}
	args := []any{}

	if fields.Title != nil {
		args = append(args, *fields.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if fields.Content != nil {
		args = append(args, *fields.Content)
		set = append(set, fmt.Sprintf("content = $%d", len(args)))
	}
	if fields.Section != nil {
		args = append(args, string(*fields.Section))
		set = append(set, fmt.Sprintf("section = $%d", len(args)))
	}
	if fields.Tags != nil {
		args = append(args, encodeTags(fields.Tags))
		set = append(set, fmt.Sprintf("tags = $%d", len(args)))
	}

	args = append(args, id)
	idArg := len(args)
	args = append(args, owner)
	ownerArg := len(args)

	query := fmt.Sprintf(`
		UPDATE particles
		SET %s
		WHERE id = $%d AND owner = $%d
		RETURNING id, title, content, section, tags, owner, created_at, updated_at`,
		strings.Join(set, ", "), idArg, ownerArg)

	var updated model.Particle
	var rawTags string
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, args...).Scan(
			&updated.ID, &updated.Title, &updated.Content, &updated.Section,
			&rawTags, &updated.Owner, &updated.CreatedAt, &updated.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Particle{}, model.ErrNotFound
		}
		return model.Particle{}, err
	}

	updated.Tags = decodeTags(rawTags)

	return updated, nil
}

func (r *ParticleRepository) Delete(ctx context.Context, id int64, owner string) error {
	const query = `DELETE FROM particles WHERE id = $1 AND owner = $2`

	cmd, err := r.db.Exec(ctx, query, id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *ParticleRepository) Stats(ctx context.Context, owner string) (model.ParticleStats, error) {
	query := `
		SELECT section, COUNT(*)
		FROM particles
		WHERE owner = $1
		GROUP BY section`

	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return model.ParticleStats{}, err
	}
	defer rows.Close()

	var stats model.ParticleStats
	for rows.Next() {
		var section string
		var count int
		if err := rows.Scan(&section, &count); err != nil {
			return model.ParticleStats{}, err
		}

		switch model.Section(section) {
		case model.SectionProjects:
			stats.Projects = count
		case model.SectionAreas:
			stats.Areas = count
		case model.SectionResources:
			stats.Resources = count
		case model.SectionArchives:
			stats.Archives = count
		}
		stats.Total += count
	}

	if err := rows.Err(); err != nil {
		return model.ParticleStats{}, err
	}

	return stats, nil
}
