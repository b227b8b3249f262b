package repository

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/util"
)

// SearchLimit caps profile search results.
const SearchLimit = 10

type ProfileRepository struct {
	db     DB
	logger *zap.Logger
}

func NewProfileRepository(db DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, logger: logger}
}

const profileColumns = `id, username, email, avatar_url, created_at`

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.AvatarURL, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByEmail matches email case-insensitively after trimming.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetMany returns the profiles that exist among ids, keyed by id.
func (r *ProfileRepository) GetMany(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	out := make(map[string]*model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Create inserts a profile if none exists for the id and returns the stored row.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, username, email, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Username, p.Email, p.AvatarURL)
	if err != nil {
		if util.IsUniqueViolation(err) {
			return nil, model.ErrEmailTaken
		}
		r.logger.Error("Failed to create profile", zap.String("profile_id", p.ID), zap.Error(err))
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return r.Get(ctx, p.ID)
}

// Update writes username and avatar_url and returns the stored row.
func (r *ProfileRepository) Update(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	updated, err := scanProfile(r.db.QueryRow(ctx, `
		UPDATE profiles SET username = $2, avatar_url = $3
		WHERE id = $1
		RETURNING `+profileColumns, p.ID, p.Username, p.AvatarURL))
	if err != nil {
		return nil, notFound(err)
	}
	return updated, nil
}

// Search matches query as a substring of email or username, case-insensitively.
func (r *ProfileRepository) Search(ctx context.Context, query string) ([]model.Profile, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.db.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE email ILIKE $1 OR username ILIKE $1
		ORDER BY username ASC, id ASC
		LIMIT $2
	`, pattern, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
