package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error classes mapped to ErrInvalidInput.
const (
	checkViolation      = "23514"
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
	notNullViolation    = "23502"
)

// PGRepo implements Repo using Postgres with a JSONB content column.
type PGRepo struct {
	DB *sql.DB
}

const returningColumns = `id, user_id, title, public, content, version, created_at, updated_at`

func (r *PGRepo) Insert(ctx context.Context, resume Resume) error {
	content, err := json.Marshal(resume.Content)
	if err != nil {
		return fmt.Errorf("%w: content is not serializable", ErrInvalidInput)
	}
	const query = `
INSERT INTO resumes (id, user_id, title, public, content, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`
	_, err = r.DB.ExecContext(ctx, query,
		resume.ID,
		resume.UserID,
		resume.Title,
		resume.Public,
		string(content),
		resume.Version,
		resume.CreatedAt,
		resume.UpdatedAt,
	)
	return mapConstraintError(err)
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Resume, error) {
	const query = `
SELECT ` + returningColumns + `
FROM resumes
WHERE user_id = $1
ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resume)
	}
	return out, rows.Err()
}

func (r *PGRepo) FindOwned(ctx context.Context, ownerID, resumeID string) (Resume, error) {
	const query = `SELECT ` + returningColumns + ` FROM resumes WHERE id = $1 AND user_id = $2 LIMIT 1`
	return r.queryOne(ctx, query, resumeID, ownerID)
}

func (r *PGRepo) FindPublic(ctx context.Context, resumeID string) (Resume, error) {
	const query = `SELECT ` + returningColumns + ` FROM resumes WHERE id = $1 AND public = true LIMIT 1`
	return r.queryOne(ctx, query, resumeID)
}

func (r *PGRepo) DeleteOwned(ctx context.Context, ownerID, resumeID string) (Resume, error) {
	const query = `DELETE FROM resumes WHERE id = $1 AND user_id = $2 RETURNING ` + returningColumns
	return r.queryOne(ctx, query, resumeID, ownerID)
}

// UpdateOwned merges the patch's top-level keys into content in one statement, so overlapping
// updates serialize on the row and the last writer's keys win as a set.
func (r *PGRepo) UpdateOwned(ctx context.Context, ownerID, resumeID string, patch Patch, at time.Time) (Resume, error) {
	content := patch.Content
	if content == nil {
		content = Content{}
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return Resume{}, fmt.Errorf("%w: content is not serializable", ErrInvalidInput)
	}
	var title sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}
	var public sql.NullBool
	if patch.Public != nil {
		public = sql.NullBool{Bool: *patch.Public, Valid: true}
	}

	const query = `
UPDATE resumes SET
  content = content || $3::jsonb,
  title = COALESCE($4, title),
  public = COALESCE($5, public),
  version = version + 1,
  updated_at = $6
WHERE id = $1 AND user_id = $2
RETURNING ` + returningColumns
	resume, err := r.queryOne(ctx, query, resumeID, ownerID, string(raw), title, public, at)
	if err != nil {
		return Resume{}, mapConstraintError(err)
	}
	return resume, nil
}

func (r *PGRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func (r *PGRepo) queryOne(ctx context.Context, query string, args ...any) (Resume, error) {
	resume, err := scanResume(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return resume, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var resume Resume
	var content []byte
	if err := row.Scan(
		&resume.ID,
		&resume.UserID,
		&resume.Title,
		&resume.Public,
		&content,
		&resume.Version,
		&resume.CreatedAt,
		&resume.UpdatedAt,
	); err != nil {
		return Resume{}, err
	}
	resume.Content = Content{}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &resume.Content); err != nil {
			return Resume{}, fmt.Errorf("decode resume content: %w", err)
		}
	}
	return resume, nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case checkViolation, foreignKeyViolation, uniqueViolation, notNullViolation:
			return fmt.Errorf("%w: %s", ErrInvalidInput, pgErr.Message)
		}
	}
	return err
}

var _ Repo = (*PGRepo)(nil)
