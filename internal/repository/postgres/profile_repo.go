package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"career-coach-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// rollbackTimeout bounds the rollback issued after the tx deadline expired
const rollbackTimeout = 5 * time.Second

const profileColumns = `
	id, clerk_user_id, email,
	COALESCE(name, ''), COALESCE(image_url, ''),
	COALESCE(industry, ''), COALESCE(experience, 0), COALESCE(bio, ''),
	skills, created_at, updated_at`

// updateProfileSQL keeps the stored bio or skills when the parameter is NULL.
// An empty bio is stored as NULL.
const updateProfileSQL = `
	UPDATE users SET
		industry = $1,
		experience = $2,
		bio = CASE WHEN $3::text IS NULL THEN bio ELSE NULLIF($3::text, '') END,
		skills = COALESCE($4::text[], skills),
		updated_at = NOW()
	WHERE id = $5
	RETURNING ` + profileColumns

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var skills []string
	err := row.Scan(
		&p.ID, &p.ClerkUserID, &p.Email,
		&p.Name, &p.ImageURL,
		&p.Industry, &p.Experience, &p.Bio,
		pq.Array(&skills), &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []string{}
	}
	p.Skills = skills
	return &p, nil
}

func (r *profileRepo) GetByClerkUserID(ctx context.Context, clerkUserID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE clerk_user_id = $1`

	p, err := scanProfile(r.db.QueryRow(ctx, query, clerkUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(ctx, "get profile", err)
	}
	return p, nil
}

// =================================================================================================
// Transactional Profile Update
// =================================================================================================

func (r *profileRepo) WithinTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx domain.ProfileTx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := r.db.BeginTx(txCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storeError(txCtx, "begin transaction", err)
	}
	defer func() {
		// The tx context may already be dead; rollback still has to reach the server
		rbCtx, rbCancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer rbCancel()
		_ = tx.Rollback(rbCtx)
	}()

	// Server-side bound as well, so a stuck statement cannot outlive the client deadline
	if _, err := tx.Exec(txCtx, fmt.Sprintf("SET LOCAL statement_timeout = %d", timeout.Milliseconds())); err != nil {
		return storeError(txCtx, "set statement timeout", err)
	}

	if err := fn(txCtx, &profileTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return storeError(txCtx, "commit transaction", err)
	}
	return nil
}

type profileTx struct {
	tx pgx.Tx
}

func updateProfileArgs(profileID string, req *domain.UpdateProfileRequest) []any {
	return []any{req.Industry, req.Experience, req.Bio, pq.Array(req.Skills), profileID}
}

// UpdateProfile leaves bio and skills untouched when the request omits them
func (t *profileTx) UpdateProfile(ctx context.Context, profileID string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	p, err := scanProfile(t.tx.QueryRow(ctx, updateProfileSQL, updateProfileArgs(profileID, req)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, storeError(ctx, "update profile", err)
	}
	return p, nil
}
