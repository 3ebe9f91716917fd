package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkraev/chatauth/internal/apperrors"
	"github.com/mkraev/chatauth/internal/models"
	"github.com/mkraev/chatauth/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{DB: db}
}

const createUser = `-- name: CreateUser
INSERT INTO users (email, password_hash, google_id)
VALUES ($1, $2, $3)
RETURNING id, email, password_hash, google_id, refresh_token_hash, created_at, updated_at
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, arg.Email, arg.PasswordHash, arg.GoogleID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, apperrors.ErrEmailAlreadyExists
		}
		return user, fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, email, password_hash, google_id, refresh_token_hash, created_at, updated_at
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, email, password_hash, google_id, refresh_token_hash, created_at, updated_at
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET refresh_token_hash = $2, updated_at = now()
WHERE id = $1
RETURNING id
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	rows, _ := r.DB.Query(ctx, setRefreshToken, id, tokenHash)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}
}

const swapRefreshToken = `-- name: SwapRefreshToken
UPDATE users
SET refresh_token_hash = $3, updated_at = now()
WHERE id = $1 AND refresh_token_hash = $2
RETURNING id
`

// Single atomic write so a lost race never leaves a half-rotated token.
// No matching row covers both cases: stored digest changed under us or
// the user holds no session anymore
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash string, newHash string) (bool, error) {
	rows, _ := r.DB.Query(ctx, swapRefreshToken, id, oldHash, newHash)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}
}

const clearRefreshToken = `-- name: ClearRefreshToken
UPDATE users
SET refresh_token_hash = NULL, updated_at = now()
WHERE id = $1
RETURNING id
`

func (r *UserRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	rows, _ := r.DB.Query(ctx, clearRefreshToken, id)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}
}

const setGoogleID = `-- name: SetGoogleID
UPDATE users
SET google_id = $2, updated_at = now()
WHERE id = $1
RETURNING id
`

func (r *UserRepo) SetGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	rows, _ := r.DB.Query(ctx, setGoogleID, id, googleID)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.GoogleID, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
