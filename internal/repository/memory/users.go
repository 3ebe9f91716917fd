package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkraev/chatauth/internal/apperrors"
	"github.com/mkraev/chatauth/internal/models"
	"github.com/mkraev/chatauth/internal/repository"
)

// In-memory UserRepo
// Backs service tests and local runs without postgres. The mutex gives the
// same atomicity for SwapRefreshToken that the single UPDATE gives in SQL
type UserRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *UserRepo) CreateUser(_ context.Context, arg repository.CreateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[arg.Email]; ok {
		return models.User{}, apperrors.ErrEmailAlreadyExists
	}

	now := time.Now().Truncate(time.Microsecond)
	user := &models.User{
		ID:           uuid.New(),
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		GoogleID:     arg.GoogleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID

	return *user, nil
}

func (r *UserRepo) GetUserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return *user, nil
}

func (r *UserRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return *r.byID[id], nil
}

func (r *UserRepo) SetRefreshToken(_ context.Context, id uuid.UUID, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}

	user.RefreshTokenHash = &tokenHash
	user.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepo) SwapRefreshToken(_ context.Context, id uuid.UUID, oldHash string, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != oldHash {
		return false, nil
	}

	user.RefreshTokenHash = &newHash
	user.UpdatedAt = time.Now()
	return true, nil
}

func (r *UserRepo) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}

	// Clearing an already cleared token is a no-op success
	user.RefreshTokenHash = nil
	user.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepo) SetGoogleID(_ context.Context, id uuid.UUID, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}

	user.GoogleID = &googleID
	user.UpdatedAt = time.Now()
	return nil
}
