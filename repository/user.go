package repository

import (
	"context"

	"github.com/fastygo/gidoku/domain"
)

// UserRepository is the authoritative source of user records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// FindByProvider returns domain.ErrUserNotFound when no account is linked.
	FindByProvider(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	IsUsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
