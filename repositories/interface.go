package repositories

import (
	"context"
	"errors"

	"users-service/entities"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	// GetAll returns every user ordered by id ascending.
	GetAll(ctx context.Context) ([]entities.User, error)
}
