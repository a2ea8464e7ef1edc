package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"users-service/cache"
	"users-service/entities"
	"users-service/repositories"
	"users-service/services"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUserNotFound   = errors.New("user not found")
)

// SampleUsers are inserted by the seed_db command.
var SampleUsers = []entities.User{
	{Username: "jorge", Email: "jorgepaz@upeu.edu.pe"},
	{Username: "missael", Email: "pazmissael@gmail.com"},
}

// Observer is told about user creations and cache lookups.
type Observer interface {
	UserCreated()
	CacheLookup(hit bool)
}

type noopObserver struct{}

func (noopObserver) UserCreated()     {}
func (noopObserver) CacheLookup(bool) {}

type UserUseCase struct {
	repo     repositories.UserRepository
	cache    cache.UserCache
	notifier *services.UserNotifier
	observer Observer
}

// NewUserUseCase builds the use case. A nil cache disables caching; a nil
// notifier or observer disables them.
func NewUserUseCase(repo repositories.UserRepository, userCache cache.UserCache, notifier *services.UserNotifier, observer Observer) *UserUseCase {
	if userCache == nil {
		userCache = cache.NewNoopUserCache()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &UserUseCase{
		repo:     repo,
		cache:    userCache,
		notifier: notifier,
		observer: observer,
	}
}

// CreateUser validates and inserts a new user.
func (uc *UserUseCase) CreateUser(ctx context.Context, username, email string) (*entities.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" {
		return nil, ErrInvalidPayload
	}

	existing, err := uc.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicateEmail
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	user := &entities.User{Username: username, Email: email}
	if err := uc.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("user created")

	if err := uc.cache.Set(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to cache user")
	}
	uc.observer.UserCreated()
	uc.notifier.UserCreated(ctx, *user)

	return user, nil
}

// GetUser looks a user up by its raw path id. Ids that are not positive
// integers are reported as not found.
func (uc *UserUseCase) GetUser(ctx context.Context, rawID string) (*entities.User, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, ErrUserNotFound
	}

	if user, ok := uc.cache.Get(ctx, uint(id)); ok {
		uc.observer.CacheLookup(true)
		return user, nil
	}
	uc.observer.CacheLookup(false)

	user, err := uc.repo.GetByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	if err := uc.cache.Set(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to cache user")
	}
	return user, nil
}

// ListUsers returns every user ordered by id.
func (uc *UserUseCase) ListUsers(ctx context.Context) ([]entities.User, error) {
	return uc.repo.GetAll(ctx)
}

// SeedUsers inserts the fixed sample users, skipping emails already present.
// It returns the users actually inserted.
func (uc *UserUseCase) SeedUsers(ctx context.Context) ([]entities.User, error) {
	created := make([]entities.User, 0, len(SampleUsers))
	for _, seed := range SampleUsers {
		user, err := uc.CreateUser(ctx, seed.Username, seed.Email)
		if errors.Is(err, ErrDuplicateEmail) {
			logrus.WithField("email", seed.Email).Info("seed user already present")
			continue
		}
		if err != nil {
			return created, err
		}
		created = append(created, *user)
	}
	return created, nil
}

// FlushCache empties the user cache, used after the schema is recreated.
func (uc *UserUseCase) FlushCache(ctx context.Context) error {
	return uc.cache.Flush(ctx)
}

func (uc *UserUseCase) CacheStats() map[string]interface{} {
	return uc.cache.Stats()
}
