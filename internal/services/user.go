package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/mq"
	"github.com/todoweb/server/internal/store"
	"github.com/todoweb/server/types"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicateCredential is returned when the username or email is taken.
	ErrDuplicateCredential = errors.New("username or email already registered")

	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password too long")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService owns user records and password hashing.
type UserService struct {
	repo     UserRepository
	hashCost int
	notifier notifier
}

func NewUserService(repo UserRepository, hashCost int, events EventPublisher, log logging.Logger) *UserService {
	return &UserService{
		repo:     repo,
		hashCost: hashCost,
		notifier: notifier{events: events, log: log},
	}
}

// Register stores a new user with a salted bcrypt hash of password.
func (s *UserService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return types.User{}, err
	}

	hashed, err := s.HashPassword(password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateCredential
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.notifier.publish(ctx, mq.Event{Type: mq.EventUserRegistered, UserID: user.ID})
	return user, nil
}

// FindByEmail returns store.ErrNotFound when no user has exactly this email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// HashPassword derives a bcrypt hash with a fresh random salt.
func (s *UserService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches the user's stored hash.
func (s *UserService) VerifyPassword(user types.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *UserService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return ErrDuplicateCredential
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check username: %w", err)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return ErrDuplicateCredential
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}
