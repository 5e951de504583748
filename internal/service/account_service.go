// Package service holds the account and photo workflows used by the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"folio/internal/avatar"
	"folio/internal/config"
	"folio/internal/credentials"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/observability"
	"folio/internal/repository"
)

const maxUsernameLen = 64

// RegisterInput carries the registration form. Password is plaintext and
// must never be logged.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Bio       string
	ForHire   bool
}

// AccountService implements registration, login and user lookup.
type AccountService struct {
	users           repository.UserRepository
	hasher          *credentials.Hasher
	duplicatePolicy string
}

// NewAccountService builds an AccountService. An empty policy means reject.
func NewAccountService(users repository.UserRepository, hasher *credentials.Hasher, duplicatePolicy string) *AccountService {
	if duplicatePolicy == "" {
		duplicatePolicy = config.DuplicatePolicyReject
	}
	return &AccountService{
		users:           users,
		hasher:          hasher,
		duplicatePolicy: duplicatePolicy,
	}
}

// NormalizeUsername trims and lower-cases a username. Every lookup and every
// save goes through it, so "Alice" and "alice" name the same account.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Register creates a new user with a hashed password and a generated avatar.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	ctx, span := observability.StartSpan(ctx, "account.register")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	username := NormalizeUsername(in.Username)
	if username == "" || in.Password == "" {
		observability.Registrations.WithLabelValues(observability.OutcomeInvalid).Inc()
		err = models.NewValidationError("Username and password are required")
		return nil, err
	}
	if len(username) > maxUsernameLen {
		observability.Registrations.WithLabelValues(observability.OutcomeInvalid).Inc()
		err = models.NewValidationError(fmt.Sprintf("Username too long (max %d characters)", maxUsernameLen))
		return nil, err
	}

	if s.duplicatePolicy == config.DuplicatePolicyReject {
		var exists bool
		exists, err = s.users.ExistsByUsername(ctx, username)
		if err != nil {
			observability.Registrations.WithLabelValues(observability.OutcomeError).Inc()
			return nil, err
		}
		if exists {
			observability.Registrations.WithLabelValues(observability.OutcomeDuplicate).Inc()
			err = models.NewConflictError("Username already taken", nil)
			return nil, err
		}
	}

	start := time.Now()
	hashed, hashErr := s.hasher.Hash(in.Password)
	observability.PasswordHashDuration.Observe(time.Since(start).Seconds())
	if hashErr != nil {
		observability.Registrations.WithLabelValues(observability.OutcomeError).Inc()
		err = models.NewHashingError(hashErr)
		return nil, err
	}

	user := &models.User{
		Username:  username,
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Bio:       in.Bio,
		ForHire:   in.ForHire,
		Password:  hashed,
		Avatar:    avatar.Generate(username),
	}

	if err = s.users.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			observability.Registrations.WithLabelValues(observability.OutcomeDuplicate).Inc()
			err = models.NewConflictError("Username already taken", err)
			return nil, err
		}
		observability.Registrations.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	observability.Registrations.WithLabelValues(observability.OutcomeSuccess).Inc()
	middleware.Logger.InfoContext(ctx, "user registered", "username", username, "user_id", user.ID)
	return user, nil
}

// Login returns the user when the credentials match. An unknown username and
// a wrong password both yield (nil, nil); callers cannot tell them apart.
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.User, error) {
	ctx, span := observability.StartSpan(ctx, "account.login")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	username = NormalizeUsername(username)
	if username == "" || password == "" {
		observability.LoginAttempts.WithLabelValues(observability.OutcomeInvalid).Inc()
		return nil, nil
	}

	var user *models.User
	user, err = s.users.FindByUsername(ctx, username)
	if err != nil {
		observability.LoginAttempts.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}
	if user == nil {
		observability.LoginAttempts.WithLabelValues(observability.OutcomeMiss).Inc()
		middleware.Logger.InfoContext(ctx, "login rejected", "username", username)
		return nil, nil
	}
	if !s.hasher.Verify(password, user.Password) {
		observability.LoginAttempts.WithLabelValues(observability.OutcomeMismatch).Inc()
		middleware.Logger.InfoContext(ctx, "login rejected", "username", username)
		return nil, nil
	}

	observability.LoginAttempts.WithLabelValues(observability.OutcomeSuccess).Inc()
	middleware.Logger.InfoContext(ctx, "login succeeded", "username", username)
	return user, nil
}

// FindUser looks a user up by username after normalizing it. A miss is (nil, nil).
func (s *AccountService) FindUser(ctx context.Context, username string) (*models.User, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, nil
	}
	return s.users.FindByUsername(ctx, username)
}
