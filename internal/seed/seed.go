// Package seed creates demo accounts for development databases.
package seed

import (
	"context"
	"errors"
	"fmt"

	"folio/internal/models"
	"folio/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password every seeded account gets.
const DefaultPassword = "password123"

// ErrNothingToSeed is returned when the requested count is not positive.
var ErrNothingToSeed = errors.New("seed: count must be positive")

// Seeder registers fake users through the account service, so seeded rows
// get the same hashing and avatars as real registrations.
type Seeder struct {
	accounts *service.AccountService
	faker    *gofakeit.Faker
}

// NewSeeder returns a Seeder. A zero seed picks a random one.
func NewSeeder(accounts *service.AccountService, seed int64) *Seeder {
	return &Seeder{accounts: accounts, faker: gofakeit.New(seed)}
}

// Users registers n users with password. Generated usernames that collide
// with existing accounts are retried a few times before giving up.
func (s *Seeder) Users(ctx context.Context, n int, password string) ([]*models.User, error) {
	if n <= 0 {
		return nil, ErrNothingToSeed
	}
	if password == "" {
		password = DefaultPassword
	}

	users := make([]*models.User, 0, n)
	for len(users) < n {
		var (
			user *models.User
			err  error
		)
		for attempt := 0; attempt < 5; attempt++ {
			user, err = s.accounts.Register(ctx, s.input(password))
			if models.ErrorCode(err) != models.CodeConflict {
				break
			}
		}
		if err != nil {
			return users, fmt.Errorf("seed user %d: %w", len(users)+1, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) input(password string) service.RegisterInput {
	person := s.faker.Person()
	return service.RegisterInput{
		Username:  fmt.Sprintf("%s%d", s.faker.Username(), s.faker.Number(100, 999)),
		Password:  password,
		Email:     person.Contact.Email,
		FirstName: person.FirstName,
		LastName:  person.LastName,
		Bio:       s.faker.Sentence(12),
		ForHire:   s.faker.Bool(),
	}
}
