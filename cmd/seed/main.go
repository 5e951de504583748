// Command main seeds the database with demo accounts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"folio/internal/config"
	"folio/internal/credentials"
	"folio/internal/database"
	"folio/internal/repository"
	"folio/internal/seed"
	"folio/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("seed", flag.ContinueOnError)
	numUsers := flags.Int("users", 20, "Number of users to create")
	password := flags.String("password", seed.DefaultPassword, "Password for every seeded user")
	randSeed := flags.Int64("seed", 0, "Random seed (0 picks one)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		return errors.New("refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	accounts := service.NewAccountService(
		repository.NewUserRepository(db),
		credentials.NewHasher(cfg.BcryptCost),
		cfg.DuplicateUsernamePolicy,
	)

	users, err := seed.NewSeeder(accounts, *randSeed).Users(context.Background(), *numUsers, *password)
	if err != nil {
		return fmt.Errorf("user seeding failed after %d users: %w", len(users), err)
	}

	log.Printf("Seeded %d users. All share the password %q", len(users), *password)
	return nil
}
