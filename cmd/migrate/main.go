// Command migrate applies the schema for every persistent model.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"folio/internal/config"
	"folio/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg, database.Dialector(cfg))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("migrations applied")
	case "status":
		for _, m := range database.PersistentModels() {
			log.Printf("%-14T present=%v", m, db.Migrator().HasTable(m))
		}
	default:
		return usage()
	}
	return nil
}
