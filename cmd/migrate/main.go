package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/vidfeed/video-feed-import-go/internal/config"
)

// Applies schema migrations. The target database comes from the same
// configuration the server reads, or from DATABASE_URL when set.
//
//	migrate [-path dir] [-steps n] up|down|version
func main() {
	var (
		migrationsPath string
		steps          int
	)
	flag.StringVar(&migrationsPath, "path", "./migrations", "Path to migrations directory")
	flag.IntVar(&steps, "steps", 0, "Number of steps to apply (0 means all)")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		dbURL = databaseURL(cfg.Database)
	}

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		err = nil
	default:
		log.Fatalf("Unknown command %q (want up, down, or version)", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("Schema is empty (no version)")
	case err != nil:
		log.Fatalf("Failed to read schema version: %v", err)
	default:
		log.Printf("Schema at version %d (dirty: %t)", version, dirty)
	}
}

func databaseURL(db config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(db.User), url.QueryEscape(db.Password),
		db.Host, db.Port, db.Name, db.SSLMode)
}
