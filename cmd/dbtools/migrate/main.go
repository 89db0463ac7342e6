// cmd/dbtools/migrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/StaycationHaven/internal/db"
)

func main() {
	var (
		dbPath  = flag.String("db", "", "Path to SQLite database")
		command = flag.String("command", "", "Command to run (up, down, steps, version, force)")
		n       = flag.Int("n", 0, "Step count for steps, version for force")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *dbPath == "" || *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	absDB, err := filepath.Abs(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database path")
	}
	if err := os.MkdirAll(filepath.Dir(absDB), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	sqlDB, err := db.Open(absDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer sqlDB.Close()

	m, err := db.NewMigrator(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration init failed")
	}

	if err := run(m, *command, *n); err != nil {
		log.Fatal().Err(err).Str("command", *command).Str("db", absDB).Msg("Migration failed")
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("Version: none")
	case err != nil:
		log.Fatal().Err(err).Msg("Get version failed")
	default:
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
	}
}

func run(m *migrate.Migrate, command string, n int) error {
	var err error
	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		if n == 0 {
			return fmt.Errorf("steps requires -n")
		}
		err = m.Steps(n)
	case "force":
		if n <= 0 {
			return fmt.Errorf("force requires -n version")
		}
		err = m.Force(n)
	case "version":
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("command", command).Msg("No change")
		return nil
	}
	return err
}
