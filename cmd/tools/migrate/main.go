package main

import (
	"errors"
	"flag"
	"os"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/noah-isme/payrelay/internal/ledger"
	"github.com/noah-isme/payrelay/internal/obs"
)

func main() {
	_ = godotenv.Load()

	dbURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "ledger database URL")
	steps := flag.Int("steps", 0, "number of migrations to roll back with down (0 = all)")
	flag.Parse()

	logger := obs.NewLogger("console", "info")
	command := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if command == "" {
		command = "up"
	}
	if strings.TrimSpace(*dbURL) == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := ledger.NewMigrator(*dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise migrator")
	}
	defer func() { _, _ = m.Close() }()

	switch command {
	case "up":
		err = ledger.Up(m)
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
		if errors.Is(err, migrate.ErrNoChange) {
			err = nil
		}
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			logger.Info().Msg("no migrations applied")
			return
		}
		if verr != nil {
			logger.Fatal().Err(verr).Msg("read version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		return
	default:
		logger.Fatal().Str("command", command).Msg("unknown command, want up, down or version")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
	logger.Info().Str("command", command).Msg("migration complete")
}
