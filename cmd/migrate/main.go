package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/salonbook/salonbook/libs/config"
	"github.com/salonbook/salonbook/libs/runtime"
	"github.com/salonbook/salonbook/migrations"
)

// Usage: migrate [up|down|version|force <version>]. Default is up.
func main() {
	_ = config.LoadDotenv()
	logger := runtime.NewLogger("migrate")

	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("open db", "err", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("ping db", "err", err)
		os.Exit(1)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Error("db driver", "err", err)
		os.Exit(1)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Error("source driver", "err", err)
		os.Exit(1)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		logger.Error("create migrator", "err", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			err = verr
			break
		}
		logger.Info("schema version", "version", v, "dirty", dirty)
		return
	case "force":
		if len(os.Args) < 3 {
			logger.Error("force requires a version")
			os.Exit(2)
		}
		v, perr := strconv.Atoi(os.Args[2])
		if perr != nil {
			logger.Error("invalid version", "err", perr)
			os.Exit(2)
		}
		err = m.Force(v)
	default:
		logger.Error("unknown command", "cmd", cmd)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("migrate failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}
	logger.Info("migrations complete", "cmd", cmd)
}
