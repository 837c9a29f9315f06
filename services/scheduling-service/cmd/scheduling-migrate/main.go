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
	"github.com/md-rashed-zaman/agenda/libs/config"
	"github.com/md-rashed-zaman/agenda/libs/runtime"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/migrations"
)

// Usage: scheduling-migrate [up | down <steps> | force <version>]
func main() {
	_ = config.LoadDotenv()
	logger := runtime.NewLogger("scheduling-migrate")
	fail := func(msg string, err error) {
		logger.Error(msg, "err", err)
		os.Exit(1)
	}

	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		fail("config", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		fail("open db", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		fail("ping db", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		fail("db driver", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		fail("source driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		fail("create migrator", err)
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "force":
		version, err := argInt(2)
		if err != nil {
			fail("invalid version", err)
		}
		if err := m.Force(version); err != nil {
			fail("force version", err)
		}
		logger.Info("forced version", "version", version)
		return
	case "down":
		steps, err := argInt(2)
		if err != nil || steps <= 0 {
			fail("invalid steps", errors.New("down needs a positive step count"))
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fail("migrate down", err)
		}
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fail("migrate up", err)
		}
	default:
		fail("unknown command", errors.New(cmd))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		fail("read version", err)
	}
	logger.Info("migrations complete", "version", version, "dirty", dirty)
}

func argInt(i int) (int, error) {
	if len(os.Args) <= i {
		return 0, errors.New("missing argument")
	}
	return strconv.Atoi(os.Args[i])
}
