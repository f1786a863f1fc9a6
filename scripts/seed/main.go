package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/shepherd-hq/shepherd/internal/app"
	"github.com/shepherd-hq/shepherd/internal/platform/db"
	"github.com/shepherd-hq/shepherd/internal/provision"
	"github.com/shepherd-hq/shepherd/internal/roles"
	"github.com/shepherd-hq/shepherd/internal/users"
)

// errDryRun rolls the seeding transaction back.
var errDryRun = errors.New("dry run")

// seedLockKey serialises concurrent seed runs against one database.
const seedLockKey int64 = 0x5eed

func main() {
	runMigrations := flag.Bool("migrate", true, "apply database migrations before seeding")
	dryRun := flag.Bool("dry-run", false, "roll back instead of committing")
	flag.Parse()

	cfg, err := app.LoadSeedConfig()
	if err != nil {
		slog.Default().Error("load seed config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogFormat, cfg.LogLevel)

	if *runMigrations {
		version, err := db.Migrate(cfg.PGDSN)
		if err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Uint64("version", uint64(version)))
	}

	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var report provision.Report
	err = db.WithLockedTx(ctx, pool, seedLockKey, func(tx pgx.Tx) error {
		seeder := provision.NewSeeder(roles.NewRepository(tx), users.NewRepository(tx), logger)
		var runErr error
		report, runErr = seeder.Run(ctx, bootstrapAccounts(cfg))
		if runErr != nil {
			return runErr
		}
		if *dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("seed complete",
		slog.Bool("dry_run", *dryRun),
		slog.Any("roles_created", report.RolesCreated),
		slog.Any("accounts_created", report.AccountsCreated),
		slog.Any("roles_assigned", report.RolesAssigned))
}

func bootstrapAccounts(cfg *app.SeedConfig) []provision.Account {
	return []provision.Account{
		{Name: cfg.SuperAdminName, Email: cfg.SuperAdminEmail, Password: cfg.Password, Role: roles.SuperAdmin},
		{Name: cfg.ChurchAdminName, Email: cfg.ChurchAdminEmail, Password: cfg.Password, Role: roles.ChurchAdmin},
	}
}
