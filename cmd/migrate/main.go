package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/db"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/migrate"
)

type cliArgs struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	args := cliArgs{}
	flag.StringVar(&args.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate|seed")
	flag.StringVar(&args.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&args.name, "name", "", "migration name (for create)")
	flag.StringVar(&args.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(context.Background(), args); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", args.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args cliArgs) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": args.cmd,
		"dir": args.dir,
	})

	// create and validate work on files only, no database needed
	switch args.cmd {
	case "create":
		if args.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(args.dir, args.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil

	case "validate":
		if err := migrate.ValidateDir(args.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	return runDBCommand(ctx, args, cfg, dbClient, sqlDB, logg)
}

func runDBCommand(ctx context.Context, args cliArgs, cfg *config.Config, dbClient *db.Client, sqlDB *sql.DB, logg *logger.Logger) error {
	switch args.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, args.dir, args.cmd)

	case "version":
		if args.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, args.dir, args.version)

	case "seed":
		if cfg.App.IsProd() {
			return errors.New("seed is not available in prod")
		}
		if err := runSeed(ctx, cfg, dbClient.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "seed data applied")
		return nil

	default:
		return fmt.Errorf("unknown -cmd value: %s", args.cmd)
	}
}
