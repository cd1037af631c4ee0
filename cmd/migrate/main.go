package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// command is one -cmd value. Offline commands run without config or a database.
type command struct {
	offline bool
	run     func(ctx context.Context, sqlDB *sql.DB, opts options) (string, error)
}

var commands = map[string]command{
	"up":     {run: gooseCommand("up")},
	"down":   {run: gooseCommand("down")},
	"status": {run: gooseCommand("status")},
	"version": {run: func(ctx context.Context, sqlDB *sql.DB, opts options) (string, error) {
		if opts.version == "" {
			return "", errors.New("-version is required")
		}
		return "migrated to " + opts.version, migrate.MigrateToVersion(ctx, sqlDB, opts.version)
	}},
	"check": {run: func(ctx context.Context, sqlDB *sql.DB, _ options) (string, error) {
		missing, err := migrate.MissingTables(ctx, sqlDB, migrate.RequiredTables)
		if err != nil {
			return "", err
		}
		if len(missing) > 0 {
			return "", fmt.Errorf("missing tables: %s", strings.Join(missing, ", "))
		}
		return "schema check passed", nil
	}},
	"create": {offline: true, run: func(_ context.Context, _ *sql.DB, opts options) (string, error) {
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		return "created " + path, err
	}},
	"validate": {offline: true, run: func(context.Context, *sql.DB, options) (string, error) {
		return "embedded migrations are valid", migrate.ValidateEmbedded()
	}},
}

func gooseCommand(name string) func(context.Context, *sql.DB, options) (string, error) {
	return func(ctx context.Context, sqlDB *sql.DB, _ options) (string, error) {
		return "goose " + name + " done", migrate.Run(ctx, sqlDB, name)
	}
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	_ = godotenv.Load()

	var opts options
	name := flag.String("cmd", "up", "migration command: "+commandNames())
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "where create writes new files")
	flag.StringVar(&opts.name, "name", "", "migration name for create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for version")
	flag.Parse()

	cmd, ok := commands[*name]
	if !ok {
		fail("unknown -cmd %q, expected one of %s", *name, commandNames())
	}
	ctx := context.Background()
	if cmd.offline {
		report(cmd.run(ctx, nil, opts))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		fail("goose migrations target postgres; the sqlite schema is auto-migrated")
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *name})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "connect database", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "unwrap sql database", err)
		os.Exit(1)
	}

	msg, err := cmd.run(ctx, sqlDB, opts)
	if err != nil {
		logg.Error(ctx, "migrate command failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, msg)
}

func report(msg string, err error) {
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(msg)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "migrate: "+format+"\n", args...)
	os.Exit(1)
}
