// Command migrate applies the embedded SQL migrations.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/linkage-labs/linkage/internal/config"
	"github.com/linkage-labs/linkage/internal/migrate"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down|status|version>")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		flag.Usage()
		os.Exit(1)
	}

	_ = godotenv.Load(".env")

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.NewConfig()
	if err != nil {
		log.Error("load config failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sqldb, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Error("open database failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, log)
	ctx := context.Background()

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "version":
		var version int64
		version, err = migrator.Version(ctx)
		if err == nil {
			fmt.Printf("database version: %d\n", version)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		log.Error("migration command failed",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}
