package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"

	"github.com/DrewHollis/gatehouse/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var (
		dir     = flag.String("dir", "migrations", "directory with migration files")
		command = flag.String("command", "up", "goose command: up, down, status, version")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		logger.Error("failed to set goose dialect", slog.Any("error", err))
		os.Exit(1)
	}

	if err := goose.Run(*command, db, *dir); err != nil {
		logger.Error("migration command failed",
			slog.String("command", *command),
			slog.Any("error", err),
		)
		os.Exit(1)
	}

	logger.Info("migration command completed", slog.String("command", *command))
}
