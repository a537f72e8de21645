// Package main provides the entry point for the entity resolution server.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/domain/health"
	"github.com/linkage-labs/linkage/domain/relationship"
	"github.com/linkage-labs/linkage/domain/resolution"
	"github.com/linkage-labs/linkage/domain/search"
	"github.com/linkage-labs/linkage/domain/tracing"
	"github.com/linkage-labs/linkage/internal/config"
	"github.com/linkage-labs/linkage/internal/database"
	"github.com/linkage-labs/linkage/internal/server"
	"github.com/linkage-labs/linkage/pkg/embeddings"
	"github.com/linkage-labs/linkage/pkg/logger"
)

func main() {
	// Load .env files if present (for local development).
	// Load() won't overwrite existing vars, Overload() will.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		server.Module,
		tracing.Module,

		// Embeddings module (provides the semantic search backend)
		embeddings.Module,

		// Domain modules
		health.Module,
		entity.Module,
		relationship.Module,
		search.Module,
		resolution.Module,
	).Run()
}
