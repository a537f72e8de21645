// Command backfill-embeddings computes name embeddings for entities that do
// not have one yet, so semantic candidate search covers records created before
// embeddings were enabled (or while the embedding backend was down).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/internal/config"
	"github.com/linkage-labs/linkage/pkg/embeddings/genai"
	"github.com/linkage-labs/linkage/pkg/pgutils"
)

func main() {
	var (
		batchSize int
		delayMs   int
		dryRun    bool
	)
	flag.IntVar(&batchSize, "batch-size", 100, "Number of entities per batch")
	flag.IntVar(&delayMs, "delay", 100, "Milliseconds to sleep between batches")
	flag.BoolVar(&dryRun, "dry-run", false, "Print what would be done without writing to DB")
	flag.Parse()

	_ = godotenv.Load(".env")

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.NewConfig()
	if err != nil {
		log.Error("load config failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !cfg.Embeddings.IsEnabled() {
		log.Error("GOOGLE_API_KEY is not set, nothing to backfill with")
		os.Exit(1)
	}

	if dryRun {
		log.Info("dry run mode enabled, no database writes will occur")
	}

	sqldb, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Error("open database failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	ctx := context.Background()

	client, err := genai.NewClient(ctx, genai.Config{
		APIKey: cfg.Embeddings.GoogleAPIKey,
		Model:  cfg.Embeddings.Model,
	}, genai.WithLogger(log))
	if err != nil {
		log.Error("create embedding client failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var processed, failed int
	for {
		var batch []*entity.Entity
		err := db.NewSelect().
			Model(&batch).
			Where("e.name_embedding IS NULL").
			Where("e.status = ?", entity.StatusActive).
			OrderExpr("e.created_at ASC").
			Limit(batchSize).
			Scan(ctx)
		if err != nil {
			log.Error("fetch batch failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if len(batch) == 0 {
			break
		}

		names := make([]string, len(batch))
		for i, e := range batch {
			names[i] = e.FullName()
		}

		vectors, err := client.EmbedDocuments(ctx, names)
		if err != nil {
			log.Error("embed batch failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		for i, e := range batch {
			if i >= len(vectors) || len(vectors[i]) == 0 {
				failed++
				log.Warn("no embedding returned", slog.String("entity_id", e.EntityID))
				continue
			}
			if dryRun {
				log.Info("would update", slog.String("entity_id", e.EntityID), slog.String("name", names[i]))
				processed++
				continue
			}
			_, err := db.ExecContext(ctx,
				`UPDATE er.entities
				 SET name_embedding = ?::vector, embedding_updated_at = now()
				 WHERE entity_id = ?`,
				pgutils.FormatVector(vectors[i]), e.EntityID)
			if err != nil {
				failed++
				log.Error("update embedding failed",
					slog.String("entity_id", e.EntityID),
					slog.String("error", err.Error()))
				continue
			}
			processed++
		}

		log.Info("batch processed", slog.Int("batch_size", len(batch)), slog.Int("total", processed))

		if dryRun {
			// Without writes the same rows come back forever.
			break
		}
		time.Sleep(time.Duration(delayMs) * time.Millisecond)
	}

	fmt.Printf("\nbackfill complete: %d updated, %d failed\n", processed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
