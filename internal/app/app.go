package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quillbase/ingesta/internal/config"
	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/chunker"
	"github.com/quillbase/ingesta/internal/core/crawler"
	db "github.com/quillbase/ingesta/internal/core/database"
	"github.com/quillbase/ingesta/internal/core/ingest"
	"github.com/quillbase/ingesta/internal/core/llm"
	"github.com/quillbase/ingesta/internal/core/normalizer"
	objectclient "github.com/quillbase/ingesta/internal/core/object-client"
	"github.com/quillbase/ingesta/internal/core/refresh"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Ingestor     ingest.Ingestor
	Scheduler    *refresh.Scheduler
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}

	crawlClient := crawler.NewFirecrawlClient(cfg.CrawlAPIURL, cfg.CrawlAPIKey)
	docNormalizer := normalizer.NewDocNormalizer()
	splitter := chunker.New(chunker.Strategy(cfg.ChunkStrategy), cfg.ChunkMaxTokens)

	ingCfg := &ingest.IngestConfig{
		MaxPages: cfg.MaxPages,
		MaxDepth: cfg.MaxDepth,
		LeaseTTL: 15 * time.Minute,
	}

	ingestor := ingest.NewSourceIngestor(dbClient, objClient, crawlClient, docNormalizer, geminiEmbedder, splitter, ingCfg)
	ingestor.Start(ctx, cfg.IngestWorkers)

	scheduler := refresh.NewScheduler(dbClient, ingestor)
	if err := scheduler.Start(ctx, cfg.RefreshSchedule); err != nil {
		return nil, err
	}
	log.Printf("Refresh scheduler running (%s).", cfg.RefreshSchedule)

	server := NewServer(cfg, dbClient, objClient, ingestor, scheduler)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Ingestor:     ingestor,
		Scheduler:    scheduler,
		Server:       server,
	}, nil
}

func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
