package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careassist/internal/blobstore"
	"careassist/internal/config"
	"careassist/internal/conversation"
	"careassist/internal/http"
	"careassist/internal/index"
	"careassist/internal/llm"
	"careassist/internal/loader"
	"careassist/internal/recordstore"
	"careassist/internal/service"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Document blob store
	var blobs blobstore.Store
	switch cfg.BlobBackend {
	case "gcs":
		gcs, err := blobstore.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			log.Fatalf("Failed to connect to GCS: %v", err)
		}
		defer func() {
			_ = gcs.Close()
		}()
		blobs = gcs
		slog.Info("Blob store ready", "backend", "gcs", "bucket", cfg.GCSBucket)
	default:
		local, err := blobstore.NewLocalStore(cfg.BlobDir)
		if err != nil {
			log.Fatalf("Failed to open blob directory: %v", err)
		}
		blobs = local
		slog.Info("Blob store ready", "backend", "local", "dir", cfg.BlobDir)
	}

	// Operational record store
	var records recordstore.Store
	switch cfg.RecordBackend {
	case "mongo":
		mongo, err := recordstore.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			_ = mongo.Close(context.Background())
		}()
		records = mongo
		slog.Info("Record store ready", "backend", "mongo", "database", cfg.MongoDatabase)
	default:
		sqlite, err := recordstore.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer func() {
			_ = sqlite.Close()
		}()
		records = sqlite
		slog.Info("Record store ready", "backend", "sqlite", "path", cfg.DBPath)
	}

	// Vector index backend
	var backend index.Backend
	switch cfg.VectorBackend {
	case "qdrant":
		qdrant, err := index.NewQdrantBackend(ctx, cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorSize)
		if err != nil {
			log.Fatalf("Failed to connect to Qdrant: %v", err)
		}
		backend = qdrant
		slog.Info("Vector backend ready", "backend", "qdrant", "collection", cfg.QdrantCollection)
	default:
		backend = index.NewMemoryBackend()
		slog.Info("Vector backend ready", "backend", "memory")
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.VectorSize)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)

	indexService := index.NewService(embedder, backend)

	history := conversation.NewHistory(cfg.HistoryLimit)
	engine := conversation.NewEngine(llmClient, indexService, history, cfg.RetrievalK)

	ingestService, err := service.NewIngestService(blobs, loader.NewChain(), indexService, cfg.IngestWorkers, service.IngestConfig{
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		MaxCorpusChunks:  cfg.MaxCorpusChunks,
		MaxRecordsPerDoc: cfg.MaxRecordsPerDoc,
		RebuildOnReload:  cfg.IndexMode == "rebuild",
	})
	if err != nil {
		log.Fatalf("Failed to create ingest service: %v", err)
	}
	defer ingestService.Close()

	chatService := service.NewChatService(engine, records)
	adminService := service.NewAdminService(records, indexService)

	router := http.NewRouter(&http.Deps{
		ChatService:  chatService,
		IngestSvc:    ingestService,
		AdminService: adminService,
		Records:      records,
	})

	// Index the stored documents in the background so the server answers
	// immediately; until the reload finishes answers are index-free.
	go func() {
		report, err := ingestService.ReloadAll(context.Background())
		if err != nil {
			slog.Error("Initial document reload failed", "error", err)
			return
		}
		slog.Info("Initial document reload finished",
			"processed", report.Processed, "skipped", report.Skipped,
			"failed", len(report.Failed), "truncated", report.Truncated)
	}()

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting API server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(stopCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
