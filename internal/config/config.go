package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	// Blob store backend: "gcs" or "local".
	BlobBackend string
	GCSBucket   string
	GCSPrefix   string
	BlobDir     string

	// Record store backend: "mongo" or "sqlite".
	RecordBackend string
	MongoURI      string
	MongoDatabase string
	DBPath        string

	// Vector index backend: "memory" or "qdrant".
	VectorBackend    string
	QdrantURL        string
	QdrantCollection string

	EmbeddingBaseURL string
	EmbeddingModel   string
	EmbeddingAPIKey  string
	VectorSize       int

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	ChunkSize        int
	ChunkOverlap     int
	MaxCorpusChunks  int
	MaxRecordsPerDoc int
	RetrievalK       int
	HistoryLimit     int
	IngestWorkers    int

	// IndexMode selects "merge" (incremental) or "rebuild" (full reindex on reload).
	IndexMode string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded
// automatically. Environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env at the project root (where go.mod lives).
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:   getEnv("API_PORT", "8000"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		BlobBackend: getEnv("BLOB_BACKEND", "local"),
		GCSBucket:   getEnv("GCS_BUCKET", ""),
		GCSPrefix:   getEnv("GCS_PREFIX", "documents/"),
		BlobDir:     getEnv("BLOB_DIR", "./data/documents"),

		RecordBackend: getEnv("RECORD_BACKEND", "sqlite"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "careassist"),
		DBPath:        getEnv("DB_PATH", "./data/careassist.db"),

		VectorBackend:    getEnv("VECTOR_BACKEND", "memory"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "documents"),

		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", "dummy-key"),

		LLMBaseURL: getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModel:   getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMAPIKey:  getEnv("LLM_API_KEY", "dummy-key"),

		IndexMode: getEnv("INDEX_MODE", "merge"),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	intFields := []struct {
		key string
		def int
		dst *int
	}{
		{"VECTOR_SIZE", 384, &cfg.VectorSize},
		{"CHUNK_SIZE", 800, &cfg.ChunkSize},
		{"CHUNK_OVERLAP", 100, &cfg.ChunkOverlap},
		{"MAX_CORPUS_CHUNKS", 2000, &cfg.MaxCorpusChunks},
		{"MAX_RECORDS_PER_DOC", 500, &cfg.MaxRecordsPerDoc},
		{"RETRIEVAL_K", 5, &cfg.RetrievalK},
		{"HISTORY_LIMIT", 20, &cfg.HistoryLimit},
		{"INGEST_WORKERS", 4, &cfg.IngestWorkers},
	}
	for _, f := range intFields {
		v, err := getEnvInt(f.key, f.def)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.IngestWorkers <= 0 {
		return nil, fmt.Errorf("INGEST_WORKERS must be greater than 0")
	}

	switch cfg.BlobBackend {
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required when BLOB_BACKEND=gcs")
		}
	case "local":
		if err := os.MkdirAll(cfg.BlobDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("BLOB_BACKEND must be \"gcs\" or \"local\", got %q", cfg.BlobBackend)
	}

	switch cfg.RecordBackend {
	case "mongo":
		// URI is validated on connect.
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("RECORD_BACKEND must be \"mongo\" or \"sqlite\", got %q", cfg.RecordBackend)
	}

	if cfg.VectorBackend != "memory" && cfg.VectorBackend != "qdrant" {
		return nil, fmt.Errorf("VECTOR_BACKEND must be \"memory\" or \"qdrant\", got %q", cfg.VectorBackend)
	}
	if cfg.IndexMode != "merge" && cfg.IndexMode != "rebuild" {
		return nil, fmt.Errorf("INDEX_MODE must be \"merge\" or \"rebuild\", got %q", cfg.IndexMode)
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
