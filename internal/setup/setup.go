// Package setup builds the model client, extractor and store from
// configuration. The server reads its Config from the environment, the CLI
// from viper.
package setup

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/argmap/internal/storage"
	"github.com/OFFIS-RIT/argmap/internal/util"
	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/ai/memo"
	oai "github.com/OFFIS-RIT/argmap/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/argmap/pkg/ai/openai"
	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/cache"
	"github.com/OFFIS-RIT/argmap/pkg/loader"
	ioloader "github.com/OFFIS-RIT/argmap/pkg/loader/io"
	"github.com/OFFIS-RIT/argmap/pkg/loader/web"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/store"
	"github.com/OFFIS-RIT/argmap/pkg/store/base"
	"github.com/OFFIS-RIT/argmap/pkg/store/fs"
	pgstore "github.com/OFFIS-RIT/argmap/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultCacheDir = ".cache/llm"
	DefaultStoreDir = "data"

	memoryCacheTTL = 30 * time.Minute
	fetchTimeout   = 30 * time.Second
)

type Config struct {
	Adapter  string // "openai" (default) or "ollama"
	ChatURL  string
	Model    string
	APIKey   string
	Project  string
	Location string

	CacheEnabled bool
	CacheDir     string

	ParallelRequests int64

	StoreBackend string // "fs" (default), "s3" or "postgres"
	StoreDir     string
	StorePrefix  string
	HashLength   int

	S3Bucket string
	S3       storage.S3Params

	DatabaseURL string

	StrictGraph bool
}

// ConfigFromEnv reads the Config from environment variables.
func ConfigFromEnv() Config {
	apiKey := util.GetEnv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = util.GetEnv("AI_API_KEY")
	}

	return Config{
		Adapter:  util.GetEnvString("AI_ADAPTER", "openai"),
		ChatURL:  util.GetEnv("AI_CHAT_URL"),
		Model:    util.GetEnv("LLM_MODEL"),
		APIKey:   apiKey,
		Project:  util.GetEnv("GOOGLE_CLOUD_PROJECT"),
		Location: util.GetEnvString("GOOGLE_CLOUD_LOCATION", ai.DefaultLocation),

		CacheEnabled: util.HasEnv("CACHE_LLM"),
		CacheDir:     util.GetEnvString("LLM_CACHE_DIR", DefaultCacheDir),

		ParallelRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 0)),

		StoreBackend: util.GetEnvString("STORE_BACKEND", "fs"),
		StoreDir:     util.GetEnvString("STORE_DIR", DefaultStoreDir),
		StorePrefix:  util.GetEnv("STORE_PREFIX"),
		HashLength:   int(util.GetEnvNumeric("STORE_HASH_LENGTH", store.DefaultHashLength)),

		S3Bucket: util.GetEnv("AWS_BUCKET"),
		S3: storage.S3Params{
			Region:    util.GetEnv("AWS_REGION"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
		},

		DatabaseURL: util.GetEnv("DATABASE_URL"),

		StrictGraph: util.GetEnvBool("EXTRACT_STRICT_GRAPH", false),
	}
}

type modelNamer interface {
	Model() string
}

// NewModelClient creates the configured adapter and wraps it in the
// memoizing client when caching is enabled.
func NewModelClient(cfg Config) (ai.ModelClient, error) {
	var (
		client ai.ModelClient
		named  modelNamer
	)

	switch cfg.Adapter {
	case "ollama":
		c, err := oai.NewOllamaClient(oai.NewOllamaClientParams{
			Model:                 cfg.Model,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.APIKey,
			MaxConcurrentRequests: cfg.ParallelRequests,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		client, named = c, c
	case "", "openai":
		c := gai.NewOpenAIClient(gai.NewOpenAIClientParams{
			BaseURL:               cfg.ChatURL,
			Model:                 cfg.Model,
			APIKey:                cfg.APIKey,
			Project:               cfg.Project,
			Location:              cfg.Location,
			MaxConcurrentRequests: cfg.ParallelRequests,
		})
		client, named = c, c
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", cfg.Adapter)
	}

	if !cfg.CacheEnabled {
		return client, nil
	}

	logger.Info("LLM cache enabled", "dir", cfg.CacheDir)
	c := cache.NewLayeredCache(memoryCacheTTL, cfg.CacheDir, 0)
	return memo.NewClient(client, c, named.Model()), nil
}

// NewExtractor creates the model client and the extractor on top of it.
func NewExtractor(cfg Config) (*argmap.Extractor, error) {
	client, err := NewModelClient(cfg)
	if err != nil {
		return nil, err
	}
	return argmap.NewExtractor(client, argmap.WithStrictGraph(cfg.StrictGraph)), nil
}

// NewStore opens the configured store. The returned function releases its
// resources.
func NewStore(ctx context.Context, cfg Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "", "fs":
		return fs.NewStore(cfg.StoreDir, base.WithHashLength(cfg.HashLength)), func() {}, nil

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, nil, fmt.Errorf("AWS_BUCKET is required for the s3 store")
		}
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		bucket := storage.NewS3Bucket(client, cfg.S3Bucket, cfg.StorePrefix)
		return base.NewBlobStore(bucket, base.WithHashLength(cfg.HashLength)), func() {}, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return pgstore.NewStore(pool, pgstore.WithHashLength(cfg.HashLength)), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

// NewTextLoader returns the loader for CLI input: local files and web pages.
func NewTextLoader() loader.TextLoader {
	return loader.Router{
		Files: ioloader.NewIOTextLoader(),
		Web:   web.NewWebTextLoader(&http.Client{Timeout: fetchTimeout}),
	}
}
