// Package bootstrap wires the application graph for each run mode.
package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"inboxpilot/adapter/out/persistence"
	"inboxpilot/adapter/out/provider"
	"inboxpilot/adapter/out/queue"
	"inboxpilot/config"
	"inboxpilot/core/llm"
	"inboxpilot/core/port/out"
	"inboxpilot/core/service/classify"
	"inboxpilot/core/service/email"
	"inboxpilot/core/service/pipeline"
	"inboxpilot/core/service/scan"
	"inboxpilot/infra/database"
	"inboxpilot/pkg/cache"
	"inboxpilot/pkg/logger"
)

// Dependencies is the shared application graph. Both the API and the queue
// consumer are built from the same instance so they agree on stores and keys.
type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Outbound adapters
	EmailRepo      out.EmailRepository
	ProgressRepo   out.ProgressRepository
	TokenStore     out.TokenStore
	WorkQueue      out.WorkQueue
	ProcessedStore out.ProcessedStore
	GmailProvider  *provider.GmailAdapter

	// Core services
	LLMClient    *llm.Client
	Classifier   *classify.Classifier
	Normalizer   *scan.Normalizer
	Orchestrator *pipeline.Orchestrator
	EmailService *email.Service
	SyncService  *email.SyncService
}

// NewDependencies builds the full graph. The returned cleanup closes every
// connection pool; callers run it once on shutdown.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := logger.Default()

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		db.Close()
		sqlDB.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("error closing sqlx pool")
		}
		db.Close()
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Warn("error closing redis client")
		}
	}

	redisCache := cache.NewRedisCache(redisClient)

	emailRepo := persistence.NewEmailAdapter(sqlDB)
	progressRepo := persistence.NewProgressAdapter(sqlDB)
	tokenStore := persistence.NewTokenStore(redisCache)
	workQueue := queue.NewRedisQueue(redisClient)
	processedStore := queue.NewProcessedStore(redisCache, cfg.ProcessedTTL)

	gmailProvider := provider.NewGmailAdapter(&provider.GmailConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		RecencyDays:  cfg.ScanRecencyDays,
		DetailDelay:  cfg.DetailFetchDelay,
	}, log)

	llmClient := llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})

	classifier := classify.NewClassifier(llmClient, log,
		classify.WithBatchSize(cfg.ClassifyBatch),
		classify.WithParallel(cfg.ClassifyParallel),
	)
	normalizer := scan.NewNormalizer()

	orchestrator := pipeline.NewOrchestrator(&pipeline.Config{
		Tokens:     tokenStore,
		Provider:   gmailProvider,
		Normalizer: normalizer,
		Classifier: classifier,
		Repo:       emailRepo,
		Progress:   progressRepo,
		Queue:      workQueue,
		Logger:     log,
		MaxResults: cfg.ScanMaxResults,
	})

	emailService := email.NewService(emailRepo, processedStore, log)
	syncService := email.NewSyncService(emailRepo, processedStore, log)

	return &Dependencies{
		Config:         cfg,
		DB:             db,
		SQLDB:          sqlDB,
		Redis:          redisClient,
		EmailRepo:      emailRepo,
		ProgressRepo:   progressRepo,
		TokenStore:     tokenStore,
		WorkQueue:      workQueue,
		ProcessedStore: processedStore,
		GmailProvider:  gmailProvider,
		LLMClient:      llmClient,
		Classifier:     classifier,
		Normalizer:     normalizer,
		Orchestrator:   orchestrator,
		EmailService:   emailService,
		SyncService:    syncService,
	}, cleanup, nil
}
