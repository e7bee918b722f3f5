// Package wire 提供依赖装配
package wire

import (
	"context"
	"fmt"

	"future-self-api/internal/application/billing"
	"future-self-api/internal/application/identity"
	"future-self-api/internal/application/questionnaire"
	"future-self-api/internal/application/story"
	"future-self-api/internal/application/task"
	"future-self-api/internal/config"
	"future-self-api/internal/infrastructure/auth"
	infrabilling "future-self-api/internal/infrastructure/billing"
	"future-self-api/internal/infrastructure/llm"
	"future-self-api/internal/infrastructure/persistence/postgres"
	"future-self-api/internal/infrastructure/persistence/redis"
	"future-self-api/internal/interfaces/http/handler"
	"future-self-api/internal/interfaces/http/router"
	"future-self-api/pkg/logger"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	// PostgreSQL
	PgClient         *postgres.Client
	TxManager        *postgres.TxManager
	ResponseRepo     *postgres.ResponseRecordRepository
	StoryRepo        *postgres.StoryRepository
	ProfileRepo      *postgres.ProfileRepository
	SubscriptionRepo *postgres.SubscriptionRepository
	TaskRepo         *postgres.TaskRepository

	// Redis
	RedisClient     *redis.Client
	Cache           *redis.Cache
	RateLimiter     *redis.RateLimiter
	DraftStore      *redis.DraftStore
	CachedStoryRepo *redis.CachedStoryRepository
}

// App 应用依赖容器
type App struct {
	Data   *DataLayer
	Router *router.Router
}

// InitializeDataLayer 初始化数据层
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	if err := pgClient.AutoMigrate(); err != nil {
		_ = pgClient.Close()
		return nil, nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		_ = pgClient.Close()
		return nil, nil, fmt.Errorf("failed to init redis: %w", err)
	}

	cache := redis.NewCache(redisClient)
	storyRepo := postgres.NewStoryRepository(pgClient)

	data := &DataLayer{
		PgClient:         pgClient,
		TxManager:        postgres.NewTxManager(pgClient),
		ResponseRepo:     postgres.NewResponseRecordRepository(pgClient),
		StoryRepo:        storyRepo,
		ProfileRepo:      postgres.NewProfileRepository(pgClient),
		SubscriptionRepo: postgres.NewSubscriptionRepository(pgClient),
		TaskRepo:         postgres.NewTaskRepository(pgClient),
		RedisClient:      redisClient,
		Cache:            cache,
		RateLimiter:      redis.NewRateLimiter(redisClient),
		DraftStore:       redis.NewDraftStore(redisClient, cfg.Questionnaire.DraftTTL),
		CachedStoryRepo:  redis.NewCachedStoryRepository(storyRepo, cache),
	}

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logger.Error(ctx, "failed to close redis client", err)
		}
		if err := pgClient.Close(); err != nil {
			logger.Error(ctx, "failed to close postgres client", err)
		}
	}

	return data, cleanup, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	data, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// 应用服务
	questionnaireSvc := questionnaire.NewService(data.ResponseRepo, data.DraftStore)
	reconciler := identity.NewReconciler(
		auth.NewGoTrueVerifier(&cfg.Auth),
		data.ResponseRepo,
		data.ProfileRepo,
	)
	generator := story.NewGenerator(
		llm.NewEinoFactory(cfg),
		cfg,
		data.ResponseRepo,
		data.CachedStoryRepo,
		data.ProfileRepo,
	)
	billingSvc := billing.NewService(
		infrabilling.NewStripeGateway(&cfg.Billing),
		infrabilling.NewStripeEventParser(&cfg.Billing),
		cfg,
		data.SubscriptionRepo,
		data.TaskRepo,
		data.CachedStoryRepo,
		data.ProfileRepo,
	)
	taskSvc := task.NewService(data.TaskRepo, data.TxManager)

	// HTTP 层
	handlers := router.Handlers{
		Health:        handler.NewHealthHandler(data.PgClient, data.RedisClient),
		Questionnaire: handler.NewQuestionnaireHandler(questionnaireSvc, cfg),
		Confirm:       handler.NewConfirmHandler(reconciler, cfg),
		Story:         handler.NewStoryHandler(generator),
		Billing:       handler.NewBillingHandler(billingSvc),
		Task:          handler.NewTaskHandler(taskSvc),
	}

	app := &App{
		Data:   data,
		Router: router.New(cfg, data.RateLimiter, handlers),
	}

	return app, cleanup, nil
}
