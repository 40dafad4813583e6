package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"realtyassist/internal/avatar"
	"realtyassist/internal/config"
	"realtyassist/internal/handler"
	"realtyassist/internal/logger"
	"realtyassist/internal/middleware"
	"realtyassist/internal/provider"
	"realtyassist/internal/repository"
	"realtyassist/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	migrationTimeout = 30 * time.Second
	warmTimeout      = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer appLog.Sync()

	appLog.Info("starting realty assistant", map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})

	gin.SetMode(cfg.Server.GinMode)

	// Postgres is optional unless it is the listings provider
	var repo *repository.PostgresRepository
	if cfg.PostgreSQL.Configured() {
		repo, err = repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			fatal(appLog, "failed to connect to database", err)
		}
		defer repo.Close()

		ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
		err = repo.Migrate(ctx)
		cancel()
		if err != nil {
			fatal(appLog, "failed to migrate database", err)
		}
		appLog.Info("connected to PostgreSQL", nil)
	}

	var llm service.LLMClient
	if cfg.OpenAI.Enabled {
		llm = service.NewOpenAIClient(&cfg.OpenAI, appLog)
		appLog.Info("OpenAI client initialized", map[string]interface{}{
			"api_base":        cfg.OpenAI.APIBase,
			"chat_model":      cfg.OpenAI.ChatModel,
			"embedding_model": cfg.OpenAI.EmbeddingModel,
			"ai_extraction":   cfg.OpenAI.AIExtraction,
			"extract_timeout": cfg.OpenAI.ExtractionTimeout.String(),
		})
	} else {
		appLog.Warn("OpenAI is disabled, replies use listing summaries and rule based extraction", nil)
	}

	listingsProvider, err := buildProvider(cfg, repo, appLog)
	if err != nil {
		fatal(appLog, "failed to configure listings provider", err)
	}

	var warmer *cron.Cron
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		cached := provider.NewCachedProvider(listingsProvider, rdb, cfg.Redis.ListingsTTL, appLog)
		listingsProvider = cached
		appLog.Info("listings cache enabled", map[string]interface{}{"addr": cfg.Redis.Address, "ttl": cfg.Redis.ListingsTTL.String()})

		if cfg.Redis.WarmSpec != "off" && cached.Name() != config.ProviderStatic {
			warmer, err = provider.ScheduleWarm(cached, cfg.Redis.WarmSpec, warmTimeout, provider.WarmFilters())
			if err != nil {
				fatal(appLog, "failed to schedule cache warming", err)
			}
		}
	}

	listingOpts := []service.ListingsOption{}
	if cfg.Listings.StaticFallback && cfg.Listings.Provider != config.ProviderStatic {
		listingOpts = append(listingOpts, service.WithFallback(provider.NewStaticProvider(cfg.Agent)))
	}
	var chatLog service.ChatLogger
	if repo != nil {
		chatLog = repo
		listingOpts = append(listingOpts, service.WithRepository(repo))
		if llm != nil {
			listingOpts = append(listingOpts, service.WithSemanticSearch(llm))
		}
	}

	listingsService := service.NewListingsService(listingsProvider, cfg.Listings.MaxLimit, appLog, listingOpts...)
	chatService := service.NewChatService(
		service.NewIntentParser(llm, &cfg.OpenAI, appLog),
		listingsService,
		service.NewRanker(),
		llm,
		chatLog,
		cfg.Agent,
		cfg.Listings.ChatLimit,
		appLog,
	)

	handlers := handler.Handlers{
		Chat:      handler.NewChatHandler(chatService, appLog),
		Listings:  handler.NewListingsHandler(listingsService, appLog),
		Embedding: handler.NewEmbeddingHandler(listingsService, cfg.OpenAI.EmbeddingDimensions),
		Feedback:  handler.NewFeedbackHandler(listingsService),
	}

	var speechQueue *avatar.Queue
	if cfg.Avatar.Enabled() {
		speechQueue = avatar.NewQueue(avatar.NewHeyGenSpeaker(cfg.Avatar), avatar.Options{
			PerChar:     cfg.Avatar.PerChar,
			MinDuration: cfg.Avatar.MinDuration,
			AwaitReady:  cfg.Avatar.AwaitReady,
		}, appLog)
		handlers.Avatar = handler.NewAvatarHandler(speechQueue)
		appLog.Info("avatar speech queue started", map[string]interface{}{"session_id": cfg.Avatar.SessionID})
	}

	routerOpts := handler.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimiter:    middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, appLog),
		Build:          handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		Log:            appLog,
	}
	if repo != nil {
		routerOpts.Ping = repo.Ping
	}
	router := handler.NewRouter(routerOpts, handlers)

	// Serve static files (frontend)
	// This function is implemented in embed.go (production) or static_dev.go (development)
	setupStaticFiles(router, appLog)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("starting server", map[string]interface{}{
			"addr":     addr,
			"provider": listingsProvider.Name(),
			"avatar":   speechQueue != nil,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(appLog, "failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down server", nil)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if warmer != nil {
		<-warmer.Stop().Done()
	}
	if speechQueue != nil {
		if err := speechQueue.Close(ctx); err != nil {
			appLog.Warn("failed to stop avatar session", map[string]interface{}{"error": err})
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error("server shutdown failed", map[string]interface{}{"error": err})
	}
	appLog.Info("server stopped", nil)
}

// buildProvider returns the configured listings source with metrics
func buildProvider(cfg *config.Config, repo *repository.PostgresRepository, log logger.Logger) (provider.ListingsProvider, error) {
	var p provider.ListingsProvider
	switch cfg.Listings.Provider {
	case config.ProviderStatic:
		p = provider.NewStaticProvider(cfg.Agent)
	case config.ProviderMLS:
		if cfg.MLS.Token == "" {
			log.Warn("MLS_TOKEN is not set, MLS requests will be rejected", nil)
		}
		p = provider.NewMLSProvider(cfg.MLS, log)
	case config.ProviderScrape:
		p = provider.NewScrapeProvider(cfg.Scrape, log)
	case config.ProviderPostgres:
		if repo == nil {
			return nil, errors.New("postgres provider needs a database")
		}
		p = provider.NewPostgresProvider(repo, 0)
	default:
		return nil, fmt.Errorf("unknown listings provider %q", cfg.Listings.Provider)
	}
	return provider.WithMetrics(p), nil
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err})
	_ = log.Sync()
	os.Exit(1)
}
