package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/peptiq-labs/peptiq/internal/api/handlers"
	"github.com/peptiq-labs/peptiq/internal/cache"
	"github.com/peptiq-labs/peptiq/internal/config"
	"github.com/peptiq-labs/peptiq/internal/database"
	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/jobs"
	"github.com/peptiq-labs/peptiq/internal/openai"
	"github.com/peptiq-labs/peptiq/internal/pipeline"
	"github.com/peptiq-labs/peptiq/internal/repository"
	"github.com/peptiq-labs/peptiq/internal/server"
	"github.com/peptiq-labs/peptiq/internal/service"
	"github.com/peptiq-labs/peptiq/internal/telemetry"
	"github.com/peptiq-labs/peptiq/internal/websearch"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the peptiq API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return domain.NewConfigurationError("PEPTIQ_OPENAI_API_KEY is required to serve")
	}

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	peptideRepo := repository.NewPeptideRepository(pool)
	restrictionRepo := repository.NewRestrictionRepository(pool)
	allowedDomainRepo := repository.NewAllowedDomainRepository(pool)
	usageLogRepo := repository.NewUsageLogRepository(pool)

	tier1 := cache.NewMemoryStore()

	var tier2 cache.Store
	if cfg.HasRedis() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisStore, err := cache.NewRedisStore(ctx, rdb)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		tier2 = redisStore
		log.Println("connected to redis")
	}

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)

	var searcher websearch.Searcher
	var fetcher pipeline.PageFetcherInterface
	if cfg.HasTavily() {
		searcher = websearch.NewTavilyClient(cfg.TavilyAPIKey, websearch.WithMaxResults(cfg.MaxPages))
		fetcher = websearch.NewPageFetcher(nil)
	} else {
		log.Println("PEPTIQ_TAVILY_API_KEY not set, web tier disabled")
	}

	settings := func() pipeline.Settings {
		return pipeline.Settings{
			HighThreshold:    cfg.HighThreshold,
			MediumThreshold:  cfg.MediumThreshold,
			LowThreshold:     cfg.LowThreshold,
			Tier1TTL:         cfg.Tier1TTL,
			Tier2TTL:         cfg.Tier2TTL,
			ChunkSize:        cfg.ChunkSize,
			ChunkOverlap:     cfg.ChunkOverlap,
			MaxChunksPerPage: cfg.MaxChunksPerPage,
			MaxPages:         cfg.MaxPages,
			ConfidenceFloor:  cfg.ConfidenceFloor,
			EmbedTimeout:     cfg.EmbedTimeout,
			SearchTimeout:    cfg.SearchTimeout,
			GenerateTimeout:  cfg.GenerateTimeout,
		}
	}

	orchestrator := pipeline.NewOrchestrator(
		settings,
		tier1, tier2,
		openaiClient,
		openaiClient,
		peptideRepo,
		restrictionRepo,
		allowedDomainRepo,
		searcher,
		fetcher,
		usageLogRepo,
	)

	peptideSvc := service.NewPeptideService(peptideRepo, openaiClient)

	routerCfg := server.RouterConfig{
		AskHandler:           handlers.NewAskHandler(orchestrator),
		PeptideHandler:       handlers.NewPeptideHandler(peptideSvc),
		RestrictionHandler:   handlers.NewRestrictionHandler(restrictionRepo),
		AllowedDomainHandler: handlers.NewAllowedDomainHandler(allowedDomainRepo),
		DashboardHandler:     handlers.NewDashboardHandler(usageLogRepo),
		CacheHandler:         handlers.NewCacheHandler(tier1, tier2),
	}

	router := server.NewRouter(routerCfg)

	retention := time.Duration(cfg.UsageRetentionDays) * 24 * time.Hour
	cleanupWorker := jobs.NewWorker(jobs.NewCleanupWorker(usageLogRepo, retention), time.Hour)
	go cleanupWorker.Start(ctx)
	log.Println("usage log cleanup worker started")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	cleanupWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
