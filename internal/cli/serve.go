package cli

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

	"github.com/clearsight-ai/docchat/internal/api/handlers"
	"github.com/clearsight-ai/docchat/internal/config"
	"github.com/clearsight-ai/docchat/internal/database"
	"github.com/clearsight-ai/docchat/internal/extract"
	"github.com/clearsight-ai/docchat/internal/jobs"
	"github.com/clearsight-ai/docchat/internal/openai"
	"github.com/clearsight-ai/docchat/internal/repository"
	"github.com/clearsight-ai/docchat/internal/server"
	"github.com/clearsight-ai/docchat/internal/service"
	"github.com/clearsight-ai/docchat/internal/storage"
	"github.com/clearsight-ai/docchat/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openaiapi "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docchat API server and the background ingest worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not start the background ingest worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// 10% trace sampling outside development.
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
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

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	jobRepo := repository.NewIngestJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("DOCCHAT_OPENAI_API_KEY is required")
	}
	aiClient := openai.NewClient(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      openaiapi.EmbeddingModel(cfg.EmbeddingModel),
		ChatModel:           cfg.ChatModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	chunker, err := buildChunker(cfg)
	if err != nil {
		return err
	}

	retrievalSvc := service.NewRetrievalService(aiClient, chunkRepo, cfg.TopK)
	documentSvc := service.NewDocumentService(
		docRepo, jobRepo, txRunner, blobs, extract.New(), chunker, retrievalSvc, cfg.MaxFileBytes,
	)
	chatSvc := service.NewChatService(sessionRepo, retrievalSvc, &completionAdapter{client: aiClient})

	var ingestWorker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		processor := jobs.NewIngestWorker(jobRepo, documentSvc)
		ingestWorker = jobs.NewWorker(processor, cfg.WorkerPollInterval)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(documentSvc, cfg.MaxFileBytes),
		SessionHandler:  handlers.NewSessionHandler(chatSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		SearchHandler:   handlers.NewSearchHandler(retrievalSvc),
		HealthHandler:   handlers.NewHealthHandler(pool),
		MaxBodyBytes:    1 * 1024 * 1024,
	})

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

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildBlobStore picks S3-compatible storage when configured, local disk
// otherwise.
func buildBlobStore(ctx context.Context, cfg *config.Config) (service.BlobStore, error) {
	if cfg.HasS3() {
		store, err := storage.NewS3Store(ctx, storage.S3StoreConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		return store, nil
	}

	store, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}
	log.Printf("storing uploads under '%s'", cfg.UploadDir)
	return store, nil
}

// buildChunker sizes chunks by model tokens, falling back to a character
// heuristic when the tokenizer cannot be loaded.
func buildChunker(cfg *config.Config) (*service.Chunker, error) {
	chunkCfg := service.ChunkConfig{
		MaxSize: cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	}

	var sizer service.TextSizer
	tokenSizer, err := service.NewTokenSizer()
	if err != nil {
		log.Printf("tokenizer unavailable, sizing chunks by characters: %v", err)
		sizer = service.NewCharSizer(cfg.CharsPerToken)
	} else {
		sizer = tokenSizer
	}

	return service.NewChunker(chunkCfg, sizer)
}

// completionAdapter bridges the OpenAI client to the chat service.
type completionAdapter struct {
	client *openai.Client
}

func (a *completionAdapter) Complete(ctx context.Context, turns []service.ChatTurn) (*service.ChatCompletion, error) {
	messages := make([]openai.ChatMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatMessage{Role: t.Role, Content: t.Content})
	}

	completion, err := a.client.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &service.ChatCompletion{
		Content:     completion.Content,
		Model:       completion.Model,
		TotalTokens: completion.Usage.TotalTokens,
	}, nil
}

func runMigrations(databaseURL string) error {
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
