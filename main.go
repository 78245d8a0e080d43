package main

import (
	"context"
	"io"
	"log"

	"keystone-backend/config"
	"keystone-backend/handlers"
	"keystone-backend/repository"
	"keystone-backend/service"
	"keystone-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"
)

func main() {
	cfg := config.Load()

	// Load the rule/taxonomy bundle
	bundle := config.DefaultBundle()
	if cfg.BundlePath != "" {
		loaded, err := config.LoadBundle(cfg.BundlePath)
		if err != nil {
			log.Fatalf("Failed to load rule bundle: %v", err)
		}
		bundle = loaded
	}
	rules := bundle.Compile()
	log.Printf("Rule bundle loaded: %d rules", len(rules))

	// Initialize Gemini client
	if _, err := initGemini(cfg.GeminiAPIKey); err != nil {
		log.Fatal("Failed to initialize Gemini:", err)
	}
	generator := service.NewGeminiGenerator(cfg.GeminiAPIKey)

	// Initialize knowledge stores
	var (
		legalStore     service.RecordStore
		principleStore service.RecordStore
		db             *pgxpool.Pool
	)

	switch cfg.StoreType {
	case "memory":
		legal, principle, err := initMemoryStores(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize memory stores: %v", err)
		}
		legalStore, principleStore = legal, principle

	default:
		pool, err := initPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to initialize Postgres:", err)
		}
		db = pool

		embedder := service.NewGeminiEmbedder(cfg.GeminiAPIKey, "RETRIEVAL_QUERY")
		// Two independent read paths over the same pool: legal failures are
		// fatal to a request, principle failures only drop the overlay.
		legalStore = repository.NewPostgresRecordStore(pool, embedder.Embed)
		principleStore = repository.NewPostgresRecordStore(pool, embedder.Embed)
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize the reasoning engine
	reasonService, err := service.NewReasonService(
		service.ReasonWithLegalStore(legalStore),
		service.ReasonWithPrincipleStore(principleStore),
		service.ReasonWithRules(rules),
		service.ReasonWithGenerate(generator.Generate),
		service.ReasonWithStoreTimeout(cfg.StoreTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to initialize reasoning engine: %v", err)
	}

	// Initialize handlers
	reasonHandler := handlers.NewReasonHandler(reasonService)
	recordHandler := handlers.NewRecordHandler(legalStore, principleStore)

	// Setup Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.POST("/reason", reasonHandler.Reason)
		api.GET("/records/:id", recordHandler.GetRecord)

		// Feedback needs the database; memory mode runs without it
		if db != nil {
			feedbackHandler := handlers.NewFeedbackHandler(repository.NewFeedbackRepository(db))
			api.POST("/feedback", feedbackHandler.CreateFeedback)
			api.GET("/feedback", feedbackHandler.ListFeedback)
		}
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	// Enable pgvector extension
	ctx := context.Background()
	_, err = pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
		log.Println("This may be normal if extension is already installed or requires superuser privileges")
	} else {
		log.Println("pgvector extension enabled")
	}

	log.Println("Postgres connection established with pgvector support")
	return pool, nil
}

func initGemini(apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	log.Println("Gemini client initialized")
	return client, nil
}

// initMemoryStores loads the two corpus JSON documents through the configured
// corpus storage backend into in-process stores.
func initMemoryStores(cfg config.Config) (*repository.MemoryRecordStore, *repository.MemoryRecordStore, error) {
	corpusStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		return nil, nil, err
	}

	ctx := context.Background()
	legal := repository.NewMemoryRecordStore()
	principle := repository.NewMemoryRecordStore()

	load := func(store *repository.MemoryRecordStore, name string) error {
		rc, err := corpusStorage.Download(ctx, name)
		if err != nil {
			log.Printf("Warning: corpus document %s not loaded: %v", name, err)
			return nil
		}
		defer func(rc io.ReadCloser) { _ = rc.Close() }(rc)
		return store.AddFromJSON(rc)
	}

	if err := load(legal, cfg.LegalCorpus); err != nil {
		return nil, nil, err
	}
	if err := load(principle, cfg.PrincipleCorpus); err != nil {
		return nil, nil, err
	}

	log.Println("Memory stores initialized from corpus storage")
	return legal, principle, nil
}
