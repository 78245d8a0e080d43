package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"keystone-backend/config"
	"keystone-backend/models"
	"keystone-backend/repository"
	"keystone-backend/service"
	"keystone-backend/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ingest loads a corpus document (a JSON array of records), embeds each
// record's text, and inserts the rows into the records table. Run it once per
// corpus document:
//
//	go run ./cmd/ingest -doc legal.json -kind legal
//	go run ./cmd/ingest -push ./data/principles.json -kind principle
//
// With -push, the local file is first uploaded to the configured corpus
// storage backend and ingestion reads it back from there.
func main() {
	docName := flag.String("doc", "", "corpus document name in corpus storage")
	pushPath := flag.String("push", "", "local corpus JSON to upload to corpus storage, then ingest")
	kindFlag := flag.String("kind", "", "record kind: legal or principle")
	flag.Parse()

	if (*docName == "" && *pushPath == "") || *kindFlag == "" {
		flag.Usage()
		os.Exit(1)
	}

	kind := models.RecordKind(*kindFlag)
	if kind != models.KindLegal && kind != models.KindPrinciple {
		log.Fatalf("Invalid kind %q: must be legal or principle", *kindFlag)
	}

	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	corpusStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize corpus storage: %v", err)
	}

	ctx := context.Background()

	doc := *docName
	if *pushPath != "" {
		f, err := os.Open(*pushPath)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", *pushPath, err)
		}
		storagePath, err := corpusStorage.Upload(ctx, uuid.New(), filepath.Base(*pushPath), f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to upload %s to corpus storage: %v", *pushPath, err)
		}
		log.Printf("Uploaded %s to corpus storage at %s", *pushPath, storagePath)
		doc = storagePath
	}

	rc, err := corpusStorage.Download(ctx, doc)
	if err != nil {
		log.Fatalf("Failed to download corpus document %s: %v", doc, err)
	}
	defer rc.Close()

	var records []models.Record
	if err := json.NewDecoder(rc).Decode(&records); err != nil {
		log.Fatalf("Failed to decode corpus document %s: %v", doc, err)
	}
	log.Printf("Loaded %d records from %s", len(records), doc)

	embedder := service.NewGeminiEmbedder(cfg.GeminiAPIKey, "RETRIEVAL_DOCUMENT")
	store := repository.NewPostgresRecordStore(pool, embedder.Embed)

	inserted := 0
	for i, rec := range records {
		if rec.Kind == "" {
			rec.Kind = kind
		}
		if rec.Kind != kind {
			log.Printf("Warning: record %d has kind %q, expected %q, skipping", i, rec.Kind, kind)
			continue
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.Weight == 0 {
			rec.Weight = 1.0
		}

		embedding, err := embedder.Embed(ctx, rec.Text)
		if err != nil {
			log.Fatalf("Failed to embed record %d (%s): %v", i, rec.SourceReference, err)
		}

		if err := store.Insert(ctx, rec, embedding); err != nil {
			log.Fatalf("Failed to insert record %d (%s): %v", i, rec.SourceReference, err)
		}
		inserted++

		if (i+1)%25 == 0 {
			log.Printf("Progress: %d/%d records", i+1, len(records))
		}

		// Stay under the embedding API rate limit
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Printf("\n✅ Ingested %d %s records from %s\n", inserted, kind, doc)
}
