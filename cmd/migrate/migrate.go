package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/internal/vectorindex"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  prepare                  - Create tables, collections and indexes for VECTOR_STORE")
		fmt.Println("  delete-document <name>   - Remove every chunk of a stored upload from the index")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Opening a backend runs its schema setup
	index, err := vectorindex.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s index: %v", cfg.VectorStore, err)
	}
	defer index.Close()

	switch command {
	case "prepare":
		if m, ok := index.(*vectorindex.Mongo); ok {
			if err := m.EnsureSearchIndex(ctx); err != nil {
				log.Fatalf("Failed to create search index: %v", err)
			}
		}
		fmt.Printf("%s index %q is ready\n", cfg.VectorStore, cfg.VectorIndexName)

	case "delete-document":
		if len(os.Args) < 3 {
			log.Fatal("delete-document needs the stored file name")
		}
		if err := index.DeleteDocument(ctx, cfg.VectorNamespace, os.Args[2]); err != nil {
			log.Fatalf("Delete failed: %v", err)
		}
		fmt.Printf("Removed chunks of %s from namespace %s\n", os.Args[2], cfg.VectorNamespace)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
