package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/graftdb/graft/internal/domain/ports"
	"github.com/graftdb/graft/internal/domain/services"
	"github.com/graftdb/graft/internal/infrastructure/blob/fsblob"
	"github.com/graftdb/graft/internal/infrastructure/blob/memblob"
	"github.com/graftdb/graft/internal/infrastructure/config"
	"github.com/graftdb/graft/internal/infrastructure/store/httpapi"
	"github.com/graftdb/graft/internal/infrastructure/store/memory"
	"github.com/graftdb/graft/internal/infrastructure/store/sqlite"
)

// Deps holds the wired dependencies for one command invocation.
type Deps struct {
	Config     *config.Config
	Store      ports.Store
	Durability *services.Durability
}

// withStore loads config, opens the configured provider for the active
// namespace and calls fn. The store is closed on return. When WAL is
// enabled in config the store is wrapped so every mutation is journaled.
func withStore(fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	namespace := cfg.Namespace
	if globalNamespace != "" {
		namespace = globalNamespace
	}

	store, err := openStore(cfg, namespace)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := openBlobs(cfg)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	durability := services.NewDurability(store, blobs, namespace)

	if cfg.Durability.WALEnabled {
		store = services.NewJournaled(store, durability)
	}

	return fn(&Deps{Config: cfg, Store: store, Durability: durability})
}

// openBlobs opens the blob store backing snapshots and the WAL. An empty
// blob root selects the in-memory store, which keeps nothing past the
// process.
func openBlobs(cfg *config.Config) (ports.BlobStore, error) {
	if cfg.Blob.Root == "" {
		return memblob.New(), nil
	}
	return fsblob.New(cfg.Blob.Root)
}

// openStore opens the provider named in config.
func openStore(cfg *config.Config, namespace string) (ports.Store, error) {
	switch cfg.Provider {
	case config.ProviderMemory:
		return memory.Open(namespace), nil
	case config.ProviderSQLite:
		repo, err := sqlite.Open(cfg.SQLite.Path, namespace)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return repo, nil
	case config.ProviderHTTP:
		client, err := httpapi.New(cfg.HTTP.BaseURL, namespace)
		if err != nil {
			return nil, fmt.Errorf("creating http client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// parseData decodes a --data flag value as a JSON object.
func parseData(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("parsing --data: %w", err)
	}
	return data, nil
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
