package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/types"
)

// Storage is the interface for all article storage backends.
type Storage interface {
	// Store persists a batch of articles.
	Store(ctx context.Context, articles []*types.Article) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New builds the backend named by cfg.Type. When mirrors are configured the
// result fans every batch out to the primary backend and each mirror.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	if len(cfg.Mirrors) == 0 {
		return newBackend(cfg.Type, cfg, logger)
	}

	backends := make([]Storage, 0, len(cfg.Mirrors)+1)
	for _, typ := range append([]string{cfg.Type}, cfg.Mirrors...) {
		b, err := newBackend(typ, cfg, logger)
		if err != nil {
			for _, opened := range backends {
				opened.Close()
			}
			return nil, err
		}
		backends = append(backends, b)
	}
	return NewMultiStorage(backends, logger), nil
}

func newBackend(storageType string, cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch storageType {
	case "json", "jsonl", "csv":
		return NewFileStorage(storageType, cfg.OutputPath, logger)
	case "mongodb":
		return NewMongoStorage(cfg.MongoURI, cfg.Database, cfg.Collection, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// NewFileStorage creates the appropriate file-based storage by type.
func NewFileStorage(storageType, outputDir string, logger *slog.Logger) (Storage, error) {
	switch storageType {
	case "json":
		return NewJSONStorage(filepath.Join(outputDir, "articles.json"), logger)
	case "jsonl":
		return NewJSONLStorage(filepath.Join(outputDir, "articles.jsonl"), logger)
	case "csv":
		return NewCSVStorage(filepath.Join(outputDir, "articles.csv"), logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
