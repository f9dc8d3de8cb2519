package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/medfeed/internal/types"
)

// MongoStorage upserts articles into a MongoDB collection. An article is
// identified by its source URL and title, so rescraping the same page
// refreshes the stored copy instead of duplicating it.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects to MongoDB and verifies the connection.
func NewMongoStorage(uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(ctx context.Context, articles []*types.Article) error {
	if len(articles) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	models := make([]mongo.WriteModel, len(articles))
	for i, a := range articles {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "source_url", Value: a.SourceURL}, {Key: "title", Value: a.Title}}).
			SetReplacement(articleDoc(a)).
			SetUpsert(true)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.count += len(articles)
	s.logger.Debug("articles stored in mongodb",
		"upserted", res.UpsertedCount,
		"modified", res.ModifiedCount,
		"total", s.count,
	)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_articles", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func articleDoc(a *types.Article) bson.D {
	return bson.D{
		{Key: "article_id", Value: a.ID.String()},
		{Key: "title", Value: a.Title},
		{Key: "content", Value: a.Content},
		{Key: "keywords", Value: a.Keywords},
		{Key: "source_name", Value: a.SourceName},
		{Key: "source_url", Value: a.SourceURL},
		{Key: "category", Value: a.Categories},
		{Key: "language", Value: a.Language},
		{Key: "timestamp", Value: a.RetrievedAt},
		{Key: "post", Value: a.Post},
	}
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes articles to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Store writes to every backend and reports all failures.
func (s *MultiStorage) Store(ctx context.Context, articles []*types.Article) error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Store(ctx, articles); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MultiStorage) Close() error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
