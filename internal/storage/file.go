package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/medfeed/internal/types"
)

// --- JSON Storage ---

// JSONStorage buffers articles and writes them as one JSON array on Close.
type JSONStorage struct {
	path     string
	articles []*types.Article
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewJSONStorage creates a new JSON file storage.
func NewJSONStorage(outputPath string, logger *slog.Logger) (*JSONStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &JSONStorage{
		path:     outputPath,
		articles: make([]*types.Article, 0),
		logger:   logger.With("component", "json_storage"),
	}, nil
}

func (s *JSONStorage) Name() string { return "json" }

func (s *JSONStorage) Store(_ context.Context, articles []*types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append(s.articles, articles...)
	s.logger.Debug("articles buffered", "count", len(articles), "total", len(s.articles))
	return nil
}

func (s *JSONStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Create(s.path)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.articles); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("encode JSON: %w", err)}
	}

	s.logger.Info("JSON written", "path", s.path, "articles", len(s.articles))
	return nil
}

// --- JSONL Storage ---

// JSONLStorage streams one article per line.
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage creates a JSONL file storage. Existing files are appended to.
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		enc:    enc,
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(_ context.Context, articles []*types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range articles {
		if err := s.enc.Encode(a); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("encode JSONL: %w", err)}
		}
		s.count++
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Info("JSONL written", "path", s.path, "articles", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// --- CSV Storage ---

// csvColumns is the fixed column order of CSV exports.
var csvColumns = []string{
	"id", "timestamp", "source_name", "source_url", "language",
	"category", "title", "content", "keywords", "post",
}

// CSVStorage writes articles as CSV rows.
type CSVStorage struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVStorage creates a new CSV file storage and writes the header row.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}

	return &CSVStorage{
		path:   outputPath,
		file:   f,
		writer: w,
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(_ context.Context, articles []*types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range articles {
		flat := a.ToFlatMap()
		row := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			row[i] = flat[col]
		}
		if err := s.writer.Write(row); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("write CSV row: %w", err)}
		}
		s.count++
	}

	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVStorage) Close() error {
	s.logger.Info("CSV written", "path", s.path, "articles", s.count)
	s.writer.Flush()
	return s.file.Close()
}
