package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleArticles(t *testing.T) []*types.Article {
	t.Helper()
	src := &types.SourceSpec{
		Name:       "Ya Roditel",
		URL:        "https://www.ya-roditel.ru/parents/base/experts/",
		Categories: []string{"parenting"},
		Language:   "ru",
	}
	content := strings.Repeat("Родителям важно поддерживать ребенка, \"особенно\" в школе. ", 2)
	a1, err := types.NewArticle(src, "Первая статья", content, []string{"родителям", "важно"})
	require.NoError(t, err)
	a2, err := types.NewArticle(src, "Вторая статья", content+" <b>", nil)
	require.NoError(t, err)
	return []*types.Article{a1, a2}
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "articles.json")
	s, err := NewJSONStorage(path, testLogger)
	require.NoError(t, err)

	articles := sampleArticles(t)
	require.NoError(t, s.Store(context.Background(), articles[:1]))
	require.NoError(t, s.Store(context.Background(), articles[1:]))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Первая статья", got[0]["title"])
	assert.Equal(t, "Ya Roditel", got[0]["source_name"])
	assert.Equal(t, []any{"parenting"}, got[0]["category"])
	assert.Equal(t, []any{}, got[1]["keywords"])
	assert.Contains(t, string(data), "<b>", "HTML must not be escaped")
}

func TestJSONLStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	articles := sampleArticles(t)

	for _, a := range articles {
		s, err := NewJSONLStorage(path, testLogger)
		require.NoError(t, err)
		require.NoError(t, s.Store(context.Background(), []*types.Article{a}))
		require.NoError(t, s.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var titles []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var a types.Article
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		titles = append(titles, a.Title)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"Первая статья", "Вторая статья"}, titles)
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	s, err := NewCSVStorage(path, testLogger)
	require.NoError(t, err)

	articles := sampleArticles(t)
	require.NoError(t, s.Store(context.Background(), articles))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvColumns, rows[0])

	col := func(name string) int {
		for i, c := range csvColumns {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %q", name)
		return -1
	}
	assert.Equal(t, "Первая статья", rows[1][col("title")])
	assert.Equal(t, "родителям,важно", rows[1][col("keywords")])
	assert.Equal(t, articles[0].ID.String(), rows[1][col("id")])
	assert.Equal(t, articles[0].Content, rows[1][col("content")])
}

func TestNewFileStorage(t *testing.T) {
	dir := t.TempDir()
	for _, typ := range []string{"json", "jsonl", "csv"} {
		s, err := NewFileStorage(typ, dir, testLogger)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, s.Name())
		require.NoError(t, s.Close())
		assert.FileExists(t, filepath.Join(dir, "articles."+typ))
	}

	_, err := NewFileStorage("xml", dir, testLogger)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Storage
	cfg.OutputPath = t.TempDir()
	s, err := New(&cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "jsonl", s.Name())
	require.NoError(t, s.Close())

	cfg.Type = "parquet"
	_, err = New(&cfg, testLogger)
	assert.Error(t, err)
}

func TestNewFromConfigWithMirrors(t *testing.T) {
	cfg := config.DefaultConfig().Storage
	cfg.OutputPath = t.TempDir()
	cfg.Mirrors = []string{"csv"}

	s, err := New(&cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "multi", s.Name())
	require.NoError(t, s.Store(context.Background(), sampleArticles(t)))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(cfg.OutputPath, "articles.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	f, err := os.Open(filepath.Join(cfg.OutputPath, "articles.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus two articles")

	cfg.Mirrors = []string{"parquet"}
	_, err = New(&cfg, testLogger)
	assert.Error(t, err)
}

type failingStorage struct{ closed bool }

func (f *failingStorage) Store(context.Context, []*types.Article) error {
	return &types.StorageError{Backend: "failing", Err: errors.New("disk full")}
}
func (f *failingStorage) Close() error { f.closed = true; return nil }
func (f *failingStorage) Name() string { return "failing" }

func TestMultiStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	jsonl, err := NewJSONLStorage(path, testLogger)
	require.NoError(t, err)
	bad := &failingStorage{}

	m := NewMultiStorage([]Storage{bad, jsonl}, testLogger)
	err = m.Store(context.Background(), sampleArticles(t))

	var se *types.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "failing", se.Backend)

	require.NoError(t, m.Close())
	assert.True(t, bad.closed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"), "healthy backend still receives the batch")
}
