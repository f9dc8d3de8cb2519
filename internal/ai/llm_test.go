package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newClient(t *testing.T, provider, endpoint string) *LLMClient {
	t.Helper()
	c, err := NewLLMClient(&config.AIConfig{
		Provider: provider,
		Model:    "test-model",
		Endpoint: endpoint,
		APIKey:   "secret",
	}, testLogger)
	require.NoError(t, err)
	return c
}

func TestGenerateGemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "вопрос", body.Contents[0].Parts[0].Text)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Ответ, "},{"text":"часть два"}]}}]}`))
	}))
	defer srv.Close()

	got, err := newClient(t, "gemini", srv.URL).Generate(context.Background(), "вопрос")
	require.NoError(t, err)
	assert.Equal(t, "Ответ, часть два", got)
}

func TestGenerateOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello  "}}]}`))
	}))
	defer srv.Close()

	got, err := newClient(t, "openai", srv.URL).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestGenerateOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Write([]byte(`{"response":"local answer"}`))
	}))
	defer srv.Close()

	got, err := newClient(t, "ollama", srv.URL).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "local answer", got)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusTooManyRequests, `quota`, "HTTP 429"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"empty reply", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, "empty reply"},
		{"bad json", http.StatusOK, `not json`, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, "openai", srv.URL).Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLLMClientValidation(t *testing.T) {
	_, err := NewLLMClient(&config.AIConfig{Provider: "bard"}, testLogger)
	assert.Error(t, err)

	_, err = NewLLMClient(&config.AIConfig{Provider: "gemini"}, testLogger)
	assert.Error(t, err, "gemini needs a key")

	_, err = NewLLMClient(&config.AIConfig{Provider: "ollama"}, testLogger)
	assert.NoError(t, err)
}

type echoGenerator struct {
	prompts []string
	replies []string
	err     error
}

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	reply := "пост"
	if n := len(g.prompts) - 1; n < len(g.replies) {
		reply = g.replies[n]
	}
	return reply, nil
}

func TestWritePost(t *testing.T) {
	a := &types.Article{
		Title:      "Сенсорная интеграция",
		Content:    strings.Repeat("я", fillContext+100),
		Keywords:   []string{"сенсорная", "интеграция"},
		SourceName: "downsideup",
		SourceURL:  "https://downsideup.org/",
	}

	gen := &echoGenerator{replies: []string{"1. Вступление\n2. Советы", "Готовый текст поста"}}
	post, err := WritePost(context.Background(), gen, a)
	require.NoError(t, err)
	require.Len(t, gen.prompts, 2)

	structure, fill := gen.prompts[0], gen.prompts[1]
	assert.Contains(t, structure, "Название: Сенсорная интеграция")
	assert.Contains(t, structure, "Ключевые слова: сенсорная, интеграция")
	assert.Contains(t, structure, strings.Repeat("я", structureContext))
	assert.NotContains(t, structure, strings.Repeat("я", structureContext+1))
	assert.Contains(t, fill, "1. Вступление\n2. Советы")
	assert.Contains(t, fill, strings.Repeat("я", fillContext))
	assert.NotContains(t, fill, strings.Repeat("я", fillContext+1))

	assert.Contains(t, post, "Готовый текст поста")
	assert.Contains(t, post, "🌐 Источник: downsideup (https://downsideup.org/)")
	assert.True(t, strings.HasSuffix(post, sourceDisclaimer))

	failing := &echoGenerator{err: errors.New("quota")}
	_, err = WritePost(context.Background(), failing, a)
	assert.ErrorContains(t, err, "quota")
	assert.Len(t, failing.prompts, 1, "a failed structure call stops the post")
}

func TestWriteTopicPost(t *testing.T) {
	gen := &echoGenerator{replies: []string{"Игры для развития речи"}}
	post, err := WriteTopicPost(context.Background(), gen, "логопедия")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "«логопедия»")
	assert.Contains(t, post, "🌐 Источник: "+GeneratedSource+"\n")
	assert.True(t, strings.HasSuffix(post, generatedDisclaimer))
}

func TestFormatPost(t *testing.T) {
	attr := PostAttribution{Source: "downsideup", SourceURL: "https://downsideup.org/"}
	for seed := uint64(0); seed < 20; seed++ {
		post := FormatPost("  Текст  ", attr, rand.New(rand.NewPCG(seed, seed)))
		paras := strings.Split(post, "\n\n")
		require.Len(t, paras, 3, post)

		emoji, text, ok := strings.Cut(paras[0], " ")
		require.True(t, ok)
		assert.Contains(t, postEmojis, emoji)
		assert.Equal(t, "Текст", text)

		lines := strings.Split(paras[1], "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "🌐 Источник: downsideup (https://downsideup.org/)", lines[0])
		tags := strings.Fields(lines[1])
		assert.GreaterOrEqual(t, len(tags), 1)
		assert.LessOrEqual(t, len(tags), 3)
		seen := map[string]bool{}
		for _, tag := range tags {
			assert.Contains(t, postTags, tag)
			assert.False(t, seen[tag], "tag %s repeated", tag)
			seen[tag] = true
		}

		assert.Equal(t, sourceDisclaimer, paras[2])
	}

	a := FormatPost("Текст", attr, rand.New(rand.NewPCG(7, 7)))
	b := FormatPost("Текст", attr, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestFormatPostFitsOneMessage(t *testing.T) {
	para := strings.Repeat("ж", 1000)
	body := strings.Join([]string{para, para, para, para, para}, "\n\n")
	post := FormatPost(body, PostAttribution{Source: "downsideup"}, rand.New(rand.NewPCG(1, 2)))
	assert.LessOrEqual(t, utf8.RuneCountInString(post), MaxMessageLength)
	assert.Equal(t, 4, strings.Count(post, para))
}

func TestTrimMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"fits", "раз\n\nдва", 20, "раз\n\nдва"},
		{"drops trailing paragraph", "раз\n\nдва\n\nтри", 8, "раз\n\nдва"},
		{"separator counts", "раз\n\nдва", 7, "раз"},
		{"first paragraph too long", "длинный абзац\n\nещё", 7, "длинный"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimMessage(tt.text, tt.limit))
		})
	}
}
