package ai

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/medfeed/internal/types"
)

const (
	// structureContext and fillContext bound how much article text each
	// prompt carries.
	structureContext = 500
	fillContext      = 700

	// MaxMessageLength is the Telegram limit for one message.
	MaxMessageLength = 4096

	// GeneratedSource names the source of posts written without an article.
	GeneratedSource = "Генерация ИИ"
)

var (
	postEmojis = []string{"🌈", "💡", "❤️", "🤝", "🌟", "🔍", "📣", "💖", "🌱"}
	postTags   = []string{"#особыедети", "#поддержка", "#развитие", "#любовь", "#забота", "#вместе"}
)

const (
	sourceDisclaimer    = "⚠️ Материал основан на информации из источника. Требует профессиональной консультации."
	generatedDisclaimer = "⚠️ Материал сгенерирован ИИ. Требует индивидуального подхода."
)

// Generator produces text from a prompt. *LLMClient satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// StructurePrompt asks the model for a post outline based on the article.
func StructurePrompt(a *types.Article) string {
	var sb strings.Builder
	sb.WriteString("Создай абсолютно уникальную структуру поста, основанную на статье:\n")
	fmt.Fprintf(&sb, "Название: %s\n", a.Title)
	fmt.Fprintf(&sb, "Источник: %s\n\n", a.SourceName)
	sb.WriteString("Пост для Telegram-канала «Медицинские клиники», аудитория: родители детей с ДЦП и аутизмом.\n")
	if len(a.Keywords) > 0 {
		fmt.Fprintf(&sb, "Ключевые слова: %s\n", strings.Join(a.Keywords, ", "))
	}
	sb.WriteString("Структура должна быть новой, без шаблонных разделов. В конце обязательно укажите ссылку на источник.\n\n")
	fmt.Fprintf(&sb, "Краткое содержание статьи для контекста: %s", clip(a.Content, structureContext))
	return sb.String()
}

// ContentPrompt asks the model to fill structure with the article's content.
func ContentPrompt(a *types.Article, structure string) string {
	var sb strings.Builder
	sb.WriteString("Наполни следующую уникальную структуру контентом из статьи:\n\n")
	fmt.Fprintf(&sb, "Структура:\n%s\n\n", strings.TrimSpace(structure))
	fmt.Fprintf(&sb, "Исходная статья: %s\n", a.Title)
	fmt.Fprintf(&sb, "Содержание статьи: %s\n\n", clip(a.Content, fillContext))
	sb.WriteString("Требования: живой язык без канцелярита, практические советы для родителей, " +
		"без медицинских назначений, объем до 3000 символов.")
	return sb.String()
}

// TopicPrompt asks the model for a post on topic without a source article.
func TopicPrompt(topic string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Создай уникальный пост для Telegram-канала на тему «%s».\n", topic)
	sb.WriteString("Целевая аудитория: Родители детей с особенностями развития.\n")
	sb.WriteString("Объем: 500-700 символов. Структура и подача должны быть оригинальными, " +
		"с практическими советами и поддерживающим тоном.")
	return sb.String()
}

// WritePost turns a scraped article into a formatted channel post: one
// call drafts a structure, a second fills it, then FormatPost attributes it.
func WritePost(ctx context.Context, gen Generator, a *types.Article) (string, error) {
	structure, err := gen.Generate(ctx, StructurePrompt(a))
	if err != nil {
		return "", fmt.Errorf("write post structure for %q: %w", a.Title, err)
	}
	body, err := gen.Generate(ctx, ContentPrompt(a, structure))
	if err != nil {
		return "", fmt.Errorf("write post for %q: %w", a.Title, err)
	}
	return FormatPost(body, PostAttribution{Source: a.SourceName, SourceURL: a.SourceURL}, nil), nil
}

// WriteTopicPost writes a post on topic with no source article.
func WriteTopicPost(ctx context.Context, gen Generator, topic string) (string, error) {
	body, err := gen.Generate(ctx, TopicPrompt(topic))
	if err != nil {
		return "", fmt.Errorf("write post on %q: %w", topic, err)
	}
	return FormatPost(body, PostAttribution{Source: GeneratedSource, Generated: true}, nil), nil
}

// PostAttribution says where a post's material came from.
type PostAttribution struct {
	Source    string
	SourceURL string
	Generated bool
}

// FormatPost decorates a generated body with a leading emoji, the source
// line, one to three tags and a disclaimer, then fits the result into one
// message. A nil rng uses the package-level generator.
func FormatPost(body string, attr PostAttribution, rng *rand.Rand) string {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	tags := make([]string, len(postTags))
	copy(tags, postTags)
	for i := len(tags) - 1; i > 0; i-- {
		j := intN(i + 1)
		tags[i], tags[j] = tags[j], tags[i]
	}
	tags = tags[:1+intN(3)]

	source := attr.Source
	if attr.SourceURL != "" {
		source += " (" + attr.SourceURL + ")"
	}
	disclaimer := sourceDisclaimer
	if attr.Generated {
		disclaimer = generatedDisclaimer
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n\n", postEmojis[intN(len(postEmojis))], strings.TrimSpace(body))
	fmt.Fprintf(&sb, "🌐 Источник: %s\n", source)
	sb.WriteString(strings.Join(tags, " "))
	sb.WriteString("\n\n")
	sb.WriteString(disclaimer)
	return TrimMessage(sb.String(), MaxMessageLength)
}

// TrimMessage keeps whole paragraphs of text while they fit in limit runes.
// When even the first paragraph is too long it is cut at limit.
func TrimMessage(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	var (
		kept []string
		size int
	)
	for _, p := range strings.Split(text, "\n\n") {
		n := utf8.RuneCountInString(p)
		if len(kept) > 0 {
			n += 2
		}
		if size+n > limit {
			break
		}
		kept = append(kept, p)
		size += n
	}
	if len(kept) == 0 {
		return strings.TrimSpace(clip(text, limit))
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}
