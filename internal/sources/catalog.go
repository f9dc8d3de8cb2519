package sources

import "github.com/IshaanNene/medfeed/internal/types"

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Builtin returns a fresh copy of the built-in source catalog.
func Builtin() []types.SourceSpec {
	return []types.SourceSpec{
		{
			Name:       "Ya Roditel",
			URL:        "https://www.ya-roditel.ru/parents/base/experts/",
			Categories: []string{"parenting"},
			Language:   "ru",
			Selectors: types.SelectorMap{
				types.FieldArticle: {"a.post__img ", "div.article-item", ".articles-list__item"},
				types.FieldTitle:   {"a", "div.post__title", "a.post__title", "post__title", "h2.title", ".article-title"},
				types.FieldContent: {"div.post__description", ".article-text", ".content-text"},
				types.FieldLink:    {"a.post__title", "a.article-title", "h2.title a"},
			},
			Headers: map[string]string{"User-Agent": browserUA},
		},
		{
			Name:       "downsideup",
			URL:        "https://downsideup.org/o-fonde/novosti/",
			Categories: []string{"news", "parenting", "social-support"},
			Language:   "ru",
			Selectors: types.SelectorMap{
				types.FieldArticle: {".post", "article", ".blog-post", "div.entry", ".news-item"},
				types.FieldTitle:   {"h4", "h4.link link_blue", "title", "h4.title", "h1", "h2", ".entry-title", "a.post-title", ".title", "div.title"},
				types.FieldContent: {".entry-content", "div.content", "article p", ".post-text", "p"},
				types.FieldLink:    {"a", "a.post-title", "h1 a", "h2 a", ".read-more"},
			},
			RequiresJS: true,
			Headers: map[string]string{
				"User-Agent":      browserUA,
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
				"Accept-Language": "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3",
			},
		},
		{
			Name:       "РООИ Перспектива",
			URL:        "https://perspektiva-inva.ru/news",
			Categories: []string{"social-support", "rehabilitation"},
			Language:   "ru",
			Selectors: types.SelectorMap{
				types.FieldArticle: {".post", "article", "div.news", ".news-item", ".content-block"},
				types.FieldTitle:   {"h1", "h2", ".title", "a.news-title", "div.title"},
				types.FieldContent: {".entry-content", "div.text", "article p", "p", ".content"},
				types.FieldLink:    {"a", "a.news-title", "h1 a", "h2 a", ".read-more"},
			},
		},
		{
			Name:       "Форум Особые дети",
			URL:        "https://specialchildren.livejournal.com",
			Categories: []string{"parenting", "support", "experience"},
			Language:   "ru",
			Selectors: types.SelectorMap{
				types.FieldArticle: {"div.entry", "div.post", "article", ".entry", "section", "div"},
				types.FieldTitle:   {"h1", "h2", "h3", ".title", "div.subject", "a.subject", "div", "h1 a"},
				types.FieldContent: {".entry-text", "div.text", "article p", "p", "div", ".content"},
				types.FieldLink:    {"a.subject", "h1 a", "h2 a", ".entry-link", "a"},
			},
			RequiresJS: true,
			Headers:    map[string]string{"User-Agent": browserUA},
		},
	}
}
