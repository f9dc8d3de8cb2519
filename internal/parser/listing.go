package parser

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/medfeed/internal/types"
)

// MaxTeaserLength caps the content of a listing entry, in characters.
const MaxTeaserLength = 500

// Listing selectors, tried in order. Each pair is a primary selector and
// its fallback.
var (
	listingContainers = []string{
		".post", "article", ".news-item", ".article-item",
		".blog-post", ".content-block", ".entry",
		".article", ".post-item", ".card",
	}
	listingTitle   = [2]string{"h1, h2, h3, .title, .headline, a.title", ".post-title, .entry-title"}
	listingContent = [2]string{"p, .content, .text, .excerpt, .summary", ".post-content, .entry-content"}
	listingLink    = "a.read-more, a.more-link, a.post-link"
	listingDate    = "time, .date, .post-date"
)

// ExtractListing reads teaser entries from an index page. The first
// container selector with any match is used; items without both a title
// and content are skipped. Links are resolved against pageURL, which is
// also used when an item has no link. Only the first limit items of the
// container are read, so skipped items count against the limit.
func (e *Extractor) ExtractListing(doc *goquery.Document, pageURL string, limit int) []types.ListingEntry {
	base, _ := url.Parse(pageURL)

	var entries []types.ListingEntry
	for _, container := range listingContainers {
		items := doc.Find(container)
		if items.Length() == 0 {
			continue
		}

		items.EachWithBreak(func(i int, item *goquery.Selection) bool {
			if limit > 0 && i >= limit {
				return false
			}
			entry, ok := listingEntry(item, base, pageURL)
			if ok {
				entries = append(entries, entry)
			}
			return true
		})

		e.logger.Debug("listing extracted",
			"url", pageURL,
			"container", container,
			"entries", len(entries),
		)
		break
	}

	return entries
}

func listingEntry(item *goquery.Selection, base *url.URL, pageURL string) (types.ListingEntry, bool) {
	title := firstOf(item, listingTitle[0], listingTitle[1])
	content := firstOf(item, listingContent[0], listingContent[1])
	if title == nil || content == nil {
		return types.ListingEntry{}, false
	}

	entry := types.ListingEntry{
		Title:   strings.TrimSpace(title.Text()),
		Content: truncateRunes(strings.TrimSpace(content.Text()), MaxTeaserLength),
		URL:     pageURL,
	}

	link := item.Find(listingLink).First()
	if link.Length() == 0 {
		link = title.Find("a").First()
	}
	if href, ok := link.Attr("href"); ok {
		entry.URL = resolveLink(base, href, pageURL)
	}

	if date := item.Find(listingDate).First(); date.Length() > 0 {
		entry.Date = strings.TrimSpace(date.Text())
	}

	return entry, true
}

func firstOf(item *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := item.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}

func resolveLink(base *url.URL, href, fallback string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		if href == "" {
			return fallback
		}
		return href
	}
	return base.ResolveReference(ref).String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
