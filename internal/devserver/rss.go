package devserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mmcdole/gofeed"

	"github.com/pders01/fragments/internal/news"
)

var (
	imgRegex  = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)
	tagRegex  = regexp.MustCompile(`<[^>]*>`)
	wsRegex   = regexp.MustCompile(`\s+`)
	imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif"}
)

// FeedParser turns RSS and Atom documents into cards.
type FeedParser struct {
	parser *gofeed.Parser
}

func NewFeedParser(client *http.Client, userAgent string) *FeedParser {
	p := gofeed.NewParser()
	if client != nil {
		p.Client = client
	}
	p.UserAgent = userAgent
	return &FeedParser{parser: p}
}

// Parse reads one feed document. source names the feed when it carries no
// title of its own.
func (p *FeedParser) Parse(reader io.Reader, source string) ([]news.Card, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return cardsFromFeed(feed, source), nil
}

// Fetch downloads and parses the feed at url.
func (p *FeedParser) Fetch(ctx context.Context, url string) ([]news.Card, error) {
	feed, err := p.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", url, err)
	}
	return cardsFromFeed(feed, url), nil
}

func cardsFromFeed(feed *gofeed.Feed, source string) []news.Card {
	name := strings.TrimSpace(feed.Title)
	if name == "" {
		name = source
	}

	cards := make([]news.Card, 0, len(feed.Items))
	for _, item := range feed.Items {
		cards = append(cards, cardFromItem(item, name))
	}
	return cards
}

func cardFromItem(item *gofeed.Item, source string) news.Card {
	id := itemID(source, item)
	date := ""
	if t := itemTime(item); t != nil {
		date = t.UTC().Format(time.RFC3339)
	}

	card := news.Card{
		ID:           id,
		Title:        strings.TrimSpace(item.Title),
		Summary:      plainText(item.Description),
		Date:         date,
		Topics:       append([]string{}, item.Categories...),
		Sources:      []news.Reference{},
		RelatedCards: []news.RelatedCard{},
	}
	if card.Title == "" {
		card.Title = "(untitled)"
	}
	if card.Summary == "" {
		card.Summary = plainText(item.Content)
	}
	if content := markdownContent(item.Content); content != "" {
		card.Content = &content
	}
	if img := firstImage(item); img != "" {
		card.ImageURL = &img
	}
	if item.Link != "" {
		card.Sources = append(card.Sources, news.Reference{
			ID:     id + "-src",
			URL:    item.Link,
			Source: source,
			Title:  card.Title,
			Date:   date,
		})
	}
	return card
}

func itemID(source string, item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = item.Title
	}
	sum := sha256.Sum256([]byte(source + "\x00" + key))
	return hex.EncodeToString(sum[:8])
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func firstImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || hasImageExt(enc.URL) {
			return enc.URL
		}
	}
	for _, content := range []string{item.Content, item.Description} {
		if m := imgRegex.FindStringSubmatch(content); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func hasImageExt(u string) bool {
	u = strings.ToLower(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for _, ext := range imageExts {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return false
}

// markdownContent converts an item's HTML body to markdown for the reader
// view. Bodies that fail to convert are kept as plain text.
func markdownContent(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return plainText(body)
	}
	return strings.TrimSpace(md)
}

func plainText(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(wsRegex.ReplaceAllString(s, " "))
}
