package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/newsdesk/internal/reader"
)

const defaultDetailConcurrency = 4

// Selectors describe where a site keeps its listing entries and article parts.
type Selectors struct {
	Entry string
	Link  string
	Title string
	Date  string

	Body       string
	Images     string
	ImageAttr  string
	Background string
}

// HTMLConnector scrapes a listing page and fetches each linked article.
type HTMLConnector struct {
	listingURL  string
	selectors   Selectors
	fetch       reader.FetchOptions
	concurrency int
	logger      zerolog.Logger
}

func NewHTMLConnector(listingURL string, selectors Selectors, deps Deps) *HTMLConnector {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultDetailConcurrency
	}
	if selectors.ImageAttr == "" {
		selectors.ImageAttr = "src"
	}
	return &HTMLConnector{
		listingURL:  listingURL,
		selectors:   selectors,
		fetch:       deps.Fetch,
		concurrency: concurrency,
		logger:      deps.Logger.With().Str("listing_url", listingURL).Logger(),
	}
}

type listingEntry struct {
	title string
	url   string
	date  string
}

func (c *HTMLConnector) Run(ctx context.Context) ([]Item, error) {
	page, err := reader.FetchPage(ctx, c.listingURL, c.fetch)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	entries, err := c.parseListing(page)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			item, err := c.fetchDetail(gctx, entry)
			if err != nil {
				c.logger.Warn().Err(err).Str("url", entry.url).Msg("article fetch failed")
				return nil
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (c *HTMLConnector) parseListing(page reader.Page) ([]listingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	var entries []listingEntry
	seen := make(map[string]struct{})
	doc.Find(c.selectors.Entry).Each(func(_ int, s *goquery.Selection) {
		link := s
		if c.selectors.Link != "" && !s.Is(c.selectors.Link) {
			link = s.Find(c.selectors.Link).First()
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		absolute := resolveURL(base, href)
		if absolute == "" {
			return
		}

		title := cleanInline(link.Text())
		if c.selectors.Title != "" {
			if found := s.Find(c.selectors.Title).First(); found.Length() > 0 {
				title = cleanInline(found.Text())
			}
		}
		if title == "" {
			return
		}
		if _, dup := seen[absolute]; dup {
			return
		}
		seen[absolute] = struct{}{}

		entry := listingEntry{title: title, url: absolute}
		if c.selectors.Date != "" {
			entry.date = cleanInline(s.Find(c.selectors.Date).First().Text())
		}
		entries = append(entries, entry)
	})
	return entries, nil
}

func (c *HTMLConnector) fetchDetail(ctx context.Context, entry listingEntry) (*Item, error) {
	page, err := reader.FetchPage(ctx, entry.url, c.fetch)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse article: %w", err)
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse article url: %w", err)
	}

	text := ""
	if c.selectors.Body != "" {
		text = blockText(doc.Find(c.selectors.Body).First())
	}
	if text == "" {
		extracted, err := reader.ExtractText(page, entry.title)
		if err != nil {
			return nil, fmt.Errorf("extract text: %w", err)
		}
		text = extracted
	}

	return &Item{
		Title:     entry.title,
		URL:       entry.url,
		Date:      entry.date,
		Text:      text,
		MediaURLs: c.mediaURLs(doc, base),
	}, nil
}

func (c *HTMLConnector) mediaURLs(doc *goquery.Document, base *url.URL) []string {
	var media []string
	seen := make(map[string]struct{})
	add := func(raw string, front bool) {
		absolute := resolveURL(base, raw)
		if absolute == "" {
			return
		}
		if _, dup := seen[absolute]; dup {
			return
		}
		seen[absolute] = struct{}{}
		if front {
			media = append([]string{absolute}, media...)
			return
		}
		media = append(media, absolute)
	}

	if c.selectors.Images != "" {
		doc.Find(c.selectors.Images).Each(func(_ int, s *goquery.Selection) {
			if value, ok := s.Attr(c.selectors.ImageAttr); ok {
				add(value, false)
			}
		})
	}
	if c.selectors.Background != "" {
		if style, ok := doc.Find(c.selectors.Background).First().Attr("style"); ok {
			add(backgroundImage(style), true)
		}
	}
	if len(media) == 0 {
		if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
			add(og, false)
		}
	}
	return media
}

// resolveURL makes href absolute against base and drops template
// placeholders and non-http schemes.
func resolveURL(base *url.URL, href string) string {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || (strings.Contains(trimmed, "{{") && strings.Contains(trimmed, "}}")) {
		return ""
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func backgroundImage(style string) string {
	_, rest, found := strings.Cut(style, "url(")
	if !found {
		return ""
	}
	value, _, _ := strings.Cut(rest, ")")
	return strings.Trim(strings.TrimSpace(value), `"'`)
}

func cleanInline(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// blockText returns the text of every block-level child on its own line.
func blockText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var lines []string
	blocks := s.Find("p, h2, h3, li, blockquote")
	if blocks.Length() == 0 {
		return reader.CleanText(s.Text())
	}
	blocks.Each(func(_ int, b *goquery.Selection) {
		if line := cleanInline(b.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n\n")
}
