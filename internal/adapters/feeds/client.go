package feeds

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const (
	userAgent      = "intel-hub/1.0"
	perFeedTimeout = 5 * time.Second
	perFeedCap     = 60
)

type Config struct {
	Catalog    config.Catalog
	HTTPClient *http.Client
	Tracer     tracing.Tracer
	Logger     *zap.Logger
}

// Client pulls news and gov items from the catalog's RSS/Atom feeds.
type Client interface {
	CollectNews(ctx context.Context, categories []string, maxItems, lookbackDays int) ([]domain.Article, error)
	CollectGov(ctx context.Context, maxItems, lookbackDays int) ([]domain.GovNotice, error)
	PullFeed(ctx context.Context, feedURL string, maxItems int) ([]Item, error)
}

// Item is one raw feed entry before it is classified.
type Item struct {
	Title     string
	Summary   string
	Link      string
	Source    string
	Published time.Time
}

type client struct {
	config *Config
	parser *gofeed.Parser
}

func NewClient(cfg *Config) Client {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	if cfg.HTTPClient != nil {
		parser.Client = cfg.HTTPClient
	}

	return &client{
		config: cfg,
		parser: parser,
	}
}

// CollectNews pulls every catalog news feed, assigns each item to the
// first category whose keywords match, and keeps items inside the
// lookback window. If keyword filtering yields too few items the result
// is padded with unfiltered recent items so the dashboard is never empty.
func (c *client) CollectNews(ctx context.Context, categories []string, maxItems, lookbackDays int) ([]domain.Article, error) {
	ctx, span := c.config.Tracer.Start(ctx, "adapters.feeds.CollectNews")
	defer span.End()

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	var matched, fallback []domain.Article
	for _, feedURL := range c.config.Catalog.NewsFeeds {
		items, err := c.PullFeed(ctx, feedURL, perFeedCap)
		if err != nil {
			c.config.Logger.Warn("news feed unavailable", zap.String("feed", feedURL), zap.Error(err))
			continue
		}

		for _, it := range items {
			if it.Published.Before(cutoff) {
				continue
			}

			article := domain.Article{
				ID:        uuid.New().String(),
				Source:    it.Source,
				Title:     it.Title,
				Summary:   it.Summary,
				Link:      it.Link,
				Published: it.Published,
			}

			if cat, ok := c.classify(it.Title+" "+it.Summary, categories); ok {
				article.Category = cat
				matched = append(matched, article)
			} else {
				article.Category = "General"
				fallback = append(fallback, article)
			}
		}
	}

	sortArticles(matched)
	sortArticles(fallback)

	rows := matched
	if len(rows) > maxItems {
		rows = rows[:maxItems]
	}

	// Pad with top unfiltered items rather than return a sparse board.
	if floor := max(30, maxItems/4); len(rows) < floor {
		need := maxItems - len(rows)
		if need > len(fallback) {
			need = len(fallback)
		}
		rows = append(rows, fallback[:need]...)
	}

	return rows, nil
}

func (c *client) CollectGov(ctx context.Context, maxItems, lookbackDays int) ([]domain.GovNotice, error) {
	ctx, span := c.config.Tracer.Start(ctx, "adapters.feeds.CollectGov")
	defer span.End()

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	var notices []domain.GovNotice
	for _, feedURL := range c.config.Catalog.GovFeeds {
		items, err := c.PullFeed(ctx, feedURL, perFeedCap)
		if err != nil {
			c.config.Logger.Warn("gov feed unavailable", zap.String("feed", feedURL), zap.Error(err))
			continue
		}

		for _, it := range items {
			if it.Published.Before(cutoff) {
				continue
			}
			notices = append(notices, domain.GovNotice{
				ID:        uuid.New().String(),
				Source:    it.Source,
				Title:     it.Title,
				Link:      it.Link,
				Published: it.Published,
			})
		}
	}

	sort.Slice(notices, func(i, j int) bool {
		return notices[i].Published.After(notices[j].Published)
	})
	if len(notices) > maxItems {
		notices = notices[:maxItems]
	}

	return notices, nil
}

// PullFeed fetches one feed under its own timeout. Items missing a
// publish date get the current time so they sort as fresh.
func (c *client) PullFeed(ctx context.Context, feedURL string, maxItems int) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, perFeedTimeout)
	defer cancel()

	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	source := sourceName(feedURL)
	items := make([]Item, 0, min(maxItems, len(feed.Items)))
	for _, entry := range feed.Items {
		if len(items) >= maxItems {
			break
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		items = append(items, Item{
			Title:     strings.TrimSpace(entry.Title),
			Summary:   strings.TrimSpace(stripTags(entry.Description)),
			Link:      entry.Link,
			Source:    source,
			Published: published,
		})
	}

	return items, nil
}

// classify returns the first selected category whose keywords match the
// text, whole-word and case-insensitive.
func (c *client) classify(text string, categories []string) (string, bool) {
	blob := strings.ToLower(text)
	for _, name := range categories {
		cat, ok := c.config.Catalog.Category(name)
		if !ok {
			continue
		}
		for _, kw := range cat.Keywords {
			if matchKeyword(blob, kw) {
				return cat.Name, true
			}
		}
	}
	return "", false
}

func matchKeyword(blob, keyword string) bool {
	kw := strings.ToLower(keyword)
	idx := strings.Index(blob, kw)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(blob[idx-1])
		afterIdx := idx + len(kw)
		after := afterIdx >= len(blob) || !isWordChar(blob[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(blob[idx+1:], kw)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, " "))
}

func sourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func sortArticles(articles []domain.Article) {
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})
}
