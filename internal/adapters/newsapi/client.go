package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

type Config struct {
	Address    string
	APIKey     string
	HTTPClient *http.Client
	Tracer     tracing.Tracer
}

// Client queries a NewsAPI-compatible /v2/everything endpoint. It is
// only used when an API key is configured; RSS remains the fallback.
type Client interface {
	Enabled() bool
	Search(ctx context.Context, category config.Category, limit int) ([]domain.Article, error)
}

type client struct {
	config *Config
}

func NewClient(cfg *Config) Client {
	return &client{config: cfg}
}

func (c client) Enabled() bool {
	return c.config.APIKey != ""
}

type searchResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (c client) Search(ctx context.Context, category config.Category, limit int) ([]domain.Article, error) {
	ctx, span := c.config.Tracer.Start(ctx, "adapters.newsapi.Search")
	defer span.End()

	if limit > 100 {
		limit = 100
	}

	q := url.Values{}
	q.Set("q", strings.Join(category.Keywords, " OR "))
	q.Set("pageSize", fmt.Sprintf("%d", limit))
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("apiKey", c.config.APIKey)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/v2/everything?%s", c.config.Address, q.Encode()),
		nil,
	)
	if err != nil {
		return nil, err
	}

	c.config.Tracer.InjectHTTP(ctx, req.Header)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news api returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			published = time.Now().UTC()
		}
		articles = append(articles, domain.Article{
			ID:        uuid.New().String(),
			Category:  category.Name,
			Source:    a.Source.Name,
			Title:     a.Title,
			Summary:   a.Description,
			Link:      a.URL,
			Published: published.UTC(),
		})
	}

	return articles, nil
}
