package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const maxTermsPerQuery = 5

type Config struct {
	// Address of a search-interest proxy. Empty disables the collector.
	Address    string
	HTTPClient *http.Client
	Tracer     tracing.Tracer
	Logger     *zap.Logger
}

// Client reads search-interest momentum per category. There is no
// sanctioned trends API, so the client speaks to a configurable proxy
// and reports a neutral 0.0 score on any failure.
type Client interface {
	Enabled() bool
	CategoryScores(ctx context.Context, catalog config.Catalog, categories []string) ([]domain.TrendScore, error)
}

type client struct {
	config *Config
}

func NewClient(cfg *Config) Client {
	return &client{config: cfg}
}

func (c client) Enabled() bool {
	return c.config.Address != ""
}

type interestResponse struct {
	Points []struct {
		Value float64 `json:"value"`
	} `json:"points"`
}

// CategoryScores queries up to five terms per category and averages the
// returned interest values over the trailing seven days.
func (c client) CategoryScores(ctx context.Context, catalog config.Catalog, categories []string) ([]domain.TrendScore, error) {
	ctx, span := c.config.Tracer.Start(ctx, "adapters.trends.CategoryScores")
	defer span.End()

	scores := make([]domain.TrendScore, 0, len(categories))
	for _, name := range categories {
		cat, ok := catalog.Category(name)
		if !ok {
			continue
		}

		score, err := c.termScore(ctx, cat.Terms)
		if err != nil {
			c.config.Logger.Debug("trend score unavailable", zap.String("category", name), zap.Error(err))
			score = 0.0
		}
		scores = append(scores, domain.TrendScore{Category: name, Score: score})
	}

	return scores, nil
}

func (c client) termScore(ctx context.Context, terms []string) (float64, error) {
	if len(terms) == 0 {
		return 0.0, nil
	}
	if len(terms) > maxTermsPerQuery {
		terms = terms[:maxTermsPerQuery]
	}

	q := url.Values{}
	q.Set("terms", strings.Join(terms, ","))
	q.Set("timeframe", "now 7-d")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/interest?%s", c.config.Address, q.Encode()),
		nil,
	)
	if err != nil {
		return 0, err
	}

	c.config.Tracer.InjectHTTP(ctx, req.Header)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("trends endpoint returned status %d", resp.StatusCode)
	}

	var body interestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if len(body.Points) == 0 {
		return 0.0, nil
	}

	var sum float64
	for _, p := range body.Points {
		sum += p.Value
	}
	return sum / float64(len(body.Points)), nil
}
