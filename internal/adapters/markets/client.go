package markets

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/config"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

type Config struct {
	Address    string
	HTTPClient *http.Client
	Tracer     tracing.Tracer
	Logger     *zap.Logger
}

// Client fetches daily closes from a Stooq-compatible CSV endpoint and
// derives percent changes over the lookback window.
type Client interface {
	Quote(ctx context.Context, symbol string, lookbackDays int) (domain.Quote, error)
	CategoryChanges(ctx context.Context, catalog config.Catalog, lookbackDays int) ([]domain.CategoryMarket, []domain.Quote)
}

type client struct {
	config *Config
}

func NewClient(cfg *Config) Client {
	return &client{config: cfg}
}

// Quote returns the last close and the percent change from the first to
// the last available close within the lookback window.
func (c client) Quote(ctx context.Context, symbol string, lookbackDays int) (domain.Quote, error) {
	ctx, span := c.config.Tracer.Start(ctx, "adapters.markets.Quote")
	defer span.End()

	closes, err := c.dailyCloses(ctx, symbol, lookbackDays)
	if err != nil {
		return domain.Quote{}, err
	}
	if len(closes) < 2 || closes[0] == 0 {
		return domain.Quote{}, fmt.Errorf("symbol %s: not enough closes in window", symbol)
	}

	first, last := closes[0], closes[len(closes)-1]
	return domain.Quote{
		Symbol:    symbol,
		Last:      last,
		ChangePct: (last - first) / first * 100.0,
	}, nil
}

// CategoryChanges averages each category's ticker changes. Symbols that
// fail to resolve are skipped; a category with no usable symbols
// reports 0.0, matching the degrade-to-neutral behavior of the rest of
// the pipeline.
func (c client) CategoryChanges(ctx context.Context, catalog config.Catalog, lookbackDays int) ([]domain.CategoryMarket, []domain.Quote) {
	ctx, span := c.config.Tracer.Start(ctx, "adapters.markets.CategoryChanges")
	defer span.End()

	quoted := map[string]domain.Quote{}
	var quotes []domain.Quote

	changes := make([]domain.CategoryMarket, 0, len(catalog.Categories))
	for _, cat := range catalog.Categories {
		var sum float64
		var n int
		for _, symbol := range cat.Tickers {
			q, ok := quoted[symbol]
			if !ok {
				var err error
				q, err = c.Quote(ctx, symbol, lookbackDays)
				if err != nil {
					c.config.Logger.Debug("quote unavailable", zap.String("symbol", symbol), zap.Error(err))
					continue
				}
				quoted[symbol] = q
				quotes = append(quotes, q)
			}
			sum += q.ChangePct
			n++
		}

		var avg float64
		if n > 0 {
			avg = sum / float64(n)
		}
		changes = append(changes, domain.CategoryMarket{Category: cat.Name, ChangePct: avg})
	}

	return changes, quotes
}

func (c client) dailyCloses(ctx context.Context, symbol string, lookbackDays int) ([]float64, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	q := url.Values{}
	q.Set("s", strings.ToLower(symbol))
	q.Set("d1", start.Format("20060102"))
	q.Set("d2", end.Format("20060102"))
	q.Set("i", "d")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/q/d/l/?%s", c.config.Address, q.Encode()),
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
		return nil, fmt.Errorf("quote endpoint returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("symbol %s: no data rows", symbol)
	}

	closeIdx := -1
	for i, h := range records[0] {
		if strings.EqualFold(strings.TrimSpace(h), "close") {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return nil, fmt.Errorf("symbol %s: no close column", symbol)
	}

	var closes []float64
	for _, row := range records[1:] {
		if closeIdx >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
		if err != nil {
			continue
		}
		closes = append(closes, v)
	}

	return closes, nil
}
