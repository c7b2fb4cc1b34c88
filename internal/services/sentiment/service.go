package sentiment

import (
	"context"
	"math"

	govader "github.com/jonreiter/govader"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

// negThreshold marks an article as adverse for the density stat.
const negThreshold = -0.2

// Stats summarizes one category's tone distribution.
type Stats struct {
	Category   string  `json:"category"`
	Mean       float64 `json:"mean"`
	NegDensity float64 `json:"negDensity"`
	Volatility float64 `json:"volatility"`
	Count      int     `json:"count"`
}

type Service interface {
	ScoreArticles(ctx context.Context, articles []domain.Article) []domain.Article
	CategoryStats(articles []domain.Article) map[string]Stats
}

type service struct {
	analyzer *govader.SentimentIntensityAnalyzer
	tracer   tracing.Tracer
}

// NewService builds the lexicon analyzer once; scoring itself is cheap.
func NewService(tracer tracing.Tracer) Service {
	return &service{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
		tracer:   tracer,
	}
}

// ScoreArticles sets the compound polarity on every article. The title
// carries the signal; the summary is appended for context, matching how
// headlines are scored upstream of the heatmap.
func (s *service) ScoreArticles(ctx context.Context, articles []domain.Article) []domain.Article {
	_, span := s.tracer.Start(ctx, "services.sentiment.ScoreArticles")
	defer span.End()

	out := make([]domain.Article, len(articles))
	for i, a := range articles {
		text := a.Title
		if a.Summary != "" {
			text += ". " + a.Summary
		}
		a.Sentiment = s.analyzer.PolarityScores(text).Compound
		out[i] = a
	}

	return out
}

// CategoryStats computes mean tone, negative density (share below the
// adverse threshold) and population volatility per category.
func (s *service) CategoryStats(articles []domain.Article) map[string]Stats {
	byCat := map[string][]float64{}
	for _, a := range articles {
		byCat[a.Category] = append(byCat[a.Category], a.Sentiment)
	}

	stats := make(map[string]Stats, len(byCat))
	for cat, scores := range byCat {
		n := float64(len(scores))

		var sum, neg float64
		for _, v := range scores {
			sum += v
			if v < negThreshold {
				neg++
			}
		}
		mean := sum / n

		var variance float64
		for _, v := range scores {
			variance += (v - mean) * (v - mean)
		}
		variance /= n

		stats[cat] = Stats{
			Category:   cat,
			Mean:       mean,
			NegDensity: neg / n,
			Volatility: math.Sqrt(variance),
			Count:      len(scores),
		}
	}

	return stats
}
