package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/internal/services/sentiment"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

// Composite weights: momentum 35%, tone 25%, market 20%, interest 20%.
const (
	wNewsZ     = 0.35
	wSentiment = 0.25
	wMarket    = 0.20
	wTrends    = 0.20
)

// Tension blend weights.
const (
	wTensionNegDensity = 0.25
	wTensionDrawdown   = 0.20
	wTensionVolatility = 0.20
	wTensionNews       = 0.15
	wTensionTrends     = 0.10
	wTensionEntities   = 0.10
)

type Service interface {
	Heatmap(ctx context.Context, articles []domain.Article, stats map[string]sentiment.Stats, trends []domain.TrendScore, markets []domain.CategoryMarket) []domain.CategoryHeat
	Tension(ctx context.Context, heat []domain.CategoryHeat, stats map[string]sentiment.Stats, entities []domain.EntityMention) []domain.CategoryTension
}

type service struct {
	tracer tracing.Tracer
}

func NewService(tracer tracing.Tracer) Service {
	return &service{tracer: tracer}
}

// Heatmap builds one row per category over the union of categories seen
// in news, trends and markets, blending them into a composite. Missing
// signals default to neutral so a thin category still gets a row.
func (s *service) Heatmap(ctx context.Context, articles []domain.Article, stats map[string]sentiment.Stats, trends []domain.TrendScore, markets []domain.CategoryMarket) []domain.CategoryHeat {
	_, span := s.tracer.Start(ctx, "services.analysis.Heatmap")
	defer span.End()

	counts := map[string]int{}
	for _, a := range articles {
		counts[a.Category]++
	}

	trendByCat := map[string]float64{}
	for _, t := range trends {
		trendByCat[t.Category] = t.Score
	}

	marketByCat := map[string]float64{}
	for _, m := range markets {
		marketByCat[m.Category] = m.ChangePct
	}

	seen := map[string]bool{}
	var cats []string
	for cat := range counts {
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}
	for cat := range trendByCat {
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}
	for cat := range marketByCat {
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}
	sort.Strings(cats)

	countValues := make([]float64, len(cats))
	for i, cat := range cats {
		countValues[i] = float64(counts[cat])
	}
	zScores := robustZ(countValues)

	rows := make([]domain.CategoryHeat, 0, len(cats))
	for i, cat := range cats {
		var tone float64
		if st, ok := stats[cat]; ok {
			tone = st.Mean
		}

		row := domain.CategoryHeat{
			Category:  cat,
			NewsCount: counts[cat],
			NewsZ:     zScores[i],
			Sentiment: tone,
			MarketPct: marketByCat[cat],
			Trends:    trendByCat[cat],
		}
		row.Composite = wNewsZ*clamp(row.NewsZ, -3, 3) +
			wSentiment*clamp(row.Sentiment, -1, 1) +
			wMarket*clamp(row.MarketPct/3.0, -3, 3) +
			wTrends*clamp(row.Trends/50.0-1.0, -3, 3)

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Composite > rows[j].Composite })

	return rows
}

// Tension turns the heat rows plus tone and entity intensity into a
// 0-100 index per category. Components are min-max normalized across
// categories, so the index is a cross-sectional ranking, not an
// absolute scale.
func (s *service) Tension(ctx context.Context, heat []domain.CategoryHeat, stats map[string]sentiment.Stats, entities []domain.EntityMention) []domain.CategoryTension {
	_, span := s.tracer.Start(ctx, "services.analysis.Tension")
	defer span.End()

	if len(heat) == 0 {
		return nil
	}

	entityHits := map[string]float64{}
	for _, e := range entities {
		entityHits[e.Category] += float64(e.Count)
	}

	n := len(heat)
	negDensity := make([]float64, n)
	volatility := make([]float64, n)
	newsAttention := make([]float64, n)
	drawdown := make([]float64, n)
	trends := make([]float64, n)
	hits := make([]float64, n)

	for i, h := range heat {
		if st, ok := stats[h.Category]; ok {
			negDensity[i] = st.NegDensity
			volatility[i] = st.Volatility
		}
		// Only upside volume is risk attention; only drawdown penalizes.
		newsAttention[i] = math.Max(0, h.NewsZ)
		drawdown[i] = math.Max(0, -h.MarketPct)
		trends[i] = h.Trends
		hits[i] = entityHits[h.Category]
	}

	negNorm := minMax(negDensity)
	volNorm := minMax(volatility)
	newsNorm := minMax(newsAttention)
	mddNorm := minMax(drawdown)
	trdNorm := minMax(trends)
	entNorm := minMax(hits)

	rows := make([]domain.CategoryTension, 0, n)
	for i, h := range heat {
		blend := wTensionNegDensity*negNorm[i] +
			wTensionDrawdown*mddNorm[i] +
			wTensionVolatility*volNorm[i] +
			wTensionNews*newsNorm[i] +
			wTensionTrends*trdNorm[i] +
			wTensionEntities*entNorm[i]

		rows = append(rows, domain.CategoryTension{
			Category: h.Category,
			Tension:  round1(blend * 100),
			Drivers: domain.TensionDrivers{
				NegDensity:      round1(negNorm[i] * 100),
				SentVolatility:  round1(volNorm[i] * 100),
				NewsZ:           round2(h.NewsZ),
				MarketDrawdown:  round2(drawdown[i]),
				Trends:          round1(trdNorm[i] * 100),
				EntityIntensity: round1(entNorm[i] * 100),
			},
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Tension > rows[j].Tension })

	return rows
}

// robustZ standardizes with median absolute deviation, scaled by 0.6745
// to be consistent with a standard normal. Falls back to the classic z
// when the MAD collapses.
func robustZ(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	med := median(values)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)

	out := make([]float64, len(values))
	if mad <= 1e-9 {
		mean, std := meanStd(values)
		if std <= 1e-9 {
			std = 1.0
		}
		for i, v := range values {
			out[i] = (v - mean) / std
		}
		return out
	}

	for i, v := range values {
		out[i] = 0.6745 * (v - med) / mad
	}
	return out
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}

func minMax(values []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(values))
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
