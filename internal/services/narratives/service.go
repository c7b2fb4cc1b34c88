package narratives

import (
	"context"
	"sort"
	"strings"

	"github.com/james-bowman/nlp"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const (
	minDocsPerCategory = 4
	maxDocsPerCategory = 300
	minClusters        = 2
	maxClusters        = 6
	labelTerms         = 3
	maxSampleDocs      = 3
)

type Service interface {
	Build(ctx context.Context, articles []domain.Article, topN int) []domain.Narrative
}

type service struct {
	tracer tracing.Tracer
	logger *zap.Logger
}

func NewService(tracer tracing.Tracer, logger *zap.Logger) Service {
	return &service{tracer: tracer, logger: logger}
}

// Build clusters each category's articles over TF-IDF vectors and
// labels every cluster with its top centroid terms. It returns the topN
// heaviest narratives per category, each carrying sample articles.
func (s *service) Build(ctx context.Context, articles []domain.Article, topN int) []domain.Narrative {
	_, span := s.tracer.Start(ctx, "services.narratives.Build")
	defer span.End()

	byCat := map[string][]domain.Article{}
	for _, a := range articles {
		if len(byCat[a.Category]) >= maxDocsPerCategory {
			continue
		}
		byCat[a.Category] = append(byCat[a.Category], a)
	}

	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var out []domain.Narrative
	for _, cat := range cats {
		rows, err := s.clusterCategory(cat, byCat[cat])
		if err != nil {
			s.logger.Warn("narrative clustering failed", zap.String("category", cat), zap.Error(err))
			continue
		}
		if len(rows) > topN {
			rows = rows[:topN]
		}
		out = append(out, rows...)
	}

	return out
}

func (s *service) clusterCategory(category string, members []domain.Article) ([]domain.Narrative, error) {
	if len(members) < minDocsPerCategory {
		return nil, nil
	}

	docs := make([]string, len(members))
	for i, a := range members {
		docs[i] = a.Title + ". " + a.Summary
	}

	vectoriser := nlp.NewCountVectoriser(stopWords...)
	pipeline := nlp.NewPipeline(vectoriser, nlp.NewTfidfTransformer())

	// Term-document matrix: rows are vocabulary terms, columns are docs.
	tfidf, err := pipeline.FitTransform(docs...)
	if err != nil {
		return nil, err
	}

	terms, docCount := tfidf.Dims()
	if terms == 0 || docCount == 0 {
		return nil, nil
	}

	k := docCount / 6
	if k < minClusters {
		k = minClusters
	}
	if k > maxClusters {
		k = maxClusters
	}
	if k > docCount {
		k = docCount
	}

	observations := make(clusters.Observations, docCount)
	for j := 0; j < docCount; j++ {
		observations[j] = clusters.Coordinates(mat.Col(nil, j, tfidf))
	}

	km := kmeans.New()
	partition, err := km.Partition(observations, k)
	if err != nil {
		return nil, err
	}

	vocab := invertVocabulary(vectoriser.Vocabulary)

	assigned := make([][]int, len(partition))
	for j, obs := range observations {
		ci := partition.Nearest(obs)
		assigned[ci] = append(assigned[ci], j)
	}

	rows := make([]domain.Narrative, 0, len(partition))
	for i, cluster := range partition {
		if len(assigned[i]) == 0 {
			continue
		}

		samples := make([]domain.NarrativeDoc, 0, maxSampleDocs)
		for _, j := range assigned[i] {
			if len(samples) >= maxSampleDocs {
				break
			}
			samples = append(samples, domain.NarrativeDoc{
				Title: members[j].Title,
				Link:  members[j].Link,
			})
		}

		rows = append(rows, domain.Narrative{
			Category: category,
			Label:    clusterLabel(cluster.Center, vocab),
			Weight:   float64(len(assigned[i])) / float64(docCount),
			Docs:     len(assigned[i]),
			Samples:  samples,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Docs > rows[j].Docs })

	return rows, nil
}

func invertVocabulary(vocabulary map[string]int) []string {
	terms := make([]string, len(vocabulary))
	for term, idx := range vocabulary {
		if idx >= 0 && idx < len(terms) {
			terms[idx] = term
		}
	}
	return terms
}

// clusterLabel joins the centroid's heaviest terms into a title-cased
// phrase, e.g. "Chip Exports, Sanctions, Beijing".
func clusterLabel(center clusters.Coordinates, vocab []string) string {
	type weighted struct {
		idx    int
		weight float64
	}

	top := make([]weighted, 0, len(center))
	for i, w := range center {
		if w > 0 {
			top = append(top, weighted{idx: i, weight: w})
		}
	}
	sort.Slice(top, func(i, j int) bool { return top[i].weight > top[j].weight })

	var parts []string
	for _, t := range top {
		if len(parts) >= labelTerms {
			break
		}
		if t.idx < len(vocab) && vocab[t.idx] != "" {
			parts = append(parts, titleCase(vocab[t.idx]))
		}
	}
	if len(parts) == 0 {
		return "General"
	}

	return strings.Join(parts, ", ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
