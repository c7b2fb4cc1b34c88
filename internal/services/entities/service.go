package entities

import (
	"context"
	"sort"
	"strings"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const maxDocsPerCategory = 200

// labelWhitelist limits extraction to people, places and organizations.
var labelWhitelist = map[string]bool{
	"PERSON": true,
	"GPE":    true,
	"ORG":    true,
}

type Service interface {
	Extract(ctx context.Context, articles []domain.Article, topN int) []domain.EntityMention
}

type service struct {
	tracer tracing.Tracer
	logger *zap.Logger
}

func NewService(tracer tracing.Tracer, logger *zap.Logger) Service {
	return &service{tracer: tracer, logger: logger}
}

// Extract runs NER over "title. summary" per category and returns the
// topN mentions per category by count. When the pipeline yields nothing
// for a category, a capitalized-token heuristic keeps the panel filled.
func (s *service) Extract(ctx context.Context, articles []domain.Article, topN int) []domain.EntityMention {
	_, span := s.tracer.Start(ctx, "services.entities.Extract")
	defer span.End()

	byCat := map[string][]string{}
	for _, a := range articles {
		if len(byCat[a.Category]) >= maxDocsPerCategory {
			continue
		}
		byCat[a.Category] = append(byCat[a.Category], a.Title+". "+a.Summary)
	}

	var out []domain.EntityMention
	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		counts := s.countEntities(cat, byCat[cat])
		if len(counts) == 0 {
			counts = countCapitalized(cat, byCat[cat])
		}
		out = append(out, topMentions(counts, topN)...)
	}

	return out
}

type mentionKey struct {
	category string
	label    string
	entity   string
}

func (s *service) countEntities(category string, texts []string) map[mentionKey]int {
	counts := map[mentionKey]int{}
	for _, text := range texts {
		doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
		if err != nil {
			s.logger.Debug("ner pipeline failed", zap.String("category", category), zap.Error(err))
			continue
		}
		for _, ent := range doc.Entities() {
			if !labelWhitelist[ent.Label] {
				continue
			}
			key := mentionKey{category: category, label: ent.Label, entity: strings.TrimSpace(ent.Text)}
			counts[key]++
		}
	}
	return counts
}

// countCapitalized counts title-cased tokens longer than three runes.
func countCapitalized(category string, texts []string) map[mentionKey]int {
	counts := map[mentionKey]int{}
	for _, text := range texts {
		for _, w := range strings.Fields(text) {
			w = strings.Trim(w, ",.;:()[]{}'\"")
			if len(w) <= 3 || !isTitleCase(w) {
				continue
			}
			key := mentionKey{category: category, label: "ORG", entity: w}
			counts[key]++
		}
	}
	return counts
}

func isTitleCase(w string) bool {
	r := []rune(w)
	if r[0] < 'A' || r[0] > 'Z' {
		return false
	}
	for _, c := range r[1:] {
		if c >= 'A' && c <= 'Z' {
			return false
		}
	}
	return true
}

func topMentions(counts map[mentionKey]int, topN int) []domain.EntityMention {
	mentions := make([]domain.EntityMention, 0, len(counts))
	for key, count := range counts {
		mentions = append(mentions, domain.EntityMention{
			Category: key.category,
			Label:    key.label,
			Entity:   key.entity,
			Count:    count,
		})
	}

	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].Count != mentions[j].Count {
			return mentions[i].Count > mentions[j].Count
		}
		return mentions[i].Entity < mentions[j].Entity
	})

	if len(mentions) > topN {
		mentions = mentions[:topN]
	}

	return mentions
}
