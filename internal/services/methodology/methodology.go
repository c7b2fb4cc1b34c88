package methodology

import "sort"

// Note documents how one dashboard metric is computed, so the numbers
// on screen are auditable.
type Note struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Formula string   `json:"formula"`
	Window  string   `json:"window"`
	Inputs  []string `json:"inputs"`
	Caveats []string `json:"caveats"`
}

var notes = map[string]Note{
	"sentiment": {
		Key:     "sentiment",
		Title:   "Headline sentiment",
		Formula: "VADER compound score over title + summary, range [-1, 1]",
		Window:  "current article set",
		Inputs:  []string{"article titles", "article summaries"},
		Caveats: []string{
			"Lexicon-based: sarcasm and finance jargon can mislead it.",
			"Headlines skew negative by editorial convention.",
		},
	},
	"news_z": {
		Key:     "news_z",
		Title:   "News volume z-score",
		Formula: "(count - median) / (MAD * 0.6745), clamped to [-3, 3]; std fallback when MAD is 0",
		Window:  "cross-sectional across categories, current cycle",
		Inputs:  []string{"per-category article counts"},
		Caveats: []string{"Relative measure: a quiet day compresses the scale."},
	},
	"composite": {
		Key:     "composite",
		Title:   "Heatmap composite",
		Formula: "0.35*news_z + 0.25*sentiment + 0.20*clamp(market_pct/3) + 0.20*clamp(trends/50 - 1)",
		Window:  "current cycle",
		Inputs:  []string{"news_z", "sentiment", "market percent change", "search interest"},
		Caveats: []string{"Weights are editorial, not fitted."},
	},
	"tension": {
		Key:     "tension",
		Title:   "Tension index",
		Formula: "100 * (0.25*neg_density + 0.20*drawdown + 0.20*volatility + 0.15*news_z + 0.10*trends + 0.10*entities), each input min-max normalized",
		Window:  "current cycle",
		Inputs:  []string{"negative headline density", "market drawdown", "sentiment volatility", "news_z", "search interest", "entity mentions"},
		Caveats: []string{
			"Min-max normalization makes scores comparable within a cycle, not across days.",
			"All-zero inputs yield a flat 0 index.",
		},
	},
	"narratives": {
		Key:     "narratives",
		Title:   "Narrative clusters",
		Formula: "TF-IDF vectors, k-means with k = clamp(docs/6, 2, 6), labels from top-3 centroid terms",
		Window:  "current article set, per category",
		Inputs:  []string{"article titles", "article summaries"},
		Caveats: []string{"Categories with fewer than 4 documents are skipped."},
	},
	"markets": {
		Key:     "markets",
		Title:   "Market percent change",
		Formula: "(last close - first close) / first close * 100, averaged across the category's symbols",
		Window:  "lookback window of daily closes",
		Inputs:  []string{"daily close prices"},
		Caveats: []string{"Symbols that fail to download are skipped, not zero-filled."},
	},
	"trends": {
		Key:     "trends",
		Title:   "Search interest",
		Formula: "mean interest value across the category's terms over the trailing 7 days",
		Window:  "7 days",
		Inputs:  []string{"search-interest series per term"},
		Caveats: []string{"Interest is indexed 0-100 per term, not absolute query volume."},
	},
	"mobility": {
		Key:     "mobility",
		Title:   "Air travel throughput",
		Formula: "7-day moving average of checkpoint throughput vs the 2019 same-day baseline, percent delta",
		Window:  "trailing 30 days shown",
		Inputs:  []string{"daily checkpoint throughput", "2019 baseline column"},
		Caveats: []string{"Publication lags a day or two behind the calendar."},
	},
	"alerts": {
		Key:     "alerts",
		Title:   "Alert rules",
		Formula: "news_z >= 1.5 (sev 3); tone <= -0.30 (sev 4); |market| >= 2.0% (sev 3); trends >= 70 (sev 2); tension >= 60 (sev 4); watch feeds pass through",
		Window:  "current cycle",
		Inputs:  []string{"heatmap rows", "tension rows", "watch feed items"},
		Caveats: []string{"Thresholds are static; tune them to your categories."},
	},
}

// Get returns the note for one metric key.
func Get(key string) (Note, bool) {
	n, ok := notes[key]
	return n, ok
}

// All returns every note sorted by key.
func All() []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
