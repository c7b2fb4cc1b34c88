package domain

import "time"

// Article is a single news item pulled from an RSS/Atom feed or a
// keyed news API, scored during analysis.
type Article struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Sentiment float64   `json:"sentiment"`
}

// GovNotice is a regulator or agency release.
type GovNotice struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
}

// TrendScore is the search-interest momentum for one category,
// averaged across its configured terms over the trailing window.
type TrendScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Quote is a market snapshot for one symbol over the lookback window.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	ChangePct float64 `json:"changePct"`
}

// CategoryMarket is the averaged percent change across a category's
// mapped instruments.
type CategoryMarket struct {
	Category  string  `json:"category"`
	ChangePct float64 `json:"changePct"`
}

// MobilityPoint is one day of checkpoint passenger throughput.
type MobilityPoint struct {
	Date       time.Time `json:"date"`
	Throughput int64     `json:"throughput"`
	Baseline   int64     `json:"baseline,omitempty"`
}

// MobilityStats summarizes the throughput series.
type MobilityStats struct {
	Points      []MobilityPoint `json:"points"`
	DeltaVsBase float64         `json:"deltaVsBase"`
}

// CategoryHeat is one heatmap row: volume momentum, tone, market and
// interest signals blended into a composite.
type CategoryHeat struct {
	Category  string  `json:"category"`
	NewsCount int     `json:"newsCount"`
	NewsZ     float64 `json:"newsZ"`
	Sentiment float64 `json:"sentiment"`
	MarketPct float64 `json:"marketPct"`
	Trends    float64 `json:"trends"`
	Composite float64 `json:"composite"`
}

// TensionDrivers exposes the standardized inputs behind a tension row.
type TensionDrivers struct {
	NegDensity      float64 `json:"negDensity"`
	SentVolatility  float64 `json:"sentVolatility"`
	NewsZ           float64 `json:"newsZ"`
	MarketDrawdown  float64 `json:"marketDrawdown"`
	Trends          float64 `json:"trends"`
	EntityIntensity float64 `json:"entityIntensity"`
}

// CategoryTension is one row of the 0-100 tension index.
type CategoryTension struct {
	Category string         `json:"category"`
	Tension  float64        `json:"tension"`
	Drivers  TensionDrivers `json:"drivers"`
}

// NarrativeDoc is a representative article for a narrative.
type NarrativeDoc struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Narrative is one clustered topic within a category.
type Narrative struct {
	Category string         `json:"category"`
	Label    string         `json:"label"`
	Weight   float64        `json:"weight"`
	Docs     int            `json:"docs"`
	Samples  []NarrativeDoc `json:"samples,omitempty"`
}

// EntityMention is an extracted named entity with its hit count.
type EntityMention struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Entity   string `json:"entity"`
	Count    int    `json:"count"`
}

// Alert kinds.
const (
	AlertKindData   = "data"
	AlertKindPolicy = "policy"
	AlertKindGeo    = "geo"
	AlertKindCyber  = "cyber"
)

// Alert is a data-driven or watch-feed alert.
type Alert struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Detail   string    `json:"detail"`
	Link     string    `json:"link,omitempty"`
	At       time.Time `json:"at"`
	Severity int       `json:"severity"`
}

// Snapshot is the full result of one refresh cycle.
type Snapshot struct {
	ID         string            `json:"id"`
	TakenAt    time.Time         `json:"takenAt"`
	Articles   []Article         `json:"articles"`
	GovNotices []GovNotice       `json:"govNotices"`
	Trends     []TrendScore      `json:"trends"`
	Markets    []CategoryMarket  `json:"markets"`
	Quotes     []Quote           `json:"quotes"`
	Mobility   MobilityStats     `json:"mobility"`
	Heat       []CategoryHeat    `json:"heat"`
	Tension    []CategoryTension `json:"tension"`
	Narratives []Narrative       `json:"narratives"`
	Entities   []EntityMention   `json:"entities"`
}
