package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog describes the external sources the collectors pull from and
// the per-category keyword/term/ticker mappings the analysis uses.
type Catalog struct {
	NewsFeeds  []string   `yaml:"news_feeds"`
	GovFeeds   []string   `yaml:"gov_feeds"`
	Categories []Category `yaml:"categories"`
	Watch      Watch      `yaml:"watch"`
}

// Category maps one news category to its filter keywords, search-trend
// terms and market proxy instruments.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Terms    []string `yaml:"terms"`
	Tickers  []string `yaml:"tickers"`
}

// Watch lists the external alert feeds by kind, name -> URL.
type Watch struct {
	Policy map[string]string `yaml:"policy"`
	Geo    map[string]string `yaml:"geo"`
	Cyber  map[string]string `yaml:"cyber"`
}

// LoadCatalog reads a YAML catalog from path, or returns the built-in
// default when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	if len(c.Categories) == 0 {
		return Catalog{}, fmt.Errorf("catalog %s defines no categories", path)
	}

	return c, nil
}

// CategoryNames returns the configured category names in catalog order.
func (c Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// Category returns the config for a named category.
func (c Catalog) Category(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// DefaultCatalog covers broad free news sources, the main US
// regulators, and a starter set of category mappings.
func DefaultCatalog() Catalog {
	return Catalog{
		NewsFeeds: []string{
			"https://feeds.bbci.co.uk/news/world/rss.xml",
			"https://feeds.bbci.co.uk/news/business/rss.xml",
			"https://www.aljazeera.com/xml/rss/all.xml",
			"https://rss.dw.com/rdf/rss-en-top",
			"https://www.cnbc.com/id/10001147/device/rss/rss.html",
			"https://www.cnbc.com/id/10000664/device/rss/rss.html",
			"https://www.cnbc.com/id/10000108/device/rss/rss.html",
			"https://www.ft.com/rss/home/uk",
			"https://feeds.reuters.com/reuters/businessNews",
			"https://feeds.reuters.com/reuters/technologyNews",
			"https://feeds.reuters.com/reuters/worldNews",
			"https://www.theguardian.com/world/rss",
			"https://www.theguardian.com/business/rss",
		},
		GovFeeds: []string{
			"https://www.federalreserve.gov/feeds/press_all.xml",
			"https://www.sec.gov/news/pressreleases.rss",
			"https://www.ftc.gov/feeds/press-release.xml",
			"https://www.commerce.gov/feeds/news",
			"https://www.whitehouse.gov/briefing-room/feed/",
		},
		Categories: []Category{
			{
				Name:     "Macro",
				Keywords: []string{"inflation", "gdp", "interest rate", "federal reserve", "unemployment", "economy"},
				Terms:    []string{"inflation", "recession", "interest rates"},
				Tickers:  []string{"^SPX", "^NDX"},
			},
			{
				Name:     "Technology",
				Keywords: []string{"artificial intelligence", "semiconductor", "cloud", "software", "chip", "cybersecurity"},
				Terms:    []string{"artificial intelligence", "semiconductor", "data center"},
				Tickers:  []string{"^NDX", "NVDA.US", "AAPL.US", "MSFT.US"},
			},
			{
				Name:     "Consumer",
				Keywords: []string{"retail", "consumer spending", "ecommerce", "household", "grocery"},
				Terms:    []string{"retail sales", "consumer spending"},
				Tickers:  []string{"AMZN.US", "WMT.US", "PG.US"},
			},
			{
				Name:     "Energy",
				Keywords: []string{"oil", "natural gas", "opec", "renewable", "lng", "crude"},
				Terms:    []string{"oil price", "natural gas", "renewable energy"},
				Tickers:  []string{"XOM.US", "CVX.US"},
			},
			{
				Name:     "Healthcare",
				Keywords: []string{"pharma", "biotech", "clinical trial", "vaccine", "fda", "drug"},
				Terms:    []string{"pharma", "biotech", "clinical trial"},
				Tickers:  []string{"JNJ.US", "UNH.US", "PFE.US"},
			},
			{
				Name:     "Finance",
				Keywords: []string{"bank", "fintech", "payments", "insurance", "lending", "credit"},
				Terms:    []string{"banking", "fintech"},
				Tickers:  []string{"JPM.US", "BAC.US"},
			},
		},
		Watch: Watch{
			Policy: map[string]string{
				"Federal Reserve": "https://www.federalreserve.gov/feeds/press_all.xml",
				"SEC":             "https://www.sec.gov/news/pressreleases.rss",
				"FTC":             "https://www.ftc.gov/feeds/press-release.xml",
			},
			Geo: map[string]string{
				"USGS Earthquakes": "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/significant_week.atom",
				"GDACS":            "https://www.gdacs.org/xml/rss.xml",
			},
			Cyber: map[string]string{
				"CISA Advisories": "https://www.cisa.gov/cybersecurity-advisories/all.xml",
			},
		},
	}
}
