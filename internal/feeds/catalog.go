// Package feeds knows where financial news comes from and how to turn a
// fetched RSS document into items.
package feeds

import "strings"

// Provider is one news outlet and the feeds it publishes.
type Provider struct {
	Name string   `yaml:"name"`
	URLs []string `yaml:"urls"`
}

// SourceRule names the source of any feed whose URL contains Match.
type SourceRule struct {
	Match string `yaml:"match"`
	Name  string `yaml:"name"`
}

// Catalog is the configured set of feeds plus the URL to source-name table.
type Catalog struct {
	Providers     []Provider   `yaml:"providers"`
	Sources       []SourceRule `yaml:"sources"`
	DefaultSource string       `yaml:"default_source"`
}

// DefaultCatalog returns the built-in feed list.
func DefaultCatalog() Catalog {
	return Catalog{
		Providers: []Provider{
			{Name: "Yahoo Finance", URLs: []string{
				"https://feeds.finance.yahoo.com/rss/2.0/headline",
				"https://feeds.finance.yahoo.com/rss/2.0/topfinstories",
				"https://feeds.finance.yahoo.com/rss/2.0/stock",
				"https://feeds.finance.yahoo.com/rss/2.0/marketnews",
				"https://feeds.finance.yahoo.com/rss/2.0/industry",
			}},
			{Name: "MarketWatch", URLs: []string{
				"https://feeds.marketwatch.com/marketwatch/topstories/",
				"https://feeds.marketwatch.com/marketwatch/marketpulse/",
				"https://feeds.marketwatch.com/marketwatch/realtimeheadlines/",
			}},
			{Name: "CNBC", URLs: []string{
				"https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=100003114",
				"https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=15839069",
				"https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=100727362",
			}},
			{Name: "Financial Times", URLs: []string{
				"https://www.ft.com/rss/home",
				"https://www.ft.com/markets?format=rss",
				"https://www.ft.com/companies?format=rss",
			}},
			{Name: "Reuters", URLs: []string{
				"https://feeds.reuters.com/reuters/businessNews",
				"https://feeds.reuters.com/news/wealth",
				"https://feeds.reuters.com/reuters/companyNews",
			}},
			{Name: "Bloomberg", URLs: []string{
				"https://feeds.bloomberg.com/markets/news.rss",
				"https://feeds.bloomberg.com/politics/news.rss",
			}},
			{Name: "Investing.com", URLs: []string{
				"https://www.investing.com/rss/news.rss",
				"https://www.investing.com/rss/news_14.rss",
			}},
			{Name: "Benzinga", URLs: []string{
				"https://www.benzinga.com/topic/rss",
				"https://www.benzinga.com/news/rss",
			}},
			{Name: "Seeking Alpha", URLs: []string{
				"https://seekingalpha.com/api/sa/combined/RSS.xml",
				"https://seekingalpha.com/api/sa/combined/RSS_earnings.xml",
			}},
		},
		Sources: []SourceRule{
			{Match: "yahoo", Name: "Yahoo Finance"},
			{Match: "marketwatch", Name: "MarketWatch"},
			{Match: "bloomberg", Name: "Bloomberg"},
			{Match: "reuters", Name: "Reuters"},
		},
		DefaultSource: "Financial News",
	}
}

// URLs returns every feed URL once, in catalog order.
func (c Catalog) URLs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.Providers {
		for _, u := range p.URLs {
			u = strings.TrimSpace(u)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// SourceName returns the name of the first rule matching feedURL.
func (c Catalog) SourceName(feedURL string) string {
	for _, r := range c.Sources {
		if r.Match != "" && strings.Contains(feedURL, r.Match) {
			return r.Name
		}
	}
	if c.DefaultSource != "" {
		return c.DefaultSource
	}
	return "Financial News"
}
