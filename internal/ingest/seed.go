package ingest

import (
	"context"
	"time"

	"github.com/kalambet/newsdesk/internal/storage"
)

// SampleDocuments returns the built-in demo articles, published two to ten
// hours before now.
func SampleDocuments(now time.Time) []storage.Document {
	return []storage.Document{
		{
			DocID:       "news_001",
			Title:       "Federal Reserve Signals Potential Rate Cut Amid Economic Uncertainty",
			Content:     "The Federal Reserve indicated a possible shift in monetary policy as economic indicators show signs of slowing growth. Fed officials are considering rate cuts to stimulate economic activity and address inflation concerns.",
			Source:      "Federal Reserve",
			URL:         "https://federalreserve.gov/news/2024/rate-policy-update",
			Category:    "monetary_policy",
			Tags:        []string{"federal_reserve", "interest_rates", "monetary_policy"},
			PublishedAt: now.Add(-2 * time.Hour),
		},
		{
			DocID:       "news_002",
			Title:       "Tech Stocks Rally on Strong Q4 Earnings Reports",
			Content:     "Major technology companies reported better-than-expected quarterly earnings, driving a significant rally in tech stocks. NVIDIA, Apple, and Microsoft led the gains with strong AI and cloud computing revenue.",
			Source:      "MarketWatch",
			URL:         "https://marketwatch.com/tech-earnings-q4",
			Category:    "earnings",
			Tags:        []string{"tech_stocks", "earnings", "nvidia", "apple", "microsoft"},
			PublishedAt: now.Add(-4 * time.Hour),
		},
		{
			DocID:       "news_003",
			Title:       "Oil Prices Surge on Middle East Tensions and Supply Concerns",
			Content:     "Crude oil prices jumped 5% following renewed tensions in the Middle East and reports of supply disruptions. Energy sector stocks gained while transportation companies faced pressure from higher fuel costs.",
			Source:      "Reuters",
			URL:         "https://reuters.com/business/energy/oil-prices-surge",
			Category:    "commodities",
			Tags:        []string{"oil", "energy", "middle_east", "supply_disruption"},
			PublishedAt: now.Add(-6 * time.Hour),
		},
		{
			DocID:       "news_004",
			Title:       "Inflation Data Shows Cooling Trend, Boosting Market Sentiment",
			Content:     "Latest inflation figures indicate a continued cooling trend, with core CPI rising at the slowest pace in months. This data supports the case for potential Fed rate cuts and boosted overall market sentiment.",
			Source:      "Bloomberg",
			URL:         "https://bloomberg.com/inflation-data-december",
			Category:    "economic_data",
			Tags:        []string{"inflation", "cpi", "economic_data", "fed_policy"},
			PublishedAt: now.Add(-8 * time.Hour),
		},
		{
			DocID:       "news_005",
			Title:       "AI Sector Sees Massive Investment Influx as Companies Accelerate Adoption",
			Content:     "Artificial intelligence companies are experiencing unprecedented investment flows as enterprises accelerate AI adoption. Venture capital funding in AI startups reached record levels this quarter.",
			Source:      "TechCrunch",
			URL:         "https://techcrunch.com/ai-investment-surge",
			Category:    "technology",
			Tags:        []string{"artificial_intelligence", "investment", "venture_capital", "startups"},
			PublishedAt: now.Add(-10 * time.Hour),
		},
	}
}

// Seed writes the sample documents and returns how many were stored.
func (p *Pipeline) Seed(ctx context.Context) (int, error) {
	return p.write(ctx, SampleDocuments(p.now()))
}
