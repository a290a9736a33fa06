package ingest

import "strings"

// Rule maps any of its keywords, found as a substring of a lowercased title,
// to Label.
type Rule struct {
	Label    string
	Keywords []string
}

func (r Rule) matches(lower string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// GeneralMarket is the category of titles no rule matches.
const GeneralMarket = "general_market"

// CategoryRules are tried in order; the first match wins. The sector rules
// come before the macro ones.
var CategoryRules = []Rule{
	{"technology", []string{"tech", "ai", "artificial intelligence", "nvidia", "apple", "microsoft", "google", "amazon", "meta", "tesla", "software", "cloud", "cyber", "digital", "semiconductor", "chip"}},
	{"finance", []string{"bank", "financial", "jpmorgan", "goldman", "morgan stanley", "wells fargo", "bank of america", "credit", "lending", "mortgage", "investment", "hedge fund", "private equity", "fintech", "payment", "visa", "mastercard"}},
	{"healthcare", []string{"health", "medical", "pharma", "biotech", "pfizer", "moderna", "johnson & johnson", "merck", "bristol", "abbott", "medtronic", "hospital", "drug", "vaccine", "clinical trial", "fda", "healthcare"}},
	{"retail", []string{"retail", "walmart", "target", "costco", "home depot", "lowes", "consumer", "shopping", "e-commerce", "amazon", "ebay", "sales", "store", "chain", "merchandise", "inventory"}},
	{"monetary_policy", []string{"fed", "federal reserve", "interest rate", "monetary policy"}},
	{"earnings", []string{"earnings", "revenue", "profit", "quarterly"}},
	{"economic_data", []string{"inflation", "cpi", "economic data", "gdp"}},
	{"commodities", []string{"oil", "energy", "commodities", "gold"}},
}

// TagRules are evaluated independently; every match adds its tag.
var TagRules = []Rule{
	{"federal_reserve", []string{"fed", "federal reserve", "interest rate"}},
	{"tech_stocks", []string{"tech", "nvidia", "apple", "microsoft", "google"}},
	{"earnings", []string{"earnings", "revenue", "profit", "quarterly"}},
	{"inflation", []string{"inflation", "cpi", "economic data"}},
	{"oil", []string{"oil", "energy", "crude"}},
	{"ai", []string{"ai", "artificial intelligence", "machine learning"}},
}

// Categorize returns the category of a title.
func Categorize(title string) string {
	lower := strings.ToLower(title)
	for _, r := range CategoryRules {
		if r.matches(lower) {
			return r.Label
		}
	}
	return GeneralMarket
}

// Tags returns the tags of a title in rule order. The result is never nil.
func Tags(title string) []string {
	lower := strings.ToLower(title)
	tags := []string{}
	for _, r := range TagRules {
		if r.matches(lower) {
			tags = append(tags, r.Label)
		}
	}
	return tags
}
