package composer

import (
	"strings"
	"testing"

	"github.com/kalambet/newsdesk/internal/retrieval"
	"github.com/kalambet/newsdesk/internal/storage"
)

func candidate(title, source, preview string) retrieval.Candidate {
	return retrieval.Candidate{
		Document: storage.Document{Title: title, Source: source},
		Preview:  preview,
	}
}

func TestCompose_SectorInstruction(t *testing.T) {
	c := New(0)
	tests := []struct {
		sector string
		want   string
	}{
		{"technology", "Tech analyst:"},
		{"Finance", "Finance analyst:"},
		{"healthcare", "Healthcare analyst:"},
		{"retail", "Retail analyst:"},
		{"", "Market analyst: Provide concise insights."},
		{"energy", "Market analyst: Provide concise insights."},
	}
	for _, tt := range tests {
		t.Run(tt.sector, func(t *testing.T) {
			got := c.Compose("q", tt.sector, nil)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("prompt starts with %q, want prefix %q", got[:40], tt.want)
			}
		})
	}
}

func TestCompose_UsesTopThreeCandidates(t *testing.T) {
	c := New(0)
	cands := []retrieval.Candidate{
		candidate("Fed cuts rates", "Reuters", "The Federal Reserve cut..."),
		candidate("Chip rally", "Bloomberg", "Semiconductors rose..."),
		candidate("Oil jumps", "MarketWatch", "Crude climbed..."),
		candidate("Fourth story", "Yahoo Finance", "Should not appear"),
	}

	got := c.Compose("What moved markets?", "", cands)

	for _, want := range []string{
		"Query: What moved markets?",
		"1. Fed cuts rates\n   Source: Reuters\n   Content: The Federal Reserve cut......\n\n",
		"2. Chip rally\n   Source: Bloomberg\n",
		"3. Oil jumps\n   Source: MarketWatch\n",
		"Keep response under 300 words, focus on actionable insights.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q\n---\n%s", want, got)
		}
	}
	if strings.Contains(got, "Fourth story") {
		t.Error("prompt includes a fourth candidate")
	}
}

func TestCompose_TruncatesContent(t *testing.T) {
	c := New(0)
	long := strings.Repeat("a", 450)
	got := c.Compose("q", "", []retrieval.Candidate{candidate("T", "S", long)})

	want := "Content: " + strings.Repeat("a", 300) + "...\n"
	if !strings.Contains(got, want) {
		t.Errorf("content not truncated to 300 characters")
	}
}

func TestCompose_BudgetSkipsOversizedEntries(t *testing.T) {
	c := New(40)
	cands := []retrieval.Candidate{
		candidate("Big", "S", strings.Repeat("b", 300)),
		candidate("Small", "S", "tiny"),
	}
	got := c.Compose("q", "", cands)

	if strings.Contains(got, "Big") {
		t.Error("oversized entry should be skipped")
	}
	if !strings.Contains(got, "1. Small") {
		t.Errorf("remaining entry should be renumbered from 1:\n%s", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
