package composer

import (
	"fmt"
	"strings"

	"github.com/kalambet/newsdesk/internal/retrieval"
)

const (
	defaultMaxContextTokens = 4000

	// contextDocs is how many retrieved documents go into the prompt.
	contextDocs  = 3
	contentChars = 300
)

var sectorInstructions = map[string]string{
	"technology": "Tech analyst: Provide concise insights on AI, semiconductors, and software trends.",
	"finance":    "Finance analyst: Provide concise insights on banking, fintech, and payment systems.",
	"healthcare": "Healthcare analyst: Provide concise insights on pharma, biotech, and medical devices.",
	"retail":     "Retail analyst: Provide concise insights on e-commerce and consumer spending.",
}

const defaultInstruction = "Market analyst: Provide concise insights."

const answerStructure = `Provide a brief analysis with:
1. Key sector trends (2-3 points)
2. Investment opportunities and risks (2-3 points)
3. Overall sector outlook

Keep response under 300 words, focus on actionable insights.`

// Composer builds the generation prompt for an analysis.
type Composer struct {
	MaxContextTokens int
}

// New creates a Composer with the given token budget for the news context
// block. If maxContextTokens <= 0, the default (4000) is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens}
}

// Instruction returns the analyst instruction for a sector hint.
func Instruction(sector string) string {
	if s, ok := sectorInstructions[strings.ToLower(strings.TrimSpace(sector))]; ok {
		return s
	}
	return defaultInstruction
}

// Compose renders the prompt: sector instruction, the query, a numbered
// context block from the top candidates, and the fixed answer structure.
func (c *Composer) Compose(query, sector string, candidates []retrieval.Candidate) string {
	var sb strings.Builder
	sb.WriteString(Instruction(sector))
	sb.WriteString("\n\nQuery: ")
	sb.WriteString(query)
	sb.WriteString("\n\nNews Context:\n")
	sb.WriteString(c.buildContext(candidates))
	sb.WriteString("\n")
	sb.WriteString(answerStructure)
	return sb.String()
}

// buildContext numbers the first few candidates, skipping any entry that
// would push the block past the token budget.
func (c *Composer) buildContext(candidates []retrieval.Candidate) string {
	if len(candidates) > contextDocs {
		candidates = candidates[:contextDocs]
	}
	var sb strings.Builder
	remaining := c.MaxContextTokens
	n := 0
	for _, cand := range candidates {
		entry := formatEntry(n+1, cand)
		tokens := EstimateTokens(entry)
		if tokens > remaining {
			continue
		}
		sb.WriteString(entry)
		remaining -= tokens
		n++
	}
	return sb.String()
}

func formatEntry(i int, cand retrieval.Candidate) string {
	text := cand.Preview
	if r := []rune(text); len(r) > contentChars {
		text = string(r[:contentChars])
	}
	return fmt.Sprintf("%d. %s\n   Source: %s\n   Content: %s...\n\n", i, cand.Document.Title, cand.Document.Source, text)
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
