// Package llm runs a prompt against a prioritized list of generation models
// until one of them produces usable text.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/newsdesk/internal/ollama"
)

// FailureMarker is returned by Generate when no model produced text.
const FailureMarker = "Error: LLM request failed with all available models"

// DefaultFallbackModels are tried, in order, after the preferred model.
var DefaultFallbackModels = []string{"llama3.1:8b", "llama3:8b", "llama3:latest"}

const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 60 * time.Second
)

// GenerationOptions are fixed for every call.
var GenerationOptions = ollama.Options{
	Temperature: 0.7,
	TopP:        0.9,
	MaxTokens:   800,
	NumPredict:  400,
	Stop:        []string{"\n\n\n"},
}

// Generator performs one completion call.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, opts ollama.Options) (string, error)
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	// outcomeRetryable covers timeouts, transport errors and 5xx answers.
	outcomeRetryable
	// outcomeTerminal means the model cannot serve this prompt: 4xx answers,
	// empty text or an error-prefixed reply.
	outcomeTerminal
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSuccess:
		return "success"
	case outcomeRetryable:
		return "retryable"
	default:
		return "terminal"
	}
}

type outcome struct {
	kind outcomeKind
	text string
	err  error
}

// Orchestrator walks the attempt list. By default any failed attempt moves
// on to the next model; RetrySameModel allows retryable failures to use the
// remaining MaxRetries against the same model first.
type Orchestrator struct {
	gen            Generator
	Fallbacks      []string
	MaxRetries     int
	Timeout        time.Duration
	RetrySameModel bool
	logger         *slog.Logger
}

func NewOrchestrator(gen Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gen:        gen,
		Fallbacks:  DefaultFallbackModels,
		MaxRetries: DefaultMaxRetries,
		Timeout:    DefaultTimeout,
		logger:     logger,
	}
}

// Models returns the attempt list for a preferred model: the preferred model
// followed by the fallbacks, without blanks or repeats.
func (o *Orchestrator) Models(preferred string) []string {
	seen := make(map[string]bool, len(o.Fallbacks)+1)
	var out []string
	for _, m := range append([]string{preferred}, o.Fallbacks...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Generate returns the first usable completion, or FailureMarker when every
// model failed or ctx was cancelled.
func (o *Orchestrator) Generate(ctx context.Context, prompt, preferredModel string) string {
	for _, model := range o.Models(preferredModel) {
		for try := 1; try <= max(o.MaxRetries, 1); try++ {
			if ctx.Err() != nil {
				return FailureMarker
			}
			out := o.attempt(ctx, model, prompt)
			if out.kind == outcomeSuccess {
				o.logger.Info("generation succeeded", "model", model, "attempt", try)
				return out.text
			}
			o.logger.Warn("generation attempt failed", "model", model, "attempt", try, "outcome", out.kind.String(), "error", out.err)
			if !o.shouldRetry(out, try) {
				break
			}
		}
	}
	return FailureMarker
}

func (o *Orchestrator) shouldRetry(out outcome, try int) bool {
	return o.RetrySameModel && out.kind == outcomeRetryable && try < o.MaxRetries
}

func (o *Orchestrator) attempt(ctx context.Context, model, prompt string) outcome {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := o.gen.Generate(ctx, model, prompt, GenerationOptions)
	if err != nil {
		return outcome{kind: classify(err), err: err}
	}
	if text == "" {
		return outcome{kind: outcomeTerminal, err: errors.New("empty response")}
	}
	if strings.HasPrefix(text, "Error:") {
		return outcome{kind: outcomeTerminal, err: errors.New(text)}
	}
	return outcome{kind: outcomeSuccess, text: text}
}

func classify(err error) outcomeKind {
	var se *ollama.StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < http.StatusInternalServerError {
		return outcomeTerminal
	}
	return outcomeRetryable
}

// Clean prepares generated text for display: the failure marker is wrapped
// in an explanatory prefix, anything else is trimmed.
func Clean(text string) string {
	if strings.HasPrefix(text, "Error:") {
		return "LLM analysis unavailable: " + text
	}
	return strings.TrimSpace(text)
}

// IsFailure reports whether text is the failure marker, raw or cleaned.
func IsFailure(text string) bool {
	return strings.HasPrefix(text, FailureMarker) || strings.HasPrefix(text, "LLM analysis unavailable: ")
}
