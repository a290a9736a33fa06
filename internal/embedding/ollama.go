package embedding

import (
	"context"
	"fmt"

	"github.com/kalambet/newsdesk/internal/ollama"
	"golang.org/x/sync/errgroup"
)

const ollamaBatchSize = 32

// OllamaEncoder embeds through the Ollama /api/embed endpoint, splitting
// large inputs into batches sent with bounded concurrency.
type OllamaEncoder struct {
	client *ollama.Client
	model  string
}

func NewOllamaEncoder(c *ollama.Client, model string) *OllamaEncoder {
	return &OllamaEncoder{client: c, model: model}
}

func (e *OllamaEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(texts); start += ollamaBatchSize {
		end := min(start+ollamaBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.client.Embed(gCtx, e.model, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
			}
			copy(results[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
