package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIEncoder embeds with the Gemini embedding API.
type GenAIEncoder struct {
	client *genai.Client
	model  string
	dims   int32
}

// NewGenAIEncoder creates a Gemini client. dims, when positive, asks the
// API to truncate vectors to that length.
func NewGenAIEncoder(ctx context.Context, apiKey, model string, dims int) (*GenAIEncoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenAIEncoder{client: client, model: model, dims: int32(dims)}, nil
}

func (e *GenAIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if e.dims > 0 {
		cfg.OutputDimensionality = &e.dims
	}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
