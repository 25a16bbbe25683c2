package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"ragforge/internal/ragerr"
)

// GeminiProvider wraps the genai client's embedding endpoint, grounded
// in the teacher's llm.Client.GenerateEmbedding (gemini-embedding-001
// with Matryoshka truncation to the index's configured dimension).
type GeminiProvider struct {
	client *genai.Client
	model  string
	dims   IndexDimensions
}

func NewGeminiProvider(client *genai.Client, model string, dims IndexDimensions) *GeminiProvider {
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiProvider{client: client, model: model, dims: dims}
}

func (p *GeminiProvider) Embed(ctx context.Context, text string, indexName string) ([]float32, error) {
	if err := validateInputSize(text); err != nil {
		return nil, err
	}
	want, ok := p.dims[indexName]
	if !ok {
		return nil, ragerr.New(ragerr.IndexMissing, indexName, nil)
	}
	dims := int32(want)

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, classifyGenaiEmbedError(indexName, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ragerr.New(ragerr.EmbedProviderDown, indexName, fmt.Errorf("no embedding values returned"))
	}

	vector := resp.Embeddings[0].Values
	if err := validateDimension(p.dims, indexName, vector); err != nil {
		return nil, err
	}
	return vector, nil
}

func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string, indexName string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t, indexName)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func classifyGenaiEmbedError(indexName string, err error) error {
	msg := err.Error()
	if isRateLimitMessage(msg) {
		return ragerr.New(ragerr.EmbedRateLimited, indexName, err)
	}
	return ragerr.New(ragerr.EmbedProviderDown, indexName, err)
}

// isRateLimitMessage matches the provider-agnostic rate-limit substrings
// from §5: "429", "quota", "rate limit", "resource exhausted".
func isRateLimitMessage(msg string) bool {
	for _, needle := range []string{"429", "quota", "rate limit", "resource exhausted"} {
		if containsFold(msg, needle) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	toLower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			if toLower(h[i+j]) != toLower(n[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
