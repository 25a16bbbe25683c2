package completion

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider is the primary completion backend, grounded in the
// teacher's llm.Client.generateContent (model/temperature/max-tokens
// config, genai.Text content parts).
type GeminiProvider struct {
	client  *genai.Client
	opts    Options
	limiter *rateLimiter
}

func NewGeminiProvider(client *genai.Client, opts Options) *GeminiProvider {
	opts = opts.withDefaults()
	if opts.Model == "" {
		opts.Model = "gemini-flash-lite-latest"
	}
	return &GeminiProvider{
		client:  client,
		opts:    opts,
		limiter: newRateLimiter(opts.Proactive, opts.MaxPerMinute),
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, requestID string) (string, error) {
	return withRetry(ctx, p.limiter, "gemini:"+p.opts.Model, p.opts, requestID, func(callCtx context.Context) (string, error) {
		contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
		cfg := &genai.GenerateContentConfig{
			Temperature:     &p.opts.Temperature,
			MaxOutputTokens: p.opts.MaxOutputTokens,
		}
		resp, err := p.client.Models.GenerateContent(callCtx, p.opts.Model, contents, cfg)
		if err != nil {
			return "", classifyMessage("gemini", "generate", err.Error(), err)
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return "", classifyMessage("gemini", "generate", "empty response", fmt.Errorf("no candidates returned"))
		}
		if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
			return "", classifyMessage("gemini", "generate", "safety", fmt.Errorf("blocked by safety filter"))
		}
		return resp.Text(), nil
	})
}

func (p *GeminiProvider) GenerateBatch(ctx context.Context, prompts []string) ([]string, error) {
	out := make([]string, len(prompts))
	for i, prompt := range prompts {
		text, err := p.Generate(ctx, prompt, fmt.Sprintf("batch-%d", i))
		if err != nil {
			return nil, err
		}
		out[i] = text
	}
	return out, nil
}
