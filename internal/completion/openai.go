package completion

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ragforge/internal/ragerr"
)

// OpenAIProvider is the secondary completion backend, grounded in the
// teacher's services.aiRouter local/cloud routing idiom: rather than
// routing to an on-device model, this generalises the same two-backend
// shape to "Gemini primary / OpenAI secondary" selectable via config.
type OpenAIProvider struct {
	client  openai.Client
	opts    Options
	limiter *rateLimiter
}

func NewOpenAIProvider(apiKey string, opts Options) *OpenAIProvider {
	opts = opts.withDefaults()
	if opts.Model == "" {
		opts.Model = openai.ChatModelGPT4oMini
	}
	return &OpenAIProvider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		opts:    opts,
		limiter: newRateLimiter(opts.Proactive, opts.MaxPerMinute),
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, requestID string) (string, error) {
	return withRetry(ctx, p.limiter, "openai:"+p.opts.Model, p.opts, requestID, func(callCtx context.Context) (string, error) {
		resp, err := p.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
			Model: p.opts.Model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(float64(p.opts.Temperature)),
			MaxTokens:   openai.Int(int64(p.opts.MaxOutputTokens)),
		})
		if err != nil {
			return "", classifyMessage("openai", "generate", err.Error(), err)
		}
		if len(resp.Choices) == 0 {
			return "", ragerr.New(ragerr.GenProviderDown, "openai", fmt.Errorf("no choices returned"))
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func (p *OpenAIProvider) GenerateBatch(ctx context.Context, prompts []string) ([]string, error) {
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
