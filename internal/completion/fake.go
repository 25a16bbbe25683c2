package completion

import "context"

// FakeProvider is a deterministic in-process Provider for tests that
// must not make a live model call. Once Responses is exhausted it keeps
// returning the last one.
type FakeProvider struct {
	Responses []string
	calls     int
	Err       error
}

func (f *FakeProvider) Generate(ctx context.Context, prompt string, requestID string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	if f.calls >= len(f.Responses) {
		return f.Responses[len(f.Responses)-1], nil
	}
	resp := f.Responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *FakeProvider) GenerateBatch(ctx context.Context, prompts []string) ([]string, error) {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		r, err := f.Generate(ctx, p, "")
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (f *FakeProvider) CallCount() int { return f.calls }
