package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// generator abstracts the model call so scoring and analysis logic can be
// tested against a fake.
type generator interface {
	Generate(ctx context.Context, system, prompt string, temperature float32, maxTokens int32) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) Generate(ctx context.Context, system, prompt string, temperature float32, maxTokens int32) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// Client wraps the model API with a process-wide minimum-interval throttle
// and a daily request budget. All outbound calls go through generate.
type Client struct {
	gen     generator
	limiter *rate.Limiter
	budget  *Budget
}

// NewClient builds the production client. minInterval spaces outbound
// calls regardless of caller concurrency.
func NewClient(ctx context.Context, apiKey, model string, minInterval time.Duration, budget *Budget) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return newClient(&geminiGenerator{client: client, model: model}, minInterval, budget), nil
}

func newClient(gen generator, minInterval time.Duration, budget *Budget) *Client {
	if minInterval <= 0 {
		minInterval = 500 * time.Millisecond
	}
	return &Client{
		gen:     gen,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		budget:  budget,
	}
}

func (c *Client) generate(ctx context.Context, system, prompt string, temperature float32, maxTokens int32) (string, error) {
	if c.budget != nil {
		if err := c.budget.Take(); err != nil {
			return "", err
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.gen.Generate(ctx, system, prompt, temperature, maxTokens)
}
