package classifier

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.0-flash"

	systemPrompt = `You are a validation engine for vulnerability data scraped from the web. If a user's message looks like a CVE description without errors, respond with "0" or else "1"`
)

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new genai client")
	}
	return &Gemini{client: c, model: model}, nil
}

func (g *Gemini) TokenCount(ctx context.Context, text string) (int, error) {
	resp, err := g.client.Models.CountTokens(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return 0, errors.Wrapf(err, "count tokens with %s", g.model)
	}
	return int(resp.TotalTokens), nil
}

func (g *Gemini) Classify(ctx context.Context, text string) (bool, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return false, errors.Wrapf(err, "generate content with %s", g.model)
	}
	return ParseAnswer(resp.Text())
}
