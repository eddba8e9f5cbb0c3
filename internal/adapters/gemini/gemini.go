// Package gemini implements the narrative generator on Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/okian/garden/internal/domain/narrative"
)

const defaultModel = "gemini-2.0-flash"

// models is the slice of *genai.Models the generator needs.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator asks a Gemini model for narrative lines.
type Generator struct {
	models      models
	model       string
	temperature float32
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(g *Generator) {
		if t >= 0 {
			g.temperature = t
		}
	}
}

// New creates a Generator. An empty apiKey yields narrative.ErrUnavailable so
// callers can fall back to the phrase bank.
func New(ctx context.Context, apiKey string, opts ...Option) (*Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: api key is not set", narrative.ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGenerator(client.Models, opts...), nil
}

func newGenerator(m models, opts ...Option) *Generator {
	g := &Generator{models: m, model: defaultModel, temperature: 0.7}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements narrative.Generator.
func (g *Generator) Generate(ctx context.Context, req narrative.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if req.Instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.Data), cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("GenAI generate returned no response")
	}
	return resp.Text(), nil
}

// Name returns the generator name.
func (g *Generator) Name() string {
	return "genai:" + g.model
}
