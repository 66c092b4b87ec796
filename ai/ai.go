// Package ai turns generation requests into agent speech using a hosted
// chat model, with deterministic offline text when none is configured.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kmh4500/ainspace/core"
)

const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
)

// LLMConfig holds configuration for LLM interactions
type LLMConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// DefaultLLMConfig returns standard LLM configuration
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    ProviderGemini,
		Model:       "gemini-1.5-flash",
		MaxTokens:   256,
		Temperature: 0.8,
		Timeout:     15 * time.Second,
	}
}

// Completer sends one system + user prompt pair to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAI completes prompts with the chat completion API.
type OpenAI struct {
	client *openai.Client
	cfg    LLMConfig
}

func NewOpenAI(cfg LLMConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Gemini completes prompts with Google's generative models.
type Gemini struct {
	client *genai.Client
	cfg    LLMConfig
}

func NewGemini(ctx context.Context, cfg LLMConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMConfig().Model
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.cfg.Temperature),
	}
	if g.cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(g.cfg.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Generator is the text source consumed by local agents.
type Generator interface {
	Generate(ctx context.Context, req core.GenerationRequest) (string, error)
}

// NewCompleter builds the completer for the configured provider. It returns
// nil without error when the provider is offline or has no API key.
func NewCompleter(ctx context.Context, cfg LLMConfig, logger *zap.Logger) (Completer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderOffline:
		return nil, nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, using offline responses")
			return nil, nil
		}
		return NewOpenAI(cfg)
	case ProviderGemini, "":
		if cfg.APIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, using offline responses")
			return nil, nil
		}
		return NewGemini(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// NewGenerator picks the configured provider. Missing credentials fall back
// to the offline generator so the world keeps talking.
func NewGenerator(ctx context.Context, cfg LLMConfig, logger *zap.Logger) (Generator, error) {
	c, err := NewCompleter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return GeneratorFor(c, cfg, logger), nil
}

// GeneratorFor wraps c in a Responder, or returns Offline for a nil c.
func GeneratorFor(c Completer, cfg LLMConfig, logger *zap.Logger) Generator {
	if c == nil {
		return Offline{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewResponder(c, WithTimeout(cfg.Timeout), WithLogger(logger))
}
