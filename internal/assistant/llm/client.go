package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/community-assistant/server/internal/assistant/model"
	logx "github.com/community-assistant/server/pkg/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Factory builds a chat model for the given model name.
type Factory func(ctx context.Context, modelName string) (einomodel.ToolCallingChatModel, error)

// StructuredFactory builds a chat model whose replies follow format.
type StructuredFactory func(ctx context.Context, modelName string, format *ResponseFormat) (einomodel.ToolCallingChatModel, error)

// Client is the process-wide completion client handle. Chat models are built
// lazily on first use so missing credentials surface at the API boundary.
type Client struct {
	factory      Factory
	structured   StructuredFactory
	defaultModel string

	mu     sync.Mutex
	models map[string]einomodel.ToolCallingChatModel
}

// New returns a Client that builds models with factory.
func New(factory Factory, defaultModel string) *Client {
	return &Client{
		factory:      factory,
		defaultModel: defaultModel,
		models:       map[string]einomodel.ToolCallingChatModel{},
	}
}

// NewClient creates the client for the configured provider.
func NewClient(ctx context.Context, cfg model.LLMConfig) (*Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return New(openAIFactory(cfg), cfg.ChatModel).WithStructuredFactory(openAIStructuredFactory(cfg)), nil
	case ProviderGemini:
		return New(geminiFactory(cfg), cfg.ChatModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// WithStructuredFactory lets StructuredChatModel ask the provider for schema
// constrained replies. Without one, StructuredChatModel returns the plain model.
func (c *Client) WithStructuredFactory(f StructuredFactory) *Client {
	c.structured = f
	return c
}

// DefaultModel is the model used when callers pass an empty name.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

// ChatModel returns the chat model for name, building it once.
func (c *Client) ChatModel(ctx context.Context, name string) (einomodel.ToolCallingChatModel, error) {
	if name == "" {
		name = c.defaultModel
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cm, ok := c.models[name]; ok {
		return cm, nil
	}
	cm, err := c.factory(ctx, name)
	if err != nil {
		return nil, err
	}
	c.models[name] = cm
	logx.Debug().Str("model", name).Msg("chat model created")
	return cm, nil
}

// StructuredChatModel returns the chat model for name constrained to format,
// building it once per model and format name.
func (c *Client) StructuredChatModel(ctx context.Context, name string, format *ResponseFormat) (einomodel.ToolCallingChatModel, error) {
	if c.structured == nil || format == nil {
		return c.ChatModel(ctx, name)
	}
	if name == "" {
		name = c.defaultModel
	}
	key := name + "#" + format.Name

	c.mu.Lock()
	defer c.mu.Unlock()

	if cm, ok := c.models[key]; ok {
		return cm, nil
	}
	cm, err := c.structured(ctx, name, format)
	if err != nil {
		return nil, err
	}
	c.models[key] = cm
	logx.Debug().Str("model", name).Str("format", format.Name).Msg("structured chat model created")
	return cm, nil
}

func openAIFactory(cfg model.LLMConfig) Factory {
	return func(ctx context.Context, name string) (einomodel.ToolCallingChatModel, error) {
		return newOpenAIModel(ctx, cfg, name, nil)
	}
}

func openAIStructuredFactory(cfg model.LLMConfig) StructuredFactory {
	return func(ctx context.Context, name string, format *ResponseFormat) (einomodel.ToolCallingChatModel, error) {
		return newOpenAIModel(ctx, cfg, name, format.openAI())
	}
}

func newOpenAIModel(ctx context.Context, cfg model.LLMConfig, name string, format *openai.ChatCompletionResponseFormat) (einomodel.ToolCallingChatModel, error) {
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Model:          name,
		Temperature:    &temperature,
		MaxTokens:      &maxTokens,
		ResponseFormat: format,
	})
	if err != nil {
		logx.Error().Err(err).Str("model", name).Msg("Error creating OpenAI chat model")
		return nil, fmt.Errorf("error creating OpenAI chat model: %w", err)
	}
	return cm, nil
}

func geminiFactory(cfg model.LLMConfig) Factory {
	var (
		once      sync.Once
		client    *genai.Client
		clientErr error
	)
	return func(ctx context.Context, name string) (einomodel.ToolCallingChatModel, error) {
		once.Do(func() {
			clientCfg := &genai.ClientConfig{
				APIKey:  cfg.GeminiAPIKey,
				Backend: genai.BackendGeminiAPI,
			}
			if cfg.GeminiBaseURL != "" {
				clientCfg.HTTPOptions.BaseURL = cfg.GeminiBaseURL
			}
			client, clientErr = genai.NewClient(ctx, clientCfg)
		})
		if clientErr != nil {
			logx.Error().Err(clientErr).Msg("Error creating Gemini client")
			return nil, fmt.Errorf("error creating Gemini client: %w", clientErr)
		}

		temperature := cfg.Temperature
		maxTokens := cfg.MaxTokens
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       name,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			logx.Error().Err(err).Str("model", name).Msg("Error creating Gemini chat model")
			return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
		}
		return cm, nil
	}
}
