// Package openai implements the OpenAI chat-completions backend.
//
// Role mapping is native: system, user, assistant and tool messages all
// have direct wire equivalents, so no hoisting or flattening occurs. Tool
// results are addressed by call ID.
package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/platenhq/platen/provider"
)

const (
	// DefaultModel serves requests whose Config names no model.
	DefaultModel = "gpt-4o-mini"

	credentialEnv = "OPENAI_API_KEY"
)

// Models lists the models this provider accepts by default.
var Models = []string{"gpt-4o", "gpt-4o-mini"}

// Entry returns the registry entry for this backend.
func Entry() provider.Entry {
	return provider.Entry{
		New: func() (provider.Provider, error) {
			return New()
		},
		Info: provider.Info{
			DefaultModel:  DefaultModel,
			Models:        Models,
			CredentialEnv: credentialEnv,
		},
	}
}

// Provider implements the OpenAI API.
type Provider struct {
	client       *client
	defaultModel string
}

// Option configures the OpenAI provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *providerConfig) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *providerConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *providerConfig) {
		c.httpClient = client
	}
}

// WithDefaultModel overrides the model used when a request names none.
func WithDefaultModel(model string) Option {
	return func(c *providerConfig) {
		c.defaultModel = model
	}
}

// New creates a new OpenAI provider.
func New(opts ...Option) (*Provider, error) {
	cfg := &providerConfig{defaultModel: DefaultModel}
	for _, opt := range opts {
		opt(cfg)
	}

	// Fall back to environment variable
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv(credentialEnv)
	}

	if cfg.apiKey == "" {
		return nil, &provider.ConfigError{
			Msg: "OpenAI API key required: set " + credentialEnv + " or use WithAPIKey",
		}
	}

	return &Provider{
		client:       newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient),
		defaultModel: cfg.defaultModel,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openai"
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	apiResp, err := p.client.chatCompletion(ctx, apiReq, req.Config.Params())
	if err != nil {
		return nil, err
	}

	return p.convertResponse(apiResp, apiReq.Model), nil
}

// buildRequest converts a provider.Request to an OpenAI API request.
func (p *Provider) buildRequest(req *provider.Request) (*chatCompletionRequest, error) {
	model := req.Config.Model()
	if model == "" {
		model = p.defaultModel
	}

	temperature := req.Config.Temperature()
	maxTokens := req.Config.MaxTokens()

	apiReq := &chatCompletionRequest{
		Model:       model,
		Messages:    make([]message, 0, len(req.Messages)),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	for _, msg := range req.Messages {
		apiMsg := message{Content: msg.Content}

		switch msg.Role {
		case provider.RoleSystem:
			apiMsg.Role = "system"
		case provider.RoleUser:
			apiMsg.Role = "user"
		case provider.RoleAssistant:
			apiMsg.Role = "assistant"
		case provider.RoleTool:
			apiMsg.Role = "tool"
			apiMsg.ToolCallID = msg.ToolID
		default:
			return nil, &provider.TranslationError{
				Provider: "openai",
				Msg:      "unsupported role " + string(msg.Role),
			}
		}

		// Echo prior tool calls on assistant turns.
		for _, tc := range msg.ToolCalls {
			if tc == nil {
				continue
			}
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, toolCall{
				ID:   tc.CallID,
				Type: "function",
				Function: functionCall{
					Name:      tc.Name,
					Arguments: provider.EncodeToolArgs(tc.Arguments),
				},
			})
		}

		apiReq.Messages = append(apiReq.Messages, apiMsg)
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Type: "function",
			Function: functionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	return apiReq, nil
}

// convertResponse converts an OpenAI API response to a provider.Response.
func (p *Provider) convertResponse(resp *chatCompletionResponse, requestedModel string) *provider.Response {
	result := &provider.Response{Model: resp.Model}
	if result.Model == "" {
		result.Model = requestedModel
	}

	if resp.Usage != nil {
		result.Usage = &provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	if len(resp.Choices) == 0 {
		return result
	}

	choice := resp.Choices[0]
	result.Text = choice.Message.Content
	result.FinishReason = convertFinishReason(choice.FinishReason)

	for i, tc := range choice.Message.ToolCalls {
		args := provider.ParseToolArgs(tc.Function.Arguments)
		if args == nil {
			// Unparsable arguments: report the slot, keep the rest.
			result.ToolCalls = append(result.ToolCalls, nil)
			continue
		}

		id := tc.ID
		if id == "" {
			id = provider.SynthCallID(i)
		}
		result.ToolCalls = append(result.ToolCalls, &provider.ToolCall{
			CallID:    id,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return result
}

// convertFinishReason converts an OpenAI finish reason to a provider.FinishReason.
func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_calls":
		return provider.FinishReasonToolCalls
	case "length":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}
