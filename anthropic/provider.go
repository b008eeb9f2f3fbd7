// Package anthropic implements the Anthropic Messages API backend.
//
// System messages have no turn-level equivalent here: the first system
// message is hoisted into the request's system field and any later system
// content is appended to it. Tool results have no dedicated role either;
// a tool message becomes a user turn carrying a tool_result block
// addressed by call ID.
package anthropic

import (
	"context"
	"net/http"
	"os"

	"github.com/platenhq/platen/provider"
)

const (
	// DefaultModel serves requests whose Config names no model.
	DefaultModel = "claude-3-haiku-20240307"

	credentialEnv = "ANTHROPIC_API_KEY"
)

// Models lists the models this provider accepts by default.
var Models = []string{
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
}

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

// Provider implements the Anthropic Messages API.
type Provider struct {
	client       *client
	defaultModel string
}

// Option configures the Anthropic provider.
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

// New creates a new Anthropic provider.
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
			Msg: "Anthropic API key required: set " + credentialEnv + " or use WithAPIKey",
		}
	}

	return &Provider{
		client:       newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient),
		defaultModel: cfg.defaultModel,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "anthropic"
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	apiResp, err := p.client.messages(ctx, apiReq, req.Config.Params())
	if err != nil {
		return nil, err
	}

	return p.convertResponse(apiResp, apiReq.Model), nil
}

// buildRequest converts a provider.Request to an Anthropic API request.
func (p *Provider) buildRequest(req *provider.Request) (*messagesRequest, error) {
	model := req.Config.Model()
	if model == "" {
		model = p.defaultModel
	}

	temperature := req.Config.Temperature()
	system, rest := provider.SplitSystem(req.Messages)

	apiReq := &messagesRequest{
		Model:       model,
		System:      system,
		Messages:    make([]message, 0, len(rest)),
		MaxTokens:   req.Config.MaxTokens(),
		Temperature: &temperature,
	}

	for _, msg := range rest {
		switch msg.Role {
		case provider.RoleUser, provider.RoleAssistant:
			// Handled below.
		case provider.RoleTool:
			apiReq.Messages = append(apiReq.Messages, message{
				Role: "user",
				Content: []contentPart{{
					Type:      "tool_result",
					ToolUseID: msg.ToolID,
					Content:   msg.Content,
				}},
			})
			continue
		default:
			return nil, &provider.TranslationError{
				Provider: "anthropic",
				Msg:      "unsupported role " + string(msg.Role),
			}
		}

		apiMsg := message{Role: string(msg.Role)}

		// Echo prior tool calls on assistant turns.
		for _, tc := range msg.ToolCalls {
			if tc == nil {
				continue
			}
			apiMsg.Content = append(apiMsg.Content, contentPart{
				Type:  "tool_use",
				ID:    tc.CallID,
				Name:  tc.Name,
				Input: tc.Arguments,
			})
		}

		if msg.Content != "" {
			apiMsg.Content = append(apiMsg.Content, contentPart{
				Type: "text",
				Text: msg.Content,
			})
		}

		if len(apiMsg.Content) > 0 {
			apiReq.Messages = append(apiReq.Messages, apiMsg)
		}
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}

	return apiReq, nil
}

// convertResponse converts an Anthropic API response to a provider.Response.
func (p *Provider) convertResponse(resp *messagesResponse, requestedModel string) *provider.Response {
	result := &provider.Response{
		Model:        resp.Model,
		FinishReason: convertStopReason(resp.StopReason),
	}
	if result.Model == "" {
		result.Model = requestedModel
	}

	if resp.Usage != nil {
		result.Usage = &provider.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}

	callIdx := 0
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Text += block.Text
		case "tool_use":
			args, ok := toArgs(block.Input)
			if !ok {
				result.ToolCalls = append(result.ToolCalls, nil)
				callIdx++
				continue
			}

			id := block.ID
			if id == "" {
				id = provider.SynthCallID(callIdx)
			}
			result.ToolCalls = append(result.ToolCalls, &provider.ToolCall{
				CallID:    id,
				Name:      block.Name,
				Arguments: args,
			})
			callIdx++
		}
	}

	return result
}

// toArgs coerces a tool_use input block into an argument map. The wire
// contract says input is an object, but a malformed reply must flag only
// that call.
func toArgs(input any) (map[string]any, bool) {
	if input == nil {
		return map[string]any{}, true
	}
	args, ok := input.(map[string]any)
	return args, ok
}

func convertStopReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_use":
		return provider.FinishReasonToolCalls
	case "max_tokens":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}
