// Package gemini implements the Google Gemini generateContent backend.
//
// Gemini keeps the system prompt in a dedicated systemInstruction block:
// the first system message is hoisted there and later system content is
// appended. The assistant role maps to "model". Tool results become user
// turns carrying a functionResponse part addressed by function name, and
// since the API assigns no call IDs, normalized calls get synthesized
// per-response sequence IDs.
package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/platenhq/platen/provider"
)

const (
	// DefaultModel serves requests whose Config names no model.
	DefaultModel = "gemini-2.5-flash"

	credentialEnv = "GEMINI_API_KEY"
)

// Models lists the models this provider accepts by default.
var Models = []string{"gemini-2.5-pro", "gemini-2.5-flash"}

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

// Provider implements the Gemini API.
type Provider struct {
	client       *client
	defaultModel string
}

// Option configures the Gemini provider.
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

// New creates a new Gemini provider.
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
			Msg: "Gemini API key required: set " + credentialEnv + " or use WithAPIKey",
		}
	}

	return &Provider{
		client:       newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient),
		defaultModel: cfg.defaultModel,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := req.Config.Model()
	if model == "" {
		model = p.defaultModel
	}

	apiReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	apiResp, err := p.client.generateContent(ctx, model, apiReq, req.Config.Params())
	if err != nil {
		return nil, err
	}

	return p.convertResponse(apiResp, model), nil
}

// buildRequest converts a provider.Request to a Gemini API request.
func (p *Provider) buildRequest(req *provider.Request) (*generateContentRequest, error) {
	temperature := req.Config.Temperature()
	maxTokens := req.Config.MaxTokens()
	system, rest := provider.SplitSystem(req.Messages)

	apiReq := &generateContentRequest{
		Contents: make([]content, 0, len(rest)),
		GenerationConfig: &generationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: &maxTokens,
		},
	}

	if system != "" {
		apiReq.SystemInstruction = &content{
			Parts: []part{{Text: system}},
		}
	}

	for _, msg := range rest {
		switch msg.Role {
		case provider.RoleUser, provider.RoleAssistant:
			// Handled below.
		case provider.RoleTool:
			name := msg.ToolName
			if name == "" {
				name = msg.ToolID
			}

			// The result content rides along as structured data when it
			// parses, verbatim text otherwise.
			var responseData any
			if err := json.Unmarshal([]byte(msg.Content), &responseData); err != nil || responseData == nil {
				responseData = msg.Content
			}

			apiReq.Contents = append(apiReq.Contents, content{
				Role: "user",
				Parts: []part{{
					FunctionResponse: &functionResponse{
						Name:     name,
						Response: responseData,
					},
				}},
			})
			continue
		default:
			return nil, &provider.TranslationError{
				Provider: "gemini",
				Msg:      "unsupported role " + string(msg.Role),
			}
		}

		apiContent := content{
			Role:  convertRole(msg.Role),
			Parts: make([]part, 0, 1),
		}

		// Echo prior tool calls on assistant turns.
		for _, tc := range msg.ToolCalls {
			if tc == nil {
				continue
			}
			apiContent.Parts = append(apiContent.Parts, part{
				FunctionCall: &functionCall{
					Name: tc.Name,
					Args: tc.Arguments,
				},
			})
		}

		if msg.Content != "" {
			apiContent.Parts = append(apiContent.Parts, part{Text: msg.Content})
		}

		if len(apiContent.Parts) > 0 {
			apiReq.Contents = append(apiReq.Contents, apiContent)
		}
	}

	if len(req.Tools) > 0 {
		funcDecls := make([]functionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			funcDecls = append(funcDecls, functionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		apiReq.Tools = []tool{{FunctionDeclarations: funcDecls}}
	}

	return apiReq, nil
}

// convertResponse converts a Gemini API response to a provider.Response.
func (p *Provider) convertResponse(resp *generateContentResponse, model string) *provider.Response {
	result := &provider.Response{Model: model}

	if resp.UsageMetadata != nil {
		result.Usage = &provider.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	if len(resp.Candidates) == 0 {
		return result
	}

	candidate := resp.Candidates[0]
	result.FinishReason = convertFinishReason(candidate.FinishReason)

	if candidate.Content != nil {
		callIdx := 0
		for _, pt := range candidate.Content.Parts {
			if pt.Text != "" {
				result.Text += pt.Text
			}
			if pt.FunctionCall != nil {
				args := pt.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				result.ToolCalls = append(result.ToolCalls, &provider.ToolCall{
					CallID:    provider.SynthCallID(callIdx),
					Name:      pt.FunctionCall.Name,
					Arguments: args,
				})
				callIdx++
			}
		}
	}

	return result
}

func convertRole(role provider.Role) string {
	switch role {
	case provider.RoleAssistant:
		return "model"
	default:
		return "user"
	}
}

func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "MAX_TOKENS":
		return provider.FinishReasonLength
	case "TOOL_USE", "FUNCTION_CALL":
		return provider.FinishReasonToolCalls
	default:
		return provider.FinishReasonStop
	}
}
