package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platenhq/platen/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	return p
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func textResponse(text, model string) map[string]any {
	return map[string]any{
		"model": model,
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
}

func TestComplete_SimpleText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		req := readBody(t, r)

		assert.Equal(t, DefaultModel, req["model"])
		assert.Equal(t, 0.7, req["temperature"])
		assert.Equal(t, float64(2048), req["max_tokens"])

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "You are helpful.", first["content"])

		second, _ := msgs[1].(map[string]any)
		assert.Equal(t, "user", second["role"])

		writeJSON(t, w, textResponse("Hello there!", "gpt-4o-mini-2024-07-18"))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{
			provider.SystemMessage("You are helpful."),
			provider.UserMessage("Hi"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", resp.Text)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", resp.Model)
	assert.Equal(t, provider.FinishReasonStop, resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 10, resp.Usage.PromptTokens)
	assert.Equal(t, 5, resp.Usage.CompletionTokens)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestComplete_ConfigOverrides(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		assert.Equal(t, "gpt-4o", req["model"])
		assert.Equal(t, 0.2, req["temperature"])
		assert.Equal(t, float64(100), req["max_tokens"])

		writeJSON(t, w, textResponse("ok", "gpt-4o"))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
		Config: provider.MustConfig("gpt-4o",
			provider.WithTemperature(0.2),
			provider.WithMaxTokens(100)),
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", resp.Model)
}

func TestComplete_ParamsPassThrough(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		assert.Equal(t, 0.9, req["top_p"])
		assert.Equal(t, float64(42), req["seed"])

		writeJSON(t, w, textResponse("ok", "gpt-4o-mini"))
	})

	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
		Config: provider.MustConfig("",
			provider.WithParam("top_p", 0.9),
			provider.WithParam("seed", 42)),
	})
	require.NoError(t, err)
}

func TestComplete_ToolConversation(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)

		tool, _ := tools[0].(map[string]any)
		assert.Equal(t, "function", tool["type"])

		fn, _ := tool["function"].(map[string]any)
		assert.Equal(t, "get_weather", fn["name"])

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 3)

		// Assistant turn echoes its prior call.
		second, _ := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", second["role"])
		calls, ok := second["tool_calls"].([]any)
		require.True(t, ok)
		require.Len(t, calls, 1)
		call, _ := calls[0].(map[string]any)
		assert.Equal(t, "call_abc", call["id"])
		callFn, _ := call["function"].(map[string]any)
		assert.Equal(t, "get_weather", callFn["name"])
		assert.JSONEq(t, `{"city":"Paris"}`, callFn["arguments"].(string))

		// Tool result is addressed by call ID.
		third, _ := msgs[2].(map[string]any)
		assert.Equal(t, "tool", third["role"])
		assert.Equal(t, "call_abc", third["tool_call_id"])

		writeJSON(t, w, textResponse("The weather in Paris is sunny.", "gpt-4o-mini"))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{
			provider.UserMessage("What's the weather in Paris?"),
			{
				Role: provider.RoleAssistant,
				ToolCalls: []*provider.ToolCall{
					{CallID: "call_abc", Name: "get_weather", Arguments: map[string]any{"city": "Paris"}},
				},
			},
			provider.ToolMessage("call_abc", "get_weather", `{"temp":"22C"}`),
		},
		Tools: []provider.ToolDef{
			{
				Name:        "get_weather",
				Description: "Get weather for a city",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "The weather in Paris is sunny.", resp.Text)
}

func TestComplete_ToolCallNormalization(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{
							{
								"id":   "call_1",
								"type": "function",
								"function": map[string]any{
									"name":      "get_weather",
									"arguments": `{"city":"Paris"}`,
								},
							},
							{
								"id":   "call_bad",
								"type": "function",
								"function": map[string]any{
									"name":      "get_weather",
									"arguments": `{"city":`,
								},
							},
							{
								"type": "function",
								"function": map[string]any{
									"name":      "get_time",
									"arguments": "",
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, provider.FinishReasonToolCalls, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 3)

	require.NotNil(t, resp.ToolCalls[0])
	assert.Equal(t, "call_1", resp.ToolCalls[0].CallID)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, resp.ToolCalls[0].Arguments)

	// Unparsable arguments keep the slot but carry no call.
	assert.Nil(t, resp.ToolCalls[1])

	// A call without an ID gets one synthesized from its position.
	require.NotNil(t, resp.ToolCalls[2])
	assert.Equal(t, "call_2", resp.ToolCalls[2].CallID)
	assert.Equal(t, map[string]any{}, resp.ToolCalls[2].Arguments)
}

func TestComplete_ModelFallback(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": "ok"},
					"finish_reason": "stop",
				},
			},
		})
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.Nil(t, resp.Usage)
}

func TestComplete_EmptyChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{},
			"usage":   map[string]any{"prompt_tokens": 5, "completion_tokens": 0, "total_tokens": 5},
		})
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Text)
	assert.Empty(t, resp.ToolCalls)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestComplete_UnsupportedRole(t *testing.T) {
	called := false
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
		writeJSON(t, w, textResponse("ok", "gpt-4o-mini"))
	})

	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: "narrator", Content: "Hi"}},
	})

	var transErr *provider.TranslationError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "openai", transErr.Provider)
	assert.False(t, called)
}

func TestComplete_APIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_error","code":"rate_limit_exceeded"}}`))
	})

	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
	})

	var backendErr *provider.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "openai", backendErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, backendErr.StatusCode)
	assert.Equal(t, "Rate limit reached", backendErr.Message)
	assert.Equal(t, "rate_limit_error", backendErr.Type)
	assert.Equal(t, "rate_limit_exceeded", backendErr.Code)
}

func TestComplete_APIErrorUnparsable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})

	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
	})

	var backendErr *provider.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusBadGateway, backendErr.StatusCode)
	assert.Equal(t, "bad gateway", backendErr.Message)
	assert.Empty(t, backendErr.Type)
}

func TestNew_CredentialResolution(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv(credentialEnv, "")

		_, err := New()
		var cfgErr *provider.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, err.Error(), credentialEnv)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv(credentialEnv, "env-key")

		p, err := New()
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("option wins", func(t *testing.T) {
		t.Setenv(credentialEnv, "env-key")

		p, err := New(WithAPIKey("explicit-key"))
		require.NoError(t, err)
		assert.NotNil(t, p)
	})
}
