package gemini

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

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
				"finishReason": "STOP",
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     9,
			"candidatesTokenCount": 3,
			"totalTokenCount":      12,
		},
	}
}

func TestComplete_SystemInstruction(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		req := readBody(t, r)

		sys, ok := req["systemInstruction"].(map[string]any)
		require.True(t, ok)
		parts, _ := sys["parts"].([]any)
		require.Len(t, parts, 1)
		part, _ := parts[0].(map[string]any)
		assert.Equal(t, "Be terse.\n\nAlways answer in French.", part["text"])

		genCfg, ok := req["generationConfig"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 0.7, genCfg["temperature"])
		assert.Equal(t, float64(2048), genCfg["maxOutputTokens"])

		contents, ok := req["contents"].([]any)
		require.True(t, ok)
		require.Len(t, contents, 2)

		first, _ := contents[0].(map[string]any)
		assert.Equal(t, "user", first["role"])
		second, _ := contents[1].(map[string]any)
		assert.Equal(t, "model", second["role"])

		writeJSON(t, w, textResponse("Bonjour!"))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{
			provider.SystemMessage("Be terse."),
			provider.UserMessage("Hello"),
			provider.AssistantMessage("Hi"),
			provider.SystemMessage("Always answer in French."),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bonjour!", resp.Text)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.Equal(t, provider.FinishReasonStop, resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 9, resp.Usage.PromptTokens)
	assert.Equal(t, 3, resp.Usage.CompletionTokens)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestComplete_ModelInPath(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", r.URL.Path)
		writeJSON(t, w, textResponse("ok"))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
		Config:   provider.MustConfig("gemini-2.5-pro"),
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", resp.Model)
}

func TestComplete_ToolConversation(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)
		tool, _ := tools[0].(map[string]any)
		decls, _ := tool["functionDeclarations"].([]any)
		require.Len(t, decls, 1)
		decl, _ := decls[0].(map[string]any)
		assert.Equal(t, "get_weather", decl["name"])

		contents, ok := req["contents"].([]any)
		require.True(t, ok)
		require.Len(t, contents, 4)

		// Assistant turn echoes its call as a functionCall part.
		second, _ := contents[1].(map[string]any)
		assert.Equal(t, "model", second["role"])
		parts, _ := second["parts"].([]any)
		require.Len(t, parts, 1)
		part, _ := parts[0].(map[string]any)
		call, _ := part["functionCall"].(map[string]any)
		require.NotNil(t, call)
		assert.Equal(t, "get_weather", call["name"])
		assert.Equal(t, map[string]any{"city": "Paris"}, call["args"])

		// JSON tool output travels structured, addressed by function name.
		third, _ := contents[2].(map[string]any)
		assert.Equal(t, "user", third["role"])
		parts, _ = third["parts"].([]any)
		require.Len(t, parts, 1)
		part, _ = parts[0].(map[string]any)
		fnResp, _ := part["functionResponse"].(map[string]any)
		require.NotNil(t, fnResp)
		assert.Equal(t, "get_weather", fnResp["name"])
		assert.Equal(t, map[string]any{"temp": "22C"}, fnResp["response"])

		// Non-JSON output travels verbatim; the call ID stands in for a
		// missing function name.
		fourth, _ := contents[3].(map[string]any)
		parts, _ = fourth["parts"].([]any)
		require.Len(t, parts, 1)
		part, _ = parts[0].(map[string]any)
		fnResp, _ = part["functionResponse"].(map[string]any)
		require.NotNil(t, fnResp)
		assert.Equal(t, "call_0", fnResp["name"])
		assert.Equal(t, "plain text result", fnResp["response"])

		writeJSON(t, w, textResponse("The weather in Paris is sunny."))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{
			provider.UserMessage("What's the weather in Paris?"),
			{
				Role: provider.RoleAssistant,
				ToolCalls: []*provider.ToolCall{
					{CallID: "call_0", Name: "get_weather", Arguments: map[string]any{"city": "Paris"}},
				},
			},
			provider.ToolMessage("call_0", "get_weather", `{"temp":"22C"}`),
			provider.ToolMessage("call_0", "", "plain text result"),
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

func TestComplete_FunctionCallResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role": "model",
						"parts": []map[string]any{
							{"text": "Checking the weather."},
							{"functionCall": map[string]any{
								"name": "get_weather",
								"args": map[string]any{"city": "Paris"},
							}},
							{"functionCall": map[string]any{
								"name": "get_time",
							}},
						},
					},
					"finishReason": "STOP",
				},
			},
		})
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Weather in Paris?")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Checking the weather.", resp.Text)

	// Gemini assigns no call IDs: every call gets a synthesized one.
	require.Len(t, resp.ToolCalls, 2)
	require.NotNil(t, resp.ToolCalls[0])
	assert.Equal(t, "call_0", resp.ToolCalls[0].CallID)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, resp.ToolCalls[0].Arguments)

	require.NotNil(t, resp.ToolCalls[1])
	assert.Equal(t, "call_1", resp.ToolCalls[1].CallID)
	assert.Equal(t, map[string]any{}, resp.ToolCalls[1].Arguments)
}

func TestComplete_LengthFinish(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"candidates": []map[string]any{
				{
					"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": "truncat"}}},
					"finishReason": "MAX_TOKENS",
				},
			},
		})
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, provider.FinishReasonLength, resp.FinishReason)
}

func TestComplete_EmptyCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"usageMetadata": map[string]any{"promptTokenCount": 5, "totalTokenCount": 5},
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
		writeJSON(t, w, textResponse("ok"))
	})

	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: "narrator", Content: "Hi"}},
	})

	var transErr *provider.TranslationError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "gemini", transErr.Provider)
	assert.False(t, called)
}

func TestComplete_APIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := p.Complete(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("Hi")},
	})

	var backendErr *provider.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "gemini", backendErr.Provider)
	assert.Equal(t, http.StatusBadRequest, backendErr.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", backendErr.Type)
	assert.Equal(t, "API key not valid", backendErr.Message)
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
		assert.Equal(t, "gemini", p.Name())
	})
}
