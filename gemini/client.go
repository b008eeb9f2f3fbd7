package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/platenhq/platen/provider"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "v1beta"
)

// client wraps the HTTP client for Gemini API calls.
type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// newClient creates a new Gemini client.
func newClient(apiKey, baseURL string, httpClient *http.Client) *client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// generateContent sends a generateContent request. Pass-through
// parameters are merged into the encoded body verbatim.
func (c *client) generateContent(ctx context.Context, model string, req *generateContentRequest, extra map[string]any) (*generateContentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	body, err = provider.MergeParams(body, extra)
	if err != nil {
		return nil, &provider.TranslationError{
			Provider: "gemini",
			Msg:      fmt.Sprintf("merging params: %v", err),
		}
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &provider.BackendError{Provider: "gemini", Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &provider.BackendError{Provider: "gemini", Err: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, c.parseError(httpResp.StatusCode, respBody)
	}

	var resp generateContentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &resp, nil
}

func (c *client) parseError(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &provider.BackendError{
			Provider:   "gemini",
			StatusCode: statusCode,
			Message:    string(body),
		}
	}

	return &provider.BackendError{
		Provider:   "gemini",
		StatusCode: statusCode,
		Type:       errResp.Error.Status,
		Message:    errResp.Error.Message,
	}
}
