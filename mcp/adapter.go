// Package mcp bridges Model Context Protocol servers into the
// provider tool model: server tools become ToolDefs to attach to a
// Request, and assistant tool calls are executed against the server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/platenhq/platen/provider"
)

// Client is a connection to one MCP server.
type Client struct {
	mcpClient *mcp.Client
	session   *mcp.ClientSession
	timeout   time.Duration
}

// Option configures the MCP client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout time.Duration
}

// WithTimeout sets the timeout for tool execution.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// NewStdioClient starts command as a subprocess and speaks MCP with it
// over stdio.
//
// Example:
//
//	client, err := mcp.NewStdioClient(ctx, "./my-mcp-server", nil)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	tools, err := client.Tools(ctx)
func NewStdioClient(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mcpClient := mcp.NewClient(&mcp.Implementation{
		Name:    "platen",
		Version: "0.1.0",
	}, nil)

	cmd := exec.Command(command, args...)
	transport := &mcp.CommandTransport{
		Command: cmd,
	}

	session, err := mcpClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server: %w", err)
	}

	return &Client{
		mcpClient: mcpClient,
		session:   session,
		timeout:   cfg.timeout,
	}, nil
}

// Tools lists the server's tools as ToolDefs ready to attach to a
// provider Request. Call executes the calls the model makes with
// them.
func (c *Client) Tools(ctx context.Context) ([]provider.ToolDef, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	defs := make([]provider.ToolDef, 0, len(result.Tools))
	for _, tool := range result.Tools {
		defs = append(defs, toolDefFrom(tool.Name, tool.Description, tool.InputSchema))
	}
	return defs, nil
}

// Call invokes a server tool and returns its flattened text output.
// The result feeds back into the conversation as a tool message.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("calling MCP tool %q: %w", name, err)
	}

	combined := flattenContent(result.Content)
	if result.IsError {
		return "", fmt.Errorf("MCP tool %q failed: %s", name, combined)
	}
	return combined, nil
}

// Close shuts down the server connection.
func (c *Client) Close() error {
	return c.session.Close()
}

// toolDefFrom converts a server tool description to a ToolDef. A
// schema that cannot be encoded degrades to an unconstrained object.
func toolDefFrom(name, description string, schema any) provider.ToolDef {
	params := json.RawMessage(`{"type":"object"}`)
	if schema != nil {
		if data, err := json.Marshal(schema); err == nil {
			params = data
		}
	}
	return provider.ToolDef{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
}

// flattenContent joins the result content into one string. Non-text
// items are represented as short descriptions.
func flattenContent(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch item := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, item.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s, %d bytes]", item.MIMEType, len(item.Data)))
		case *mcp.EmbeddedResource:
			if item.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Resource: %s]", item.Resource.URI))
			} else {
				parts = append(parts, "[Resource: embedded]")
			}
		}
	}
	return strings.Join(parts, "\n")
}
