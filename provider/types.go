package provider

import "encoding/json"

// Request is a provider-agnostic LLM request.
type Request struct {
	Messages []Message
	Tools    []ToolDef
	Config   Config
}

// Message is a single turn in the conversation. Order is semantically
// meaningful and is preserved through translation.
type Message struct {
	Role    Role
	Content string

	// ToolCalls echoes a prior assistant turn's calls so tool
	// conversations round-trip. Nil entries (unparsable calls) are
	// skipped during translation.
	ToolCalls []*ToolCall

	// ToolID and ToolName identify the call a RoleTool message answers.
	// OpenAI and Anthropic address results by call ID, Gemini by
	// function name.
	ToolID   string
	ToolName string
}

// Role identifies the message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage creates a tool result message answering the given call.
func ToolMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolID: callID, ToolName: toolName}
}

// ToolDef declares a tool the model may call.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema for the arguments
}

// ToolCall is one normalized tool invocation from a response. Arguments
// are always parsed; backends that deliver them as a JSON string have them
// decoded during normalization.
type ToolCall struct {
	// CallID comes from the backend when it assigns one, otherwise it is
	// synthesized from the call's position in the response ("call_0",
	// "call_1", ...).
	CallID    string
	Name      string
	Arguments map[string]any
}

// Response is the normalized result of a Complete call.
//
// ToolCalls preserves the backend's call order. An entry is nil when the
// backend returned arguments that could not be parsed; the rest of the
// response is still delivered and the request is not failed.
type Response struct {
	Text      string
	ToolCalls []*ToolCall

	// Model is the model that actually served the request, after any
	// default-model fallback.
	Model string

	FinishReason FinishReason

	// Usage is nil when the backend reports no token counts.
	Usage *Usage
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonLength    FinishReason = "length"
)

// Usage carries token counts as reported by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
