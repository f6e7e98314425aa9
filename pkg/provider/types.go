// Package provider defines the reasoning-oracle interface and common types
package provider

import (
	"context"
	"encoding/json"
)

// Role represents the role of a message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentType represents the type of content block
type ContentType string

const (
	ContentTypeText            ContentType = "text"
	ContentTypeToolUse         ContentType = "tool_use"
	ContentTypeToolResult      ContentType = "tool_result"
	ContentTypeThinking        ContentType = "thinking"
	ContentTypeServerToolUse   ContentType = "server_tool_use"
	ContentTypeWebSearchResult ContentType = "web_search_tool_result"
)

// ContentBlock is the interface for all content block types
type ContentBlock interface {
	Type() ContentType
	json.Marshaler
}

// TextBlock represents text content
type TextBlock struct {
	Text string `json:"text"`
}

func (t *TextBlock) Type() ContentType { return ContentTypeText }

func (t *TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type": ContentTypeText,
		"text": t.Text,
	})
}

// ToolUseBlock represents a tool call from the assistant
type ToolUseBlock struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

func (t *ToolUseBlock) Type() ContentType { return ContentTypeToolUse }

func (t *ToolUseBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":  ContentTypeToolUse,
		"id":    t.ID,
		"name":  t.Name,
		"input": t.Input,
	})
}

// ToolResultBlock represents the result of a tool execution
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

func (t *ToolResultBlock) Type() ContentType { return ContentTypeToolResult }

func (t *ToolResultBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":        ContentTypeToolResult,
		"tool_use_id": t.ToolUseID,
		"content":     t.Content,
		"is_error":    t.IsError,
	})
}

// ThinkingBlock represents the thinking process (Claude extended thinking)
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

func (t *ThinkingBlock) Type() ContentType { return ContentTypeThinking }

func (t *ThinkingBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":      ContentTypeThinking,
		"thinking":  t.Thinking,
		"signature": t.Signature,
	})
}

// ServerToolUseBlock represents a server-side tool invocation, e.g. a
// web search performed by the API itself during a research request.
type ServerToolUseBlock struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

func (s *ServerToolUseBlock) Type() ContentType { return ContentTypeServerToolUse }

func (s *ServerToolUseBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":  ContentTypeServerToolUse,
		"id":    s.ID,
		"name":  s.Name,
		"input": s.Input,
	})
}

// WebSearchResultBlock carries the raw result of a server-side web search.
// The content is kept opaque; only the surrounding text blocks matter to us.
type WebSearchResultBlock struct {
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
}

func (w *WebSearchResultBlock) Type() ContentType { return ContentTypeWebSearchResult }

func (w *WebSearchResultBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":        ContentTypeWebSearchResult,
		"tool_use_id": w.ToolUseID,
		"content":     w.Content,
	})
}

// Message represents a conversation message
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Tool represents a tool definition for the API
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ServerTool names a tool executed by the API itself rather than by us.
// MaxUses of zero means no limit.
type ServerTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// StopReason represents why the model stopped generating
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonStop      StopReason = "stop_sequence"
)

// Usage represents token usage statistics
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// Request represents a completion request
type Request struct {
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	Tools       []Tool       `json:"tools,omitempty"`
	ServerTools []ServerTool `json:"-"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	System      string       `json:"system,omitempty"`
}

// Response represents a completion response
type Response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Text concatenates all text blocks in the response content.
func (r *Response) Text() string {
	var out string
	for _, block := range r.Content {
		if tb, ok := block.(*TextBlock); ok {
			out += tb.Text
		}
	}
	return out
}

// ToolUses returns all tool-use blocks in the response content.
func (r *Response) ToolUses() []*ToolUseBlock {
	var uses []*ToolUseBlock
	for _, block := range r.Content {
		if tu, ok := block.(*ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// Oracle is the interface the decision loop uses to reach the model
type Oracle interface {
	// Name returns the provider name
	Name() string

	// CreateMessage performs a single chat completion
	CreateMessage(ctx context.Context, req *Request) (*Response, error)
}
