// Package claude implements the Claude reasoning oracle
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/CyberWeaverX/poly-survivor/pkg/provider"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
)

// Provider implements the Claude reasoning oracle
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option is a function that configures the Provider
type Option func(*Provider)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithTimeout sets a custom timeout
func WithTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		p.client.Timeout = timeout
	}
}

// New creates a new Claude provider
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "claude"
}

// claudeRequest is the request format for the Claude API
type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Tools       []interface{}   `json:"tools,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []interface{} `json:"content"`
}

// claudeResponse is the response format from the Claude API
type claudeResponse struct {
	ID           string               `json:"id"`
	Type         string               `json:"type"`
	Role         string               `json:"role"`
	Model        string               `json:"model"`
	Content      []claudeContentBlock `json:"content"`
	StopReason   string               `json:"stop_reason"`
	StopSequence string               `json:"stop_sequence"`
	Usage        provider.Usage       `json:"usage"`
}

type claudeContentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	Thinking  string                 `json:"thinking,omitempty"`
	Signature string                 `json:"signature,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   json.RawMessage        `json:"content,omitempty"`
}

// CreateMessage performs a single chat completion
func (p *Provider) CreateMessage(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	claudeReq := p.convertRequest(req)

	body, err := json.Marshal(claudeReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var claudeResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return p.convertResponse(&claudeResp), nil
}

// setHeaders sets the required headers for the Claude API
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
}

// convertRequest converts a provider.Request to Claude format
func (p *Provider) convertRequest(req *provider.Request) *claudeRequest {
	messages := make([]claudeMessage, 0, len(req.Messages))

	for _, msg := range req.Messages {
		content := make([]interface{}, 0, len(msg.Content))
		for _, block := range msg.Content {
			if cb := p.convertContentBlock(block); cb != nil {
				content = append(content, cb)
			}
		}
		messages = append(messages, claudeMessage{
			Role:    string(msg.Role),
			Content: content,
		})
	}

	// Client tools and server tools share the same "tools" array on the wire
	tools := make([]interface{}, 0, len(req.Tools)+len(req.ServerTools))
	for _, t := range req.Tools {
		tools = append(tools, map[string]interface{}{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.InputSchema,
		})
	}
	for _, st := range req.ServerTools {
		entry := map[string]interface{}{
			"type": st.Type,
			"name": st.Name,
		}
		if st.MaxUses > 0 {
			entry["max_uses"] = st.MaxUses
		}
		tools = append(tools, entry)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &claudeRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      req.System,
		Tools:       tools,
		Temperature: req.Temperature,
	}
}

// convertContentBlock converts a provider.ContentBlock to Claude format
func (p *Provider) convertContentBlock(block provider.ContentBlock) interface{} {
	switch b := block.(type) {
	case *provider.TextBlock:
		return map[string]interface{}{
			"type": "text",
			"text": b.Text,
		}
	case *provider.ToolUseBlock:
		return map[string]interface{}{
			"type":  "tool_use",
			"id":    b.ID,
			"name":  b.Name,
			"input": b.Input,
		}
	case *provider.ToolResultBlock:
		return map[string]interface{}{
			"type":        "tool_result",
			"tool_use_id": b.ToolUseID,
			"content":     b.Content,
			"is_error":    b.IsError,
		}
	default:
		return nil
	}
}

// convertResponse converts a Claude response to provider.Response
func (p *Provider) convertResponse(resp *claudeResponse) *provider.Response {
	content := make([]provider.ContentBlock, 0, len(resp.Content))

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content = append(content, &provider.TextBlock{Text: block.Text})
		case "tool_use":
			content = append(content, &provider.ToolUseBlock{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		case "thinking":
			content = append(content, &provider.ThinkingBlock{
				Thinking:  block.Thinking,
				Signature: block.Signature,
			})
		case "server_tool_use":
			content = append(content, &provider.ServerToolUseBlock{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		case "web_search_tool_result":
			content = append(content, &provider.WebSearchResultBlock{
				ToolUseID: block.ToolUseID,
				Content:   block.Content,
			})
		}
	}

	return &provider.Response{
		ID:         resp.ID,
		Model:      resp.Model,
		Content:    content,
		StopReason: provider.StopReason(resp.StopReason),
		Usage:      resp.Usage,
	}
}
