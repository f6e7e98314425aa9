// Package tool defines the trading tool interface and registry
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/CyberWeaverX/poly-survivor/pkg/provider"
)

// Tool is the interface that all tools must implement
type Tool interface {
	// Name returns the tool name (unique identifier)
	Name() string

	// Description returns the tool description for the model
	Description() string

	// InputSchema returns the JSON Schema for the tool input
	InputSchema() json.RawMessage

	// Execute executes the tool with the given input
	Execute(ctx context.Context, input *Input) (*Output, error)
}

// Input represents tool input
type Input struct {
	ID     string                 // tool_use_id
	Name   string                 // tool name
	Params map[string]interface{} // input parameters
}

// Output represents tool output
type Output struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ErrorOutput wraps an error message as a JSON error payload. Tool
// failures are reported to the model this way rather than aborting
// the cycle.
func ErrorOutput(msg string) *Output {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return &Output{Content: string(payload), IsError: true}
}

// JSONOutput marshals v as the tool result content.
func JSONOutput(v interface{}) (*Output, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool output: %w", err)
	}
	return &Output{Content: string(data)}, nil
}

// Registry is the tool registry
type Registry struct {
	tools map[string]Tool
	order []string

	mu sync.RWMutex
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register registers a tool
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", name)
	}

	return tool, nil
}

// List returns all tools in registration order
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Names returns all tool names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ToAPITools converts tools to API format
func (r *Registry) ToAPITools() []provider.Tool {
	tools := r.List()
	apiTools := make([]provider.Tool, len(tools))

	for i, t := range tools {
		apiTools[i] = provider.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}
	}

	return apiTools
}

// ParamsTo converts params map to a struct
func ParamsTo[T any](params map[string]interface{}) (*T, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
