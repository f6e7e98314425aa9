// Package engine implements the tool-use decision loop
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/CyberWeaverX/poly-survivor/pkg/provider"
	"github.com/CyberWeaverX/poly-survivor/pkg/session"
	"github.com/CyberWeaverX/poly-survivor/pkg/tool"
)

// MaxIterationsText is the final report produced when a cycle uses up
// its turn budget without the model ending the conversation.
const MaxIterationsText = "Maximum iterations reached"

// Engine drives one trading cycle's conversation with the oracle.
type Engine struct {
	oracle       provider.Oracle
	registry     *tool.Registry
	session      *session.Session
	hooks        *HookManager
	systemPrompt string
	logger       zerolog.Logger

	maxIterations int
	maxTokens     int
	temperature   float64
}

// Options holds engine configuration
type Options struct {
	Oracle        provider.Oracle
	Registry      *tool.Registry
	Session       *session.Session
	MaxIterations int
	MaxTokens     int
	Temperature   float64
	SystemPrompt  string
	Logger        zerolog.Logger
}

// Result summarizes a completed cycle conversation.
type Result struct {
	FinalText    string
	Iterations   int
	ToolCalls    int
	Usage        provider.Usage
	HitIteration bool // turn budget exhausted before end_turn
}

// New creates a new decision loop engine
func New(opts *Options) *Engine {
	maxIterations := opts.MaxIterations
	if maxIterations == 0 {
		maxIterations = 20
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &Engine{
		oracle:        opts.Oracle,
		registry:      opts.Registry,
		session:       opts.Session,
		hooks:         NewHookManager(),
		systemPrompt:  opts.SystemPrompt,
		logger:        opts.Logger,
		maxIterations: maxIterations,
		maxTokens:     maxTokens,
		temperature:   opts.Temperature,
	}
}

// Hooks returns the engine's hook manager
func (e *Engine) Hooks() *HookManager {
	return e.hooks
}

// Run executes the decision loop starting from a user message.
//
// Each iteration is one oracle call. Tool calls in the response are
// executed and their results appended; the loop ends when the model
// stops calling tools or the iteration budget runs out. Exhausting the
// budget is a normal outcome, not an error.
func (e *Engine) Run(ctx context.Context, userMessage string) (*Result, error) {
	e.session.AddUserMessage(userMessage)

	result := &Result{}

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result.Iterations = iteration + 1

		req := &provider.Request{
			Model:       e.session.Model,
			Messages:    e.session.GetMessages(),
			Tools:       e.registry.ToAPITools(),
			MaxTokens:   e.maxTokens,
			Temperature: e.temperature,
			System:      e.systemPrompt,
		}

		resp, err := e.oracle.CreateMessage(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("oracle error: %w", err)
		}

		e.session.AddAssistantMessage(resp)
		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens
		result.Usage.CacheCreationInputTokens += resp.Usage.CacheCreationInputTokens
		result.Usage.CacheReadInputTokens += resp.Usage.CacheReadInputTokens

		toolUses := resp.ToolUses()
		if len(toolUses) == 0 || resp.StopReason == provider.StopReasonEndTurn {
			result.FinalText = resp.Text()
			return result, nil
		}

		toolResults := make([]*provider.ToolResultBlock, 0, len(toolUses))
		for _, use := range toolUses {
			output := e.executeToolUse(ctx, use)
			result.ToolCalls++
			toolResults = append(toolResults, &provider.ToolResultBlock{
				ToolUseID: use.ID,
				Content:   output.Content,
				IsError:   output.IsError,
			})
		}
		e.session.AddToolResults(toolResults)
	}

	e.logger.Warn().Int("max_iterations", e.maxIterations).Msg("cycle hit iteration budget")

	result.FinalText = MaxIterationsText
	result.HitIteration = true
	return result, nil
}

// executeToolUse runs one tool call. Failures of any kind come back as
// an error payload for the model; they never abort the loop.
func (e *Engine) executeToolUse(ctx context.Context, block *provider.ToolUseBlock) *tool.Output {
	input := block.Input
	if input == nil {
		input = make(map[string]interface{})
	}

	e.logger.Debug().Str("tool", block.Name).Interface("input", input).Msg("tool call")

	t, err := e.registry.Get(block.Name)
	if err != nil {
		return tool.ErrorOutput(fmt.Sprintf("unknown tool: %s", block.Name))
	}

	if hookResult := e.hooks.RunPreToolUse(ctx, block.Name, input); hookResult.Blocked {
		return tool.ErrorOutput(hookResult.Message)
	}

	output, err := t.Execute(ctx, &tool.Input{
		ID:     block.ID,
		Name:   block.Name,
		Params: input,
	})
	if err != nil {
		e.logger.Warn().Str("tool", block.Name).Err(err).Msg("tool failed")
		output = tool.ErrorOutput(err.Error())
	}

	e.hooks.RunPostToolUse(ctx, block.Name, input, output)

	return output
}

// HookManager manages tool lifecycle hooks
type HookManager struct {
	preToolUse  []PreToolUseHook
	postToolUse []PostToolUseHook
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		preToolUse:  make([]PreToolUseHook, 0),
		postToolUse: make([]PostToolUseHook, 0),
	}
}

// PreToolUseHook is called before tool execution
type PreToolUseHook func(ctx context.Context, toolName string, input map[string]interface{}) *HookResult

// PostToolUseHook is called after tool execution
type PostToolUseHook func(ctx context.Context, toolName string, input map[string]interface{}, output *tool.Output)

// HookResult represents the result of a hook
type HookResult struct {
	Blocked bool
	Message string
}

// RegisterPreToolUse registers a pre-tool-use hook
func (h *HookManager) RegisterPreToolUse(hook PreToolUseHook) {
	h.preToolUse = append(h.preToolUse, hook)
}

// RegisterPostToolUse registers a post-tool-use hook
func (h *HookManager) RegisterPostToolUse(hook PostToolUseHook) {
	h.postToolUse = append(h.postToolUse, hook)
}

// RunPreToolUse runs all pre-tool-use hooks
func (h *HookManager) RunPreToolUse(ctx context.Context, toolName string, input map[string]interface{}) *HookResult {
	for _, hook := range h.preToolUse {
		result := hook(ctx, toolName, input)
		if result != nil && result.Blocked {
			return result
		}
	}
	return &HookResult{Blocked: false}
}

// RunPostToolUse runs all post-tool-use hooks
func (h *HookManager) RunPostToolUse(ctx context.Context, toolName string, input map[string]interface{}, output *tool.Output) {
	for _, hook := range h.postToolUse {
		hook(ctx, toolName, input, output)
	}
}
