// Package session manages per-cycle conversation transcripts
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CyberWeaverX/poly-survivor/pkg/provider"
)

// EntryType represents the type of transcript entry
type EntryType string

const (
	EntryTypeUser      EntryType = "user"
	EntryTypeAssistant EntryType = "assistant"
)

// TranscriptEntry represents a single entry in the conversation transcript
type TranscriptEntry struct {
	Type      EntryType `json:"type"`
	UUID      string    `json:"uuid"`
	Timestamp time.Time `json:"timestamp"`

	SessionID string `json:"sessionId"`

	Message *Message `json:"message,omitempty"`
}

// Message represents a conversation message
type Message struct {
	Role    string                  `json:"role"`
	Content []provider.ContentBlock `json:"content"`

	// Assistant message specific fields
	ID         string          `json:"id,omitempty"`
	Model      string          `json:"model,omitempty"`
	StopReason string          `json:"stop_reason,omitempty"`
	Usage      *provider.Usage `json:"usage,omitempty"`
}

// Session represents one trading cycle's conversation with the oracle.
// A fresh session is created per cycle; nothing carries over except what
// the memory file injects into the opening prompt.
type Session struct {
	ID        string
	Cycle     int
	Model     string
	StartedAt time.Time

	Messages []*TranscriptEntry

	mu sync.RWMutex
}

// New creates a new session for the given cycle number
func New(cycle int, model string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Cycle:     cycle,
		Model:     model,
		StartedAt: time.Now(),
		Messages:  make([]*TranscriptEntry, 0),
	}
}

// addEntry appends an entry, filling in identity fields
func (s *Session) addEntry(entry *TranscriptEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.UUID == "" {
		entry.UUID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.SessionID = s.ID

	s.Messages = append(s.Messages, entry)
}

// AddUserMessage adds a user text message
func (s *Session) AddUserMessage(content string) *TranscriptEntry {
	entry := &TranscriptEntry{
		Type: EntryTypeUser,
		Message: &Message{
			Role: "user",
			Content: []provider.ContentBlock{
				&provider.TextBlock{Text: content},
			},
		},
	}

	s.addEntry(entry)
	return entry
}

// AddToolResults adds one user message carrying the results for every
// tool call in the preceding assistant turn. The API expects them
// grouped this way.
func (s *Session) AddToolResults(results []*provider.ToolResultBlock) *TranscriptEntry {
	content := make([]provider.ContentBlock, 0, len(results))
	for _, r := range results {
		content = append(content, r)
	}

	entry := &TranscriptEntry{
		Type: EntryTypeUser,
		Message: &Message{
			Role:    "user",
			Content: content,
		},
	}

	s.addEntry(entry)
	return entry
}

// AddAssistantMessage adds an assistant message from an oracle response
func (s *Session) AddAssistantMessage(resp *provider.Response) *TranscriptEntry {
	entry := &TranscriptEntry{
		Type: EntryTypeAssistant,
		Message: &Message{
			Role:       "assistant",
			Content:    resp.Content,
			ID:         resp.ID,
			Model:      resp.Model,
			StopReason: string(resp.StopReason),
			Usage:      &resp.Usage,
		},
	}

	s.addEntry(entry)
	return entry
}

// GetMessages returns the transcript in API format
func (s *Session) GetMessages() []provider.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]provider.Message, 0, len(s.Messages))

	for _, entry := range s.Messages {
		if entry.Message == nil {
			continue
		}

		messages = append(messages, provider.Message{
			Role:    provider.Role(entry.Message.Role),
			Content: entry.Message.Content,
		})
	}

	return messages
}

// LastAssistantText returns the text of the most recent assistant
// message, or an empty string if there is none.
func (s *Session) LastAssistantText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.Messages) - 1; i >= 0; i-- {
		entry := s.Messages[i]
		if entry.Type != EntryTypeAssistant || entry.Message == nil {
			continue
		}
		var text string
		for _, block := range entry.Message.Content {
			if tb, ok := block.(*provider.TextBlock); ok {
				text += tb.Text
			}
		}
		return text
	}
	return ""
}
