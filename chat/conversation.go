package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID            string
	Role          Role
	Content       string
	Timestamp     time.Time
	AssistantType string
}

// Conversation is an append-only, ordered message log.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Append stores m, filling in a missing id, and returns the stored copy.
func (c *Conversation) Append(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	return m
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Message(nil), c.messages...)
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
