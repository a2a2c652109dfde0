package app

import (
	"errors"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TaskStatus mirrors the remote task lifecycle for assistant messages.
// The zero value means the message is not bound to a task.
type TaskStatus string

const (
	TaskSubmitted TaskStatus = "submitted"
	TaskWorking   TaskStatus = "working"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCanceled  TaskStatus = "canceled"
)

// Chat is one conversation with the remote agent. ContextID is assigned at
// creation and correlates every turn of the chat with the agent's notion of
// the conversation; it never changes afterwards.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ContextID string    `json:"context_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message belongs to exactly one chat. TaskID and TaskStatus are only set on
// assistant messages bound to a remote task.
type Message struct {
	ID         string     `json:"id"`
	ChatID     string     `json:"chat_id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	TaskID     string     `json:"task_id,omitempty"`
	TaskStatus TaskStatus `json:"task_status,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
)

// ChatStore persists chats and their messages.
//
// Implementations must list chats by UpdatedAt descending and messages by
// CreatedAt ascending with insertion order breaking ties, and must apply
// single-record updates atomically.
type ChatStore interface {
	AddChat(chat Chat) error
	GetChat(id string) (Chat, error)
	UpdateChat(chat Chat) error
	DeleteChat(id string) error
	ListChats() ([]Chat, error)

	AddMessage(msg Message) error
	GetMessage(id string) (Message, error)
	UpdateMessage(msg Message) error
	ListMessages(chatID string) ([]Message, error)
	DeleteMessages(chatID string) error

	Close() error
}
