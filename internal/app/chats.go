package app

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// placeholderTitle is the title every chat starts with until its first
	// user message replaces it.
	placeholderTitle = "New chat"
	// titlePrefixLen caps how much of the first user message becomes the title.
	titlePrefixLen = 40
)

var (
	ErrEmptyTitle = errors.New("title must not be empty")
	ErrEmptyText  = errors.New("text must not be empty")
)

// NextActive tells the caller which chat should be active after a delete.
// Changed is false when the deleted chat was not the active one, in which
// case the current selection stands. An empty ChatID with Changed set means
// no chat is left to activate.
type NextActive struct {
	ChatID  string
	Changed bool
}

// ChatService owns chat lifecycle: creation, rename, deletion and the
// selection of a replacement active chat. It keeps no state beyond the store.
type ChatService struct {
	store  ChatStore
	logger *Logger
}

func NewChatService(store ChatStore, logger *Logger) *ChatService {
	return &ChatService{store: store, logger: logger}
}

// CreateChat allocates a chat whose id doubles as its agent context id.
// The returned chat is the one the caller should make active.
func (s *ChatService) CreateChat() (Chat, error) {
	now := time.Now()
	chat := Chat{
		ID:        uuid.NewString(),
		Title:     placeholderTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	chat.ContextID = chat.ID
	if err := s.store.AddChat(chat); err != nil {
		return Chat{}, err
	}
	s.logger.Info("chat created", map[string]interface{}{"chat_id": chat.ID})
	return chat, nil
}

// RenameChat sets a trimmed, non-empty title and bumps UpdatedAt. A blank
// title or unknown chat fails without side effects.
func (s *ChatService) RenameChat(chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return err
	}
	chat.Title = title
	chat.UpdatedAt = time.Now()
	return s.store.UpdateChat(chat)
}

// DeleteChat removes the chat and everything it owns, messages first. When
// the deleted chat was the active one, the most recently updated survivor is
// reported as the next active chat; with none left the caller gets an empty
// selection. Deleting a non-active chat never touches the selection.
func (s *ChatService) DeleteChat(chatID, activeChatID string) (NextActive, error) {
	if _, err := s.store.GetChat(chatID); err != nil {
		return NextActive{}, err
	}
	if err := s.store.DeleteMessages(chatID); err != nil {
		return NextActive{}, err
	}
	if err := s.store.DeleteChat(chatID); err != nil {
		return NextActive{}, err
	}
	s.logger.Info("chat deleted", map[string]interface{}{"chat_id": chatID})

	if chatID != activeChatID {
		return NextActive{}, nil
	}
	remaining, err := s.store.ListChats()
	if err != nil {
		return NextActive{}, err
	}
	if len(remaining) == 0 {
		return NextActive{Changed: true}, nil
	}
	return NextActive{ChatID: remaining[0].ID, Changed: true}, nil
}

// ListChats returns all chats, most recently updated first.
func (s *ChatService) ListChats() ([]Chat, error) {
	return s.store.ListChats()
}

// Messages returns a chat's transcript in display order.
func (s *ChatService) Messages(chatID string) ([]Message, error) {
	return s.store.ListMessages(chatID)
}

// recordUserMessage persists a user message and refreshes the owning chat:
// UpdatedAt always moves forward, and a chat still carrying the placeholder
// title takes the first characters of this message as its name. Later
// messages never rename the chat.
func (s *ChatService) recordUserMessage(chat Chat, text string) (Message, error) {
	now := time.Now()
	msg := Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Role:      RoleUser,
		Content:   text,
		CreatedAt: now,
	}
	if err := s.store.AddMessage(msg); err != nil {
		return Message{}, err
	}
	chat.UpdatedAt = now
	if chat.Title == placeholderTitle {
		chat.Title = titlePrefix(text)
	}
	if err := s.store.UpdateChat(chat); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func titlePrefix(text string) string {
	runes := []rune(text)
	if len(runes) > titlePrefixLen {
		runes = runes[:titlePrefixLen]
	}
	return string(runes)
}
