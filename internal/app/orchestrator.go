package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// placeholderContent is what an assistant message shows before the first
// event of its turn arrives.
const placeholderContent = "🔄 Starting task..."

// TurnOrchestrator drives one full turn: user text in, streamed assistant
// message out. It opens exactly one transport turn per call and never
// retries; retry policy belongs to whoever calls it.
type TurnOrchestrator struct {
	store   ChatStore
	chats   *ChatService
	opener  TurnOpener
	reducer *StreamReducer
	logger  *Logger
}

func NewTurnOrchestrator(store ChatStore, chats *ChatService, opener TurnOpener, logger *Logger) *TurnOrchestrator {
	return &TurnOrchestrator{
		store:   store,
		chats:   chats,
		opener:  opener,
		reducer: NewStreamReducer(store, logger),
		logger:  logger,
	}
}

// SendTurn validates the input, persists the user message and an assistant
// placeholder, then streams the agent's response into the placeholder via
// the reducer. Blank text and unknown chats are rejected before anything is
// written. A transport failure leaves an error line in the transcript and is
// returned; the caller decides what, if anything, to do about it.
func (o *TurnOrchestrator) SendTurn(ctx context.Context, chatID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	chat, err := o.store.GetChat(chatID)
	if err != nil {
		return err
	}

	if _, err := o.chats.recordUserMessage(chat, text); err != nil {
		return err
	}

	assistant := Message{
		ID:         uuid.NewString(),
		ChatID:     chat.ID,
		Role:       RoleAssistant,
		Content:    placeholderContent,
		TaskStatus: TaskSubmitted,
		CreatedAt:  time.Now(),
	}
	if err := o.store.AddMessage(assistant); err != nil {
		return err
	}

	o.logger.Info("turn opened", map[string]interface{}{"chat_id": chat.ID, "context_id": chat.ContextID})
	stream, err := o.opener.OpenTurn(ctx, chat.ContextID, text)
	if err != nil {
		// Same contract as a mid-stream failure: the transcript always
		// ends up with a readable error line.
		if werr := o.writeErrorLine(assistant.ID, err); werr != nil {
			return werr
		}
		return err
	}
	return o.reducer.Reduce(assistant.ID, stream)
}

func (o *TurnOrchestrator) writeErrorLine(messageID string, cause error) error {
	msg, err := o.store.GetMessage(messageID)
	if err != nil {
		return err
	}
	msg.Content = "Error from A2A: " + cause.Error()
	return o.store.UpdateMessage(msg)
}
