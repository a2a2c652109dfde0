package app

import (
	"context"
	"errors"
	"io"
	"testing"
)

// fakeOpener records how it is called and hands out one scripted stream.
type fakeOpener struct {
	stream    TurnStream
	err       error
	calls     int
	contextID string
	text      string
}

func (f *fakeOpener) OpenTurn(ctx context.Context, contextID, text string) (TurnStream, error) {
	f.calls++
	f.contextID = contextID
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func newOrchestrator(t *testing.T, opener TurnOpener) (*SQLiteChatStore, *ChatService, *TurnOrchestrator) {
	t.Helper()
	store := newTestStore(t)
	logger := NewLogger(io.Discard)
	chats := NewChatService(store, logger)
	return store, chats, NewTurnOrchestrator(store, chats, opener, logger)
}

func TestSendTurnRejectsBlankText(t *testing.T) {
	opener := &fakeOpener{}
	store, chats, orch := newOrchestrator(t, opener)
	chat, err := chats.CreateChat()
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	if err := orch.SendTurn(context.Background(), chat.ID, "   \n\t"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if opener.calls != 0 {
		t.Fatalf("no transport turn may be opened for invalid input")
	}
	msgs, _ := store.ListMessages(chat.ID)
	if len(msgs) != 0 {
		t.Fatalf("rejected input must leave no messages, found %d", len(msgs))
	}
}

func TestSendTurnRejectsUnknownChat(t *testing.T) {
	opener := &fakeOpener{}
	_, _, orch := newOrchestrator(t, opener)
	if err := orch.SendTurn(context.Background(), "ghost", "hello"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if opener.calls != 0 {
		t.Fatalf("no transport turn may be opened for an unknown chat")
	}
}

func TestSendTurnHappyPath(t *testing.T) {
	opener := &fakeOpener{stream: &ScriptedStream{Events: []TurnEvent{
		TaskOpened{TaskID: "task-1", Status: TaskSubmitted},
		StatusUpdate{TaskID: "task-1", Status: TaskWorking},
		ArtifactChunk{Parts: []Part{{Kind: PartKindText, Text: "All done."}}},
		StatusUpdate{TaskID: "task-1", Status: TaskCompleted, Final: true},
	}}}
	store, chats, orch := newOrchestrator(t, opener)
	chat, err := chats.CreateChat()
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	if err := orch.SendTurn(context.Background(), chat.ID, "do the thing"); err != nil {
		t.Fatalf("send turn: %v", err)
	}
	if opener.calls != 1 {
		t.Fatalf("exactly one transport turn per invocation, got %d", opener.calls)
	}
	if opener.contextID != chat.ContextID {
		t.Fatalf("turn must be scoped to the chat context: got %q want %q", opener.contextID, chat.ContextID)
	}

	msgs, err := store.ListMessages(chat.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "do the thing" {
		t.Fatalf("user message wrong: %+v", msgs[0])
	}
	asst := msgs[1]
	if asst.Role != RoleAssistant || asst.Content != "All done." {
		t.Fatalf("assistant message wrong: %+v", asst)
	}
	if asst.TaskID != "task-1" || asst.TaskStatus != TaskCompleted {
		t.Fatalf("task binding wrong: %+v", asst)
	}

	// The first user message also named the chat.
	got, _ := store.GetChat(chat.ID)
	if got.Title != "do the thing" {
		t.Fatalf("first message should title the chat, got %q", got.Title)
	}
}

func TestSendTurnOpenFailureLeavesErrorLine(t *testing.T) {
	boom := errors.New("401 unauthorized")
	opener := &fakeOpener{err: boom}
	store, chats, orch := newOrchestrator(t, opener)
	chat, err := chats.CreateChat()
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	err = orch.SendTurn(context.Background(), chat.ID, "hello")
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	msgs, _ := store.ListMessages(chat.ID)
	if len(msgs) != 2 {
		t.Fatalf("user message and placeholder must survive, got %d messages", len(msgs))
	}
	asst := msgs[1]
	if asst.Content != "Error from A2A: 401 unauthorized" {
		t.Fatalf("expected error line, got %q", asst.Content)
	}
	if asst.TaskStatus != TaskSubmitted {
		t.Fatalf("status should stay at submitted, got %s", asst.TaskStatus)
	}
}

func TestSendTurnWithMockAgent(t *testing.T) {
	agent := NewMockAgent()
	store, chats, orch := newOrchestrator(t, agent)
	chat, err := chats.CreateChat()
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	if err := orch.SendTurn(context.Background(), chat.ID, "ping"); err != nil {
		t.Fatalf("send turn: %v", err)
	}
	msgs, _ := store.ListMessages(chat.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "pong" {
		t.Fatalf("mock reply wrong: %q", msgs[1].Content)
	}
	if msgs[1].TaskStatus != TaskCompleted {
		t.Fatalf("mock turn should complete, got %s", msgs[1].TaskStatus)
	}
}
