package app

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type bogusEvent struct{}

func (bogusEvent) isTurnEvent() {}

func newTurnFixture(t *testing.T) (*SQLiteChatStore, *StreamReducer, string) {
	t.Helper()
	store := newTestStore(t)
	addChatAt(t, store, "c1", time.Now())
	assistant := Message{
		ID:         "asst",
		ChatID:     "c1",
		Role:       RoleAssistant,
		Content:    placeholderContent,
		TaskStatus: TaskSubmitted,
		CreatedAt:  time.Now(),
	}
	if err := store.AddMessage(assistant); err != nil {
		t.Fatalf("add assistant placeholder: %v", err)
	}
	reducer := NewStreamReducer(store, NewLogger(io.Discard))
	return store, reducer, assistant.ID
}

func mustMessage(t *testing.T, store *SQLiteChatStore, id string) Message {
	t.Helper()
	msg, err := store.GetMessage(id)
	if err != nil {
		t.Fatalf("get message %s: %v", id, err)
	}
	return msg
}

func textChunk(texts ...string) []Part {
	parts := make([]Part, 0, len(texts))
	for _, txt := range texts {
		parts = append(parts, Part{Kind: PartKindText, Text: txt})
	}
	return parts
}

func TestReduceTaskOpenedWritesStatusLine(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		TaskOpened{TaskID: "0123456789abcdef", Status: TaskSubmitted},
	}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	msg := mustMessage(t, store, id)
	if msg.Content != "📝 Task 01234567: submitted" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
	if msg.TaskID != "0123456789abcdef" || msg.TaskStatus != TaskSubmitted {
		t.Fatalf("task fields not recorded: %+v", msg)
	}
}

func TestReduceChunksConcatenate(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		TaskOpened{TaskID: "task-1", Status: TaskSubmitted},
		StatusUpdate{Status: TaskWorking},
		ArtifactChunk{Parts: textChunk("Hello")},
		MessageChunk{Parts: textChunk(", ", "world")},
		ArtifactChunk{Parts: textChunk("!")},
	}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	msg := mustMessage(t, store, id)
	if msg.Content != "Hello, world!" {
		t.Fatalf("expected concatenation, got %q", msg.Content)
	}
	if msg.TaskStatus != TaskWorking {
		t.Fatalf("expected working status, got %s", msg.TaskStatus)
	}
}

func TestReduceContentIsMonotonic(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		TaskOpened{TaskID: "task-1", Status: TaskWorking},
		ArtifactChunk{Parts: textChunk("real output")},
		// A final status after content must not revert to a status line.
		StatusUpdate{TaskID: "task-1", Status: TaskCompleted, Final: true},
	}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	msg := mustMessage(t, store, id)
	if msg.Content != "real output" {
		t.Fatalf("status overwrote content: %q", msg.Content)
	}
	if msg.TaskStatus != TaskCompleted {
		t.Fatalf("final status not recorded: %s", msg.TaskStatus)
	}
}

func TestReduceStatusReplayIsIdempotent(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	update := StatusUpdate{TaskID: "0123456789", Status: TaskWorking}
	stream := &ScriptedStream{Events: []TurnEvent{update, update}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	msg := mustMessage(t, store, id)
	if msg.Content != statusLine("0123456789", TaskWorking) {
		t.Fatalf("replay changed content: %q", msg.Content)
	}
}

func TestReduceStatusBeforeTaskUsesUnknownID(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		StatusUpdate{Status: TaskWorking},
	}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	msg := mustMessage(t, store, id)
	if msg.Content != "⚙️ Task unknown: working" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
}

func TestReduceFinalStatusWithoutContent(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		TaskOpened{TaskID: "quiet-task", Status: TaskSubmitted},
		StatusUpdate{TaskID: "quiet-task", Status: TaskCompleted, Final: true},
	}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	msg := mustMessage(t, store, id)
	if msg.Content != "✅ Task quiet-ta: completed" {
		t.Fatalf("task completing without content should show its status: %q", msg.Content)
	}
}

func TestReduceEmptyChunkDoesNotStartContent(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		ArtifactChunk{Parts: []Part{{Kind: "data", Text: "ignored"}}},
		ArtifactChunk{Parts: textChunk("")},
		StatusUpdate{TaskID: "task-1", Status: TaskWorking},
	}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	msg := mustMessage(t, store, id)
	if !strings.HasPrefix(msg.Content, "⚙️ Task") {
		t.Fatalf("empty chunks must not block status lines: %q", msg.Content)
	}
}

func TestReduceIgnoresUnknownEvents(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		bogusEvent{},
		ArtifactChunk{Parts: textChunk("fine")},
		bogusEvent{},
	}}
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if got := mustMessage(t, store, id).Content; got != "fine" {
		t.Fatalf("unknown events changed the fold: %q", got)
	}
}

func TestReduceTransportErrorWritesErrorLine(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	boom := errors.New("connection reset")
	stream := &ScriptedStream{
		Events: []TurnEvent{
			TaskOpened{TaskID: "task-1", Status: TaskSubmitted},
			StatusUpdate{TaskID: "task-1", Status: TaskWorking},
		},
		Err: boom,
	}
	err := reducer.Reduce(id, stream)
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	msg := mustMessage(t, store, id)
	if msg.Content != "Error from A2A: connection reset" {
		t.Fatalf("expected error line, got %q", msg.Content)
	}
	if msg.TaskStatus != TaskWorking {
		t.Fatalf("task status must stay at last known value, got %s", msg.TaskStatus)
	}
}

func TestReduceEndsQuietlyOnEarlyEOF(t *testing.T) {
	store, reducer, id := newTurnFixture(t)
	stream := &ScriptedStream{Events: []TurnEvent{
		StatusUpdate{TaskID: "task-1", Status: TaskWorking},
	}}
	// Producer abandoned the turn with no terminal status; the fold just stops.
	if err := reducer.Reduce(id, stream); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if got := mustMessage(t, store, id).TaskStatus; got != TaskWorking {
		t.Fatalf("expected last status to stand, got %s", got)
	}
}
