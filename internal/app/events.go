package app

import (
	"context"
	"fmt"
	"strings"
)

// PartKindText marks a part whose Text field carries renderable content.
const PartKindText = "text"

// Part is one piece of a chunk event's payload. Non-text kinds are carried
// through untouched and ignored by the reducer.
type Part struct {
	Kind string
	Text string
}

// TurnEvent is one protocol event observed during a turn. The variants below
// are the only ones the reducer acts on; anything else is dropped by the
// transport or ignored by the fold.
type TurnEvent interface {
	isTurnEvent()
}

// TaskOpened announces the remote task created for this turn.
type TaskOpened struct {
	TaskID string
	Status TaskStatus
}

// StatusUpdate reports a task state change. Final marks the last status the
// task will ever report.
type StatusUpdate struct {
	TaskID string
	Status TaskStatus
	Final  bool
}

// ArtifactChunk carries partial artifact output for the turn.
type ArtifactChunk struct {
	Parts []Part
}

// MessageChunk carries partial message output for the turn.
type MessageChunk struct {
	Parts []Part
}

func (TaskOpened) isTurnEvent()    {}
func (StatusUpdate) isTurnEvent()  {}
func (ArtifactChunk) isTurnEvent() {}
func (MessageChunk) isTurnEvent()  {}

// TurnStream yields the events of a single turn in arrival order. The
// sequence is finite and cannot be restarted; it is consumed by exactly one
// caller. Next returns io.EOF once the stream has ended normally, any other
// error means the transport failed.
type TurnStream interface {
	Next() (TurnEvent, error)
}

// TurnOpener opens one streaming turn against the remote agent, scoped to a
// chat's context identifier.
type TurnOpener interface {
	OpenTurn(ctx context.Context, contextID, text string) (TurnStream, error)
}

// unknownTaskID is shown when a status update arrives before any task id.
const unknownTaskID = "unknown"

func statusGlyph(status TaskStatus) string {
	switch status {
	case TaskSubmitted:
		return "📝"
	case TaskWorking:
		return "⚙️"
	case TaskCompleted:
		return "✅"
	case TaskFailed:
		return "❌"
	case TaskCanceled:
		return "🚫"
	default:
		return "🔄"
	}
}

// statusLine renders the placeholder shown while a task has produced no
// content yet, e.g. "⚙️ Task 3f2b91c0: working".
func statusLine(taskID string, status TaskStatus) string {
	id := taskID
	if strings.TrimSpace(id) == "" {
		id = unknownTaskID
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s Task %s: %s", statusGlyph(status), id, status)
}

// textOf concatenates the text parts of a chunk event, in order.
func textOf(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Kind == PartKindText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
