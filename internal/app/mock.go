package app

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
)

// MockAgent simulates the remote A2A agent for offline runs and tests. Each
// turn opens a task, reports it working, streams the reply in small chunks
// and finishes with a final completed status.
type MockAgent struct {
	Calls int
}

func NewMockAgent() *MockAgent {
	return &MockAgent{}
}

func (m *MockAgent) OpenTurn(ctx context.Context, contextID, text string) (TurnStream, error) {
	m.Calls++
	taskID := uuid.NewString()

	events := []TurnEvent{
		TaskOpened{TaskID: taskID, Status: TaskSubmitted},
		StatusUpdate{TaskID: taskID, Status: TaskWorking},
	}
	for _, chunk := range chunkText(m.reply(text), 24) {
		events = append(events, ArtifactChunk{Parts: []Part{{Kind: PartKindText, Text: chunk}}})
	}
	events = append(events, StatusUpdate{TaskID: taskID, Status: TaskCompleted, Final: true})

	return &ScriptedStream{Events: events}, nil
}

func (m *MockAgent) reply(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.EqualFold(text, "ping"):
		return "pong"
	case strings.HasSuffix(text, "?"):
		return "Good question. The mock agent has no idea, but a real one might: " + text
	default:
		return "You said: " + text
	}
}

func chunkText(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// ScriptedStream replays a fixed event sequence, optionally failing with Err
// after the scripted events run out instead of ending cleanly.
type ScriptedStream struct {
	Events []TurnEvent
	Err    error
	pos    int
}

func (s *ScriptedStream) Next() (TurnEvent, error) {
	if s.pos >= len(s.Events) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	ev := s.Events[s.pos]
	s.pos++
	return ev, nil
}
