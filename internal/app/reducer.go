package app

import (
	"errors"
	"fmt"
	"io"
)

// StreamReducer folds the events of one turn into a single assistant message.
// It holds no state of its own between turns; everything durable lives in the
// store, addressed by the message id it is given.
type StreamReducer struct {
	store  ChatStore
	logger *Logger
}

func NewStreamReducer(store ChatStore, logger *Logger) *StreamReducer {
	return &StreamReducer{store: store, logger: logger}
}

// Reduce consumes the stream until it ends or fails and applies each event to
// the assistant message, strictly in arrival order.
//
// Content handling is monotonic: status-derived placeholder lines are only
// written while no chunk event has delivered text yet. Once real content has
// begun, the first chunk replaces the placeholder and every later chunk
// appends; no status update can revert the message to a status line.
//
// A transport error is caught exactly once: the message content is replaced
// with an error line, the last known task status is kept, and the error is
// returned. Store errors are never masked and propagate as-is.
func (r *StreamReducer) Reduce(messageID string, stream TurnStream) error {
	hasContent := false
	taskID := ""

	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			r.logger.Error("turn stream failed", map[string]interface{}{"message_id": messageID, "error": err.Error()})
			if werr := r.update(messageID, func(m *Message) {
				m.Content = "Error from A2A: " + err.Error()
			}); werr != nil {
				return werr
			}
			return fmt.Errorf("turn stream: %w", err)
		}

		switch ev := ev.(type) {
		case TaskOpened:
			taskID = ev.TaskID
			err = r.update(messageID, func(m *Message) {
				m.TaskID = ev.TaskID
				m.TaskStatus = ev.Status
				if !hasContent {
					m.Content = statusLine(ev.TaskID, ev.Status)
				}
			})

		case StatusUpdate:
			if ev.TaskID != "" {
				taskID = ev.TaskID
			}
			line := statusLine(taskID, ev.Status)
			err = r.update(messageID, func(m *Message) {
				m.TaskStatus = ev.Status
				// Written for the plain update and again for a final
				// status with no content; both land on the same line.
				if !hasContent {
					m.Content = line
				}
			})

		case ArtifactChunk:
			hasContent, err = r.applyChunk(messageID, ev.Parts, hasContent)

		case MessageChunk:
			hasContent, err = r.applyChunk(messageID, ev.Parts, hasContent)

		default:
			// Unrecognized event kinds are ignored so newer agents keep
			// working against this client.
		}
		if err != nil {
			return err
		}
	}
}

// applyChunk folds one chunk event's text. The first non-empty chunk of the
// turn replaces whatever status line is showing; later chunks append.
func (r *StreamReducer) applyChunk(messageID string, parts []Part, hasContent bool) (bool, error) {
	text := textOf(parts)
	if text == "" {
		return hasContent, nil
	}
	err := r.update(messageID, func(m *Message) {
		if hasContent {
			m.Content += text
		} else {
			m.Content = text
		}
	})
	if err != nil {
		return hasContent, err
	}
	return true, nil
}

// update is a single-record read-modify-write. The single-writer rule (one
// turn in flight per chat) is what keeps this race-free.
func (r *StreamReducer) update(messageID string, mutate func(*Message)) error {
	msg, err := r.store.GetMessage(messageID)
	if err != nil {
		return err
	}
	mutate(&msg)
	return r.store.UpdateMessage(msg)
}
