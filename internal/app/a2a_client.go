package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	a2aclient "trpc.group/trpc-go/trpc-a2a-go/client"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// ErrCancelNotSupported is returned by CancelTask; the agent side defines no
// cancellation endpoint for streamed tasks.
var ErrCancelNotSupported = errors.New("task cancellation not supported")

// AgentClient is the Event Transport: it opens streaming turns against a
// remote A2A agent and converts protocol events into TurnEvents. All of its
// configuration comes in through the constructor.
type AgentClient struct {
	client *a2aclient.A2AClient
	logger *Logger
}

func NewAgentClient(cfg Config, logger *Logger) (*AgentClient, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	if cfg.AuthToken != "" {
		httpClient.Transport = &authTransport{token: cfg.AuthToken, base: http.DefaultTransport}
	}
	client, err := a2aclient.NewA2AClient(
		cfg.AgentURL,
		a2aclient.WithTimeout(cfg.RequestTimeout()),
		a2aclient.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create a2a client: %w", err)
	}
	logger.Info("a2a client created", map[string]interface{}{"agent_url": cfg.AgentURL})
	return &AgentClient{client: client, logger: logger}, nil
}

// OpenTurn sends one user message scoped to the chat's context id and returns
// the resulting event stream.
func (c *AgentClient) OpenTurn(ctx context.Context, contextID, text string) (TurnStream, error) {
	msg := protocol.NewMessage(
		protocol.MessageRole("user"),
		[]protocol.Part{protocol.NewTextPart(text)},
	)
	msg.MessageID = uuid.NewString()
	msg.ContextID = &contextID

	events, err := c.client.StreamMessage(ctx, protocol.SendMessageParams{Message: msg})
	if err != nil {
		return nil, fmt.Errorf("open turn: %w", err)
	}
	return &a2aTurnStream{events: events}, nil
}

// CancelTask is a stub; see ErrCancelNotSupported.
func (c *AgentClient) CancelTask(ctx context.Context, taskID string) error {
	return ErrCancelNotSupported
}

// a2aTurnStream adapts the client's event channel to the TurnStream
// iterator. A closed channel is the normal end of the sequence.
type a2aTurnStream struct {
	events <-chan protocol.StreamingMessageEvent
}

func (s *a2aTurnStream) Next() (TurnEvent, error) {
	for event := range s.events {
		if converted, ok := convertEvent(event); ok {
			return converted, nil
		}
	}
	return nil, io.EOF
}

// convertEvent maps a protocol event onto the local sum type. Events the
// reducer has no rule for report ok=false and are skipped.
func convertEvent(event protocol.StreamingMessageEvent) (TurnEvent, bool) {
	switch v := event.Result.(type) {
	case *protocol.Task:
		return TaskOpened{TaskID: v.ID, Status: TaskStatus(v.Status.State)}, true
	case *protocol.TaskStatusUpdateEvent:
		return StatusUpdate{TaskID: v.TaskID, Status: TaskStatus(v.Status.State), Final: v.Final}, true
	case *protocol.TaskArtifactUpdateEvent:
		return ArtifactChunk{Parts: convertParts(v.Artifact.Parts)}, true
	case *protocol.Message:
		return MessageChunk{Parts: convertParts(v.Parts)}, true
	default:
		return nil, false
	}
}

func convertParts(parts []protocol.Part) []Part {
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		// The library's JSON decoder yields *TextPart while NewTextPart
		// returns a TextPart value; accept both forms.
		switch textPart := p.(type) {
		case *protocol.TextPart:
			out = append(out, Part{Kind: PartKindText, Text: textPart.Text})
		case protocol.TextPart:
			out = append(out, Part{Kind: PartKindText, Text: textPart.Text})
		}
	}
	return out
}

// authTransport adds the agent's Authorization scheme to every request.
type authTransport struct {
	token string
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "eva "+t.token)
	return t.base.RoundTrip(cloned)
}
