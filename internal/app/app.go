package app

import "fmt"

// Application wires config, store, transport and the two services together.
// cmd/ and tui/ only ever talk to this.
type Application struct {
	Config Config
	Logger *Logger
	Store  ChatStore
	Agent  TurnOpener
	Chats  *ChatService
	Turns  *TurnOrchestrator
}

func NewApplication(cfg Config, mockMode bool) (*Application, error) {
	logger := NewLogger(DefaultLogWriter(cfg.DataDir))

	store, err := NewSQLiteChatStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open chat store: %w", err)
	}

	var agent TurnOpener
	if mockMode {
		agent = NewMockAgent()
	} else {
		client, err := NewAgentClient(cfg, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		agent = client
	}

	chats := NewChatService(store, logger)
	return &Application{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Agent:  agent,
		Chats:  chats,
		Turns:  NewTurnOrchestrator(store, chats, agent, logger),
	}, nil
}

func (a *Application) Close() error {
	return a.Store.Close()
}
