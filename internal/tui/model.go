package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eva-chat/internal/app"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const sidebarWidth = 30

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type chatsLoadedMsg struct {
	chats []app.Chat
	err   error

	// setActive carries an explicit selection change, e.g. after a create
	// or a delete of the active chat.
	setActive    bool
	activeChatID string
}

type transcriptMsg struct {
	chatID string
	msgs   []app.Message
	err    error
}

type turnDoneMsg struct{ err error }

type refreshTickMsg struct{}

type spinMsg struct{}

// Model is the whole chat UI: a sidebar of chats, the active transcript and
// an input box. All durable state lives in the application; the model only
// mirrors it for rendering.
type Model struct {
	app  *app.Application
	keys keyMap

	theme Theme

	width  int
	height int
	ready  bool

	chats        []app.Chat
	activeChatID string
	transcript   []app.Message

	input  textarea.Model
	chatVP viewport.Model

	running    bool
	renaming   bool
	spinnerPos int
	statusText string
}

func NewModel(application *app.Application) *Model {
	ta := textarea.New()
	ta.Placeholder = "Message the agent, Enter to send"
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	return &Model{
		app:   application,
		keys:  defaultKeyMap(),
		theme: NewTheme(),
		input: ta,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadChats())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case chatsLoadedMsg:
		if msg.err != nil {
			m.statusText = msg.err.Error()
			return m, nil
		}
		m.chats = msg.chats
		if msg.setActive {
			m.activeChatID = msg.activeChatID
			m.transcript = nil
			m.renderTranscript()
		}
		if m.activeChatID == "" && len(m.chats) > 0 {
			// Mirror the web client: with no selection, the most recently
			// updated chat becomes active.
			m.activeChatID = m.chats[0].ID
		}
		return m, m.loadTranscript()

	case transcriptMsg:
		if msg.err != nil {
			m.statusText = msg.err.Error()
			return m, nil
		}
		if msg.chatID != m.activeChatID {
			return m, nil // stale read from a chat switch
		}
		m.transcript = msg.msgs
		m.renderTranscript()
		return m, nil

	case turnDoneMsg:
		m.running = false
		if msg.err != nil {
			m.statusText = msg.err.Error()
		} else {
			m.statusText = ""
		}
		return m, tea.Batch(m.loadChats(), m.loadTranscript())

	case refreshTickMsg:
		if !m.running {
			return m, nil
		}
		return m, tea.Batch(m.loadTranscript(), m.refreshTick())

	case spinMsg:
		if m.running {
			m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
			return m, m.spinCmd()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.renaming {
			m.renaming = false
			m.input.Reset()
			m.input.Placeholder = "Message the agent, Enter to send"
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		if m.renaming {
			return m, m.finishRename()
		}
		if m.running || strings.TrimSpace(m.input.Value()) == "" {
			return m, nil
		}
		return m, m.startTurn()

	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChat()

	case key.Matches(msg, m.keys.Rename):
		if m.activeChatID == "" || m.running {
			return m, nil
		}
		m.renaming = true
		m.input.Reset()
		m.input.Placeholder = "New title, Enter to confirm"
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		if m.activeChatID == "" || m.running {
			return m, nil
		}
		return m, m.deleteActiveChat()

	case key.Matches(msg, m.keys.NextChat):
		m.moveSelection(1)
		return m, m.loadTranscript()

	case key.Matches(msg, m.keys.PrevChat):
		m.moveSelection(-1)
		return m, m.loadTranscript()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startTurn kicks off one agent turn. Input stays disabled until turnDoneMsg
// arrives; only one turn per chat may be in flight.
func (m *Model) startTurn() tea.Cmd {
	text := m.input.Value()
	chatID := m.activeChatID
	m.input.Reset()
	m.running = true
	m.spinnerPos = 0
	m.statusText = ""

	send := func() tea.Msg {
		return turnDoneMsg{err: m.app.Turns.SendTurn(context.Background(), chatID, text)}
	}
	return tea.Batch(send, m.spinCmd(), m.refreshTick())
}

func (m *Model) newChat() tea.Cmd {
	return func() tea.Msg {
		chat, err := m.app.Chats.CreateChat()
		if err != nil {
			return chatsLoadedMsg{err: err}
		}
		chats, lerr := m.app.Chats.ListChats()
		if lerr != nil {
			return chatsLoadedMsg{err: lerr}
		}
		// The new chat becomes active immediately.
		return chatsLoadedMsg{chats: chats, setActive: true, activeChatID: chat.ID}
	}
}

func (m *Model) finishRename() tea.Cmd {
	title := m.input.Value()
	chatID := m.activeChatID
	m.renaming = false
	m.input.Reset()
	m.input.Placeholder = "Message the agent, Enter to send"
	return func() tea.Msg {
		if err := m.app.Chats.RenameChat(chatID, title); err != nil {
			return chatsLoadedMsg{err: err}
		}
		chats, err := m.app.Chats.ListChats()
		return chatsLoadedMsg{chats: chats, err: err}
	}
}

func (m *Model) deleteActiveChat() tea.Cmd {
	chatID := m.activeChatID
	return func() tea.Msg {
		next, err := m.app.Chats.DeleteChat(chatID, chatID)
		if err != nil {
			return chatsLoadedMsg{err: err}
		}
		chats, err := m.app.Chats.ListChats()
		return chatsLoadedMsg{chats: chats, err: err, setActive: true, activeChatID: next.ChatID}
	}
}

func (m *Model) loadChats() tea.Cmd {
	return func() tea.Msg {
		chats, err := m.app.Chats.ListChats()
		return chatsLoadedMsg{chats: chats, err: err}
	}
}

func (m *Model) loadTranscript() tea.Cmd {
	chatID := m.activeChatID
	if chatID == "" {
		return func() tea.Msg { return transcriptMsg{} }
	}
	return func() tea.Msg {
		msgs, err := m.app.Chats.Messages(chatID)
		return transcriptMsg{chatID: chatID, msgs: msgs, err: err}
	}
}

func (m *Model) refreshTick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m *Model) spinCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return spinMsg{}
	})
}

func (m *Model) moveSelection(delta int) {
	if len(m.chats) == 0 {
		return
	}
	idx := 0
	for i, c := range m.chats {
		if c.ID == m.activeChatID {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = len(m.chats) - 1
	}
	if idx >= len(m.chats) {
		idx = 0
	}
	m.activeChatID = m.chats[idx].ID
	m.transcript = nil
}

func (m *Model) layout() {
	contentHeight := m.height - 7 // top bar, input box, footer
	if contentHeight < 3 {
		contentHeight = 3
	}
	chatWidth := m.width - sidebarWidth - 6
	if chatWidth < 20 {
		chatWidth = 20
	}
	if !m.ready {
		m.chatVP = viewport.New(chatWidth, contentHeight)
		m.ready = true
	} else {
		m.chatVP.Width = chatWidth
		m.chatVP.Height = contentHeight
	}
	m.input.SetWidth(m.width - 6)
	m.renderTranscript()
}

func (m *Model) renderTranscript() {
	if !m.ready {
		return
	}
	width := m.chatVP.Width
	var b strings.Builder
	for i, msg := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.roleLabel(msg))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(msg.Content))
	}
	m.chatVP.SetContent(b.String())
	m.chatVP.GotoBottom()
}

func (m *Model) roleLabel(msg app.Message) string {
	switch msg.Role {
	case app.RoleUser:
		return m.theme.RoleYou.Render("You")
	case app.RoleAssistant:
		label := "Agent"
		if msg.TaskStatus != "" {
			label = fmt.Sprintf("Agent · %s", msg.TaskStatus)
		}
		if msg.TaskStatus == app.TaskFailed {
			return m.theme.RoleErr.Render(label)
		}
		return m.theme.RoleAI.Render(label)
	default:
		return m.theme.RoleSys.Render("System")
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	top := m.theme.TopBarTitle.Render("eva-chat")
	if m.running {
		top += "  " + m.theme.Spinner.Render(spinnerFrames[m.spinnerPos]+" waiting for agent")
	}

	sidebar := m.renderSidebar()
	chatPane := m.theme.Pane.Render(m.chatVP.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chatPane)

	inputStyle := m.theme.InputBox
	if !m.running {
		inputStyle = m.theme.InputBoxF
	}
	footer := m.theme.Footer.Render(footerHelp(m.renaming))
	if m.statusText != "" {
		footer = m.theme.RoleErr.Render(m.statusText)
	}

	return strings.Join([]string{top, body, inputStyle.Render(m.input.View()), footer}, "\n")
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render("Chats"))
	b.WriteString("\n")
	if len(m.chats) == 0 {
		b.WriteString(m.theme.ChatItem.Render("ctrl+n starts a chat"))
	}
	for _, chat := range m.chats {
		b.WriteString("\n")
		title := truncate(chat.Title, sidebarWidth-4)
		if chat.ID == m.activeChatID {
			b.WriteString(m.theme.ChatActive.Render("▸ " + title))
		} else {
			b.WriteString(m.theme.ChatItem.Render("  " + title))
		}
	}
	style := m.theme.Pane.Width(sidebarWidth).Height(m.chatVP.Height)
	return style.Render(b.String())
}

func truncate(s string, max int) string {
	if max <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
