package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send       key.Binding
	NewChat    key.Binding
	Rename     key.Binding
	DeleteChat key.Binding
	NextChat   key.Binding
	PrevChat   key.Binding
	Cancel     key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewChat:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Rename:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "rename")),
		DeleteChat: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete chat")),
		NextChat:   key.NewBinding(key.WithKeys("ctrl+down"), key.WithHelp("ctrl+↓", "next chat")),
		PrevChat:   key.NewBinding(key.WithKeys("ctrl+up"), key.WithHelp("ctrl+↑", "prev chat")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func footerHelp(renaming bool) string {
	if renaming {
		return "enter confirm rename · esc cancel"
	}
	return "enter send · ctrl+n new · ctrl+r rename · ctrl+d delete · ctrl+↑/↓ switch · ctrl+c quit"
}
