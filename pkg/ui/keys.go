package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/kbassist/pkg/chat"
)

type keyMap struct {
	Send           key.Binding
	Newline        key.Binding
	ToggleUploader key.Binding
	Upload         key.Binding
	Clear          key.Binding
	CopyAnswer     key.Binding
	DismissToast   key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		// most terminals cannot report shift+enter
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		ToggleUploader: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "upload documents"),
		),
		Upload: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "upload selected file"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "clear documents"),
		),
		CopyAnswer: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy last answer"),
		),
		DismissToast: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Newline, k.ToggleUploader, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Newline, k.CopyAnswer},
		{k.ToggleUploader, k.Upload, k.Clear},
		{k.DismissToast, k.Help, k.Quit},
	}
}

// composerKey translates a terminal key press into the composer's keyboard
// contract.
func (k keyMap) composerKey(msg tea.KeyMsg) chat.Key {
	switch {
	case key.Matches(msg, k.Newline):
		return chat.Key{Enter: true, Shift: true}
	case key.Matches(msg, k.Send):
		return chat.Key{Enter: true}
	default:
		return chat.Key{}
	}
}
