package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/kbassist/pkg/toast"
	"github.com/go-go-golems/kbassist/pkg/uploader"
)

// snapshotMsg carries a store snapshot into the event loop.
type snapshotMsg[S any] struct {
	state S
}

type toastMsg struct {
	toast *toast.Toast
}

// uploaderMsg is tagged with its uploader, since a hidden panel's uploader is
// replaced by a fresh one when the panel is shown again.
type uploaderMsg struct {
	u     *uploader.Uploader
	state uploader.State
}

type clipboardMsg struct {
	err error
}

func waitForSnapshot[S any](ch <-chan S) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg[S]{state: s}
	}
}

func waitForToast(ch <-chan *toast.Toast) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{toast: t}
	}
}

func waitForUploader(u *uploader.Uploader, ch <-chan uploader.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return uploaderMsg{u: u, state: s}
	}
}

func waitForConfirmRequest(ch <-chan ConfirmRequest) tea.Cmd {
	return func() tea.Msg {
		req, ok := <-ch
		if !ok {
			return nil
		}
		return req
	}
}
