package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/kbassist/pkg/chat"
	"github.com/go-go-golems/kbassist/pkg/shell"
	"github.com/go-go-golems/kbassist/pkg/store"
	"github.com/go-go-golems/kbassist/pkg/toast"
	"github.com/go-go-golems/kbassist/pkg/uploader"
	"github.com/rs/zerolog/log"
)

const (
	appTitle     = "AI Knowledge Base Assistant"
	sidebarWidth = 30
	// rows taken by the upload panel when it is shown
	uploaderHeight = 18
)

type Options struct {
	Shell   *shell.App
	Session *chat.Session
	// NewUploader is called every time the upload panel opens.
	NewUploader func() *uploader.Uploader
	Confirmer   *FormConfirmer
	// StartDir is where the file picker starts, the working directory if empty.
	StartDir string
}

// AppModel is the root bubbletea model. All state lives in the shell, chat
// and uploader stores; the model only mirrors their latest snapshots.
type AppModel struct {
	ctx         context.Context
	app         *shell.App
	session     *chat.Session
	newUploader func() *uploader.Uploader
	confirmer   *FormConfirmer
	startDir    string

	keys keyMap
	help help.Model

	shellCh <-chan shell.State
	chatCh  <-chan chat.State
	toastCh <-chan *toast.Toast
	cancels []func()

	shellState shell.State
	toast      *toast.Toast
	chat       chatView

	up       *uploader.Uploader
	upCh     <-chan uploader.State
	upCancel func()
	upView   uploaderView

	dialog *confirmDialog

	width  int
	height int
}

var _ tea.Model = AppModel{}

func NewAppModel(ctx context.Context, opts Options) AppModel {
	m := AppModel{
		ctx:         ctx,
		app:         opts.Shell,
		session:     opts.Session,
		newUploader: opts.NewUploader,
		confirmer:   opts.Confirmer,
		startDir:    opts.StartDir,
		keys:        defaultKeyMap(),
		help:        help.New(),
		shellState:  opts.Shell.State(),
		toast:       opts.Shell.Toasts().Current(),
		chat:        newChatView(),
		width:       100,
		height:      30,
	}
	m.chat.SetState(opts.Session.State())

	var cancel func()
	m.shellCh, cancel = store.Latest(opts.Shell.Store())
	m.cancels = append(m.cancels, cancel)
	m.chatCh, cancel = store.Latest(opts.Session.Store())
	m.cancels = append(m.cancels, cancel)
	m.toastCh, cancel = store.Latest(opts.Shell.Toasts().Store())
	m.cancels = append(m.cancels, cancel)

	m.layout()
	return m
}

// Close releases the store subscriptions and the open uploader. Call it on
// the final model returned by tea.Program.Run.
func (m AppModel) Close() {
	for _, c := range m.cancels {
		c()
	}
	if m.up != nil {
		m.upCancel()
		m.up.Close()
	}
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.mount(),
		waitForSnapshot(m.shellCh),
		waitForSnapshot(m.chatCh),
		waitForToast(m.toastCh),
		m.chat.spinner.Tick,
		textarea.Blink,
	}
	if m.confirmer != nil {
		cmds = append(cmds, waitForConfirmRequest(m.confirmer.Requests()))
	}
	return tea.Batch(cmds...)
}

func (m AppModel) mount() tea.Cmd {
	app, ctx := m.app, m.ctx
	return func() tea.Msg {
		app.Mount(ctx)
		return nil
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.dialog == nil {
		return m.update(msg)
	}
	// input belongs to the open form; everything else keeps the stores and
	// the sub views running underneath it
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		return m.updateDialog(msg)
	case tea.WindowSizeMsg:
		return m.update(msg)
	}
	m, dcmd := m.updateDialog(msg)
	next, cmd := m.update(msg)
	return next, tea.Batch(dcmd, cmd)
}

func (m AppModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case ConfirmRequest:
		m.dialog = newConfirmDialog(msg)
		return m, m.dialog.form.Init()

	case snapshotMsg[shell.State]:
		cmd := m.setShellState(msg.state)
		return m, tea.Batch(cmd, waitForSnapshot(m.shellCh))

	case snapshotMsg[chat.State]:
		m.chat.SetState(msg.state)
		return m, waitForSnapshot(m.chatCh)

	case toastMsg:
		m.toast = msg.toast
		return m, waitForToast(m.toastCh)

	case uploaderMsg:
		if msg.u != m.up {
			return m, nil
		}
		m.upView.state = msg.state
		return m, waitForUploader(m.up, m.upCh)

	case clipboardMsg:
		if msg.err != nil {
			log.Warn().Err(msg.err).Msg("could not copy answer")
			m.app.Toasts().Show("Could not copy to clipboard", toast.KindError)
		} else {
			m.app.Toasts().Show("Answer copied to clipboard", toast.KindInfo)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.forward(msg)
}

func (m AppModel) updateDialog(msg tea.Msg) (AppModel, tea.Cmd) {
	fm, cmd := m.dialog.form.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		m.dialog.form = f
	}
	if m.dialog.form.State != huh.StateNormal {
		m.dialog.answer()
		m.dialog = nil
		return m, tea.Batch(cmd, waitForConfirmRequest(m.confirmer.Requests()))
	}
	return m, cmd
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.DismissToast) && m.toast != nil:
		m.app.Toasts().Dismiss()
		return m, nil

	case key.Matches(msg, m.keys.ToggleUploader):
		m.app.ToggleUploader()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if len(m.shellState.Documents) == 0 {
			return m, nil
		}
		app, ctx := m.app, m.ctx
		return m, func() tea.Msg {
			app.ClearDocuments(ctx)
			return nil
		}

	case key.Matches(msg, m.keys.CopyAnswer):
		answer, ok := m.chat.LastAnswer()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return clipboardMsg{err: clipboard.WriteAll(answer)}
		}

	case key.Matches(msg, m.keys.Upload):
		if m.up == nil || !m.up.CanUpload() {
			return m, nil
		}
		up, ctx := m.up, m.ctx
		return m, func() tea.Msg {
			up.Upload(ctx)
			return nil
		}
	}

	if m.up != nil {
		var p *pick
		var cmd tea.Cmd
		m.upView, p, cmd = m.upView.Update(msg)
		if p != nil {
			if p.Dropped {
				m.up.Drop(p.File)
			} else {
				m.up.Select(p.File)
			}
		}
		return m, cmd
	}

	if m.shellState.MainPanel() != shell.PanelChat {
		return m, nil
	}

	switch chat.ClassifyKey(m.keys.composerKey(msg)) {
	case chat.KeyActionSend:
		draft := m.chat.Draft()
		// the mirrored state can lag the session by one snapshot
		if m.session.State().Awaiting || strings.TrimSpace(draft) == "" {
			return m, nil
		}
		m.chat.ResetDraft()
		session, ctx := m.session, m.ctx
		return m, func() tea.Msg {
			session.Send(ctx, draft)
			return nil
		}
	case chat.KeyActionNewline:
		m.chat.InsertNewline()
		m.session.SetDraft(m.chat.Draft())
		return m, nil
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	m.session.SetDraft(m.chat.Draft())
	return m, cmd
}

// forward hands everything else (ticks, blinks, directory listings, mouse)
// to the sub views.
func (m AppModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)
	if m.up != nil {
		m.upView, _, cmd = m.upView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *AppModel) setShellState(st shell.State) tea.Cmd {
	m.shellState = st
	var cmd tea.Cmd
	switch {
	case st.ShowUploader && m.up == nil:
		cmd = m.openUploader()
	case !st.ShowUploader && m.up != nil:
		m.closeUploader()
	}
	m.layout()
	return cmd
}

func (m *AppModel) openUploader() tea.Cmd {
	if m.newUploader == nil {
		return nil
	}
	m.up = m.newUploader()
	ch, cancel := store.Latest(m.up.Store())
	m.upCancel = cancel
	m.upCh = ch
	m.upView = newUploaderView(m.startDir)
	m.upView.state = m.up.State()
	m.upView.width = m.mainWidth() - 4
	return tea.Batch(m.upView.Init(), waitForUploader(m.up, ch))
}

func (m *AppModel) closeUploader() {
	m.upCancel()
	m.up.Close()
	m.up = nil
	m.upCh = nil
}

func (m AppModel) mainWidth() int {
	w := m.width - sidebarWidth - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m *AppModel) layout() {
	h := m.height - 4
	if m.help.ShowAll {
		h -= 3
	}
	if m.up != nil {
		h -= uploaderHeight
	}
	m.chat.SetSize(m.mainWidth()-4, h-2)
	m.help.Width = m.width
	if m.up != nil {
		m.upView.width = m.mainWidth() - 4
	}
}

func (m AppModel) View() string {
	header := m.headerView()

	var main string
	switch {
	case m.dialog != nil:
		main = panelStyle.Width(m.mainWidth()).Render(m.dialog.form.View())
	default:
		var parts []string
		if m.up != nil {
			parts = append(parts, m.upView.View())
		}
		if m.shellState.MainPanel() == shell.PanelChat {
			parts = append(parts, panelStyle.Width(m.mainWidth()).Render(m.chat.View()))
		} else {
			parts = append(parts, panelStyle.Width(m.mainWidth()).Render(welcomeView()))
		}
		main = lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), main)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.footerView())
}

func (m AppModel) headerView() string {
	actions := []string{}
	if m.shellState.ShowUploader {
		actions = append(actions, "ctrl+o hide")
	} else {
		actions = append(actions, "ctrl+o upload documents")
	}
	if len(m.shellState.Documents) > 0 {
		actions = append(actions, "ctrl+x clear documents")
	}
	return titleStyle.Render(appTitle) + "  " + mutedStyle.Render(strings.Join(actions, " · "))
}

func (m AppModel) sidebarView() string {
	var b strings.Builder
	b.WriteString(subHeaderStyle.Render(fmt.Sprintf("Documents (%d)", len(m.shellState.Documents))))
	b.WriteString("\n")
	if len(m.shellState.Documents) == 0 {
		b.WriteString(mutedStyle.Render("No documents uploaded yet"))
	}
	for _, d := range m.shellState.Documents {
		b.WriteString("• " + d + "\n")
	}
	return sidebarStyle.Width(sidebarWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m AppModel) footerView() string {
	line := ""
	if m.toast != nil {
		line = toastStyle(m.toast.Kind).Render(m.toast.Message) + mutedStyle.Render("  (esc)")
	}
	return line + "\n" + m.help.View(m.keys)
}

func welcomeView() string {
	features := []struct{ title, text string }{
		{"Upload Documents", "Support for " + strings.TrimPrefix(supportedFormatsHint(), "Supported formats: ") + " files"},
		{"Ask Questions", "Get intelligent answers from your documents"},
		{"Cited Sources", "See exactly where answers come from"},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to "+appTitle) + "\n")
	b.WriteString(mutedStyle.Render("Your intelligent document companion") + "\n\n")
	for _, f := range features {
		b.WriteString(subHeaderStyle.Render(f.title) + "\n" + f.text + "\n\n")
	}
	b.WriteString("Press ctrl+o to upload a document and get started")
	return b.String()
}
