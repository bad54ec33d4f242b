package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/chat"
	"github.com/rs/zerolog/log"
)

const composerHeight = 3

// chatView renders the transcript and owns the composer.
type chatView struct {
	viewport viewport.Model
	composer textarea.Model
	spinner  spinner.Model

	state    chat.State
	width    int
	renderer *glamour.TermRenderer
	// rendered caches assistant markdown by transcript position.
	rendered map[int]string
}

func newChatView() chatView {
	ta := textarea.New()
	ta.Placeholder = "Ask a question about your documents..."
	ta.ShowLineNumbers = false
	ta.SetHeight(composerHeight)
	ta.CharLimit = 0
	// the app handles enter and the newline keys itself
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = subHeaderStyle

	return chatView{
		viewport: viewport.New(80, 10),
		composer: ta,
		spinner:  sp,
		width:    80,
		rendered: map[int]string{},
	}
}

func (c *chatView) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	vh := height - composerHeight - 2
	if vh < 3 {
		vh = 3
	}
	if width != c.width {
		c.renderer = nil
		c.rendered = map[int]string{}
	}
	c.width = width
	c.viewport.Width = width
	c.viewport.Height = vh
	c.composer.SetWidth(width)
	c.refresh()
}

func (c *chatView) SetState(st chat.State) {
	c.state = st
	c.refresh()
}

func (c *chatView) refresh() {
	atBottom := c.viewport.AtBottom()
	var b strings.Builder
	for i, row := range chat.Rows(c.state) {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c.renderRow(row))
	}
	c.viewport.SetContent(b.String())
	if atBottom || c.state.Awaiting {
		c.viewport.GotoBottom()
	}
}

func (c *chatView) renderRow(row chat.Row) string {
	wrap := lipgloss.NewStyle().Width(c.width)
	switch row.Kind {
	case chat.RowUser:
		return userStyle.Render("You") + "\n" + wrap.Render(row.Content)
	case chat.RowTyping:
		return assistantStyle.Render("Assistant") + "\n" + c.spinner.View() + mutedStyle.Render(" thinking...")
	}

	body, ok := c.rendered[row.Index]
	if !ok {
		body = c.markdown(row.Content)
		c.rendered[row.Index] = body
	}
	out := assistantStyle.Render("Assistant") + "\n" + body
	if row.HasCitations() {
		out += "\n" + wrap.Render(sourcesStyle.Render("Sources: "+strings.Join(row.Sources, ", ")))
	}
	return out
}

func (c *chatView) markdown(s string) string {
	if c.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(c.width),
		)
		if err != nil {
			log.Warn().Err(err).Msg("could not create markdown renderer")
			return lipgloss.NewStyle().Width(c.width).Render(s)
		}
		c.renderer = r
	}
	out, err := c.renderer.Render(s)
	if err != nil {
		return lipgloss.NewStyle().Width(c.width).Render(s)
	}
	return strings.Trim(out, "\n")
}

// Update forwards scrolling, spinner ticks and editing keys.
func (c chatView) Update(msg tea.Msg) (chatView, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if tick, ok := msg.(spinner.TickMsg); ok {
		c.spinner, cmd = c.spinner.Update(tick)
		if c.state.Awaiting {
			c.refresh()
		}
		return c, cmd
	}

	switch m := msg.(type) {
	case tea.MouseMsg:
		c.viewport, cmd = c.viewport.Update(m)
		return c, cmd
	case tea.KeyMsg:
		switch m.String() {
		case "pgup", "pgdown":
			c.viewport, cmd = c.viewport.Update(m)
			return c, cmd
		}
	}

	c.composer, cmd = c.composer.Update(msg)
	cmds = append(cmds, cmd)
	return c, tea.Batch(cmds...)
}

func (c chatView) View() string {
	return c.viewport.View() + "\n" + c.composer.View()
}

func (c chatView) Draft() string {
	return c.composer.Value()
}

func (c *chatView) ResetDraft() {
	c.composer.Reset()
}

func (c *chatView) InsertNewline() {
	c.composer.InsertString("\n")
}

// LastAnswer is the newest assistant turn after the greeting.
func (c chatView) LastAnswer() (string, bool) {
	t := c.state.Transcript
	for i := len(t) - 1; i > 0; i-- {
		if t[i].Role == api.RoleAssistant {
			return t[i].Content, true
		}
	}
	return "", false
}
