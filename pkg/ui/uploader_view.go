package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/uploader"
	"github.com/mitchellh/go-homedir"
)

func supportedFormatsHint() string {
	names := make([]string, 0, len(api.AcceptedExtensions))
	for _, ext := range api.AcceptedExtensions {
		names = append(names, strings.ToUpper(strings.TrimPrefix(ext, ".")))
	}
	return "Supported formats: " + strings.Join(names, ", ")
}

// uploaderView is the upload panel. Files come from the picker or from a
// path pasted into the terminal, which is what dragging a file onto most
// terminals produces.
type uploaderView struct {
	picker  filepicker.Model
	spinner spinner.Model
	state   uploader.State
	width   int
}

func newUploaderView(startDir string) uploaderView {
	fp := filepicker.New()
	fp.ShowHidden = false
	fp.AutoHeight = false
	fp.Height = 8
	if startDir != "" {
		fp.CurrentDirectory = startDir
	} else if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = subHeaderStyle

	return uploaderView{picker: fp, spinner: sp, state: uploader.State{Phase: uploader.PhaseIdle}, width: 60}
}

func (v uploaderView) Init() tea.Cmd {
	return tea.Batch(v.picker.Init(), v.spinner.Tick)
}

// pick is a file chosen in the panel. Dropped is set for pasted paths.
type pick struct {
	File    api.File
	Dropped bool
}

// Update returns the file the user picked, if any.
func (v uploaderView) Update(msg tea.Msg) (uploaderView, *pick, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(tick)
		return v, nil, cmd
	}

	if k, ok := msg.(tea.KeyMsg); ok && k.Paste {
		if f, ok := droppedFile(string(k.Runes)); ok {
			return v, &pick{File: f, Dropped: true}, nil
		}
		return v, nil, nil
	}

	var cmd tea.Cmd
	v.picker, cmd = v.picker.Update(msg)
	if ok, path := v.picker.DidSelectFile(msg); ok {
		if f, err := api.LocalFile(path); err == nil {
			return v, &pick{File: f}, cmd
		}
	}
	return v, nil, cmd
}

// droppedFile interprets pasted text as a path. Terminals quote or escape
// paths with spaces when a file is dropped on them.
func droppedFile(text string) (api.File, bool) {
	p := strings.TrimSpace(text)
	p = strings.Trim(p, `'"`)
	p = strings.ReplaceAll(p, `\ `, " ")
	p = strings.TrimPrefix(p, "file://")
	if p == "" || strings.Contains(p, "\n") {
		return api.File{}, false
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return api.File{}, false
	}
	f, err := api.LocalFile(expanded)
	if err != nil {
		return api.File{}, false
	}
	return f, true
}

func (v uploaderView) View() string {
	var b strings.Builder
	b.WriteString(subHeaderStyle.Render("Upload Document") + "\n")

	zone := dropZoneStyle
	if v.state.Dragging {
		zone = dropZoneActiveStyle
	}
	label := "Select a file below or drop one on the terminal"
	if v.state.File != nil {
		label = fmt.Sprintf("%s (%s)", v.state.File.Name, humanize.Bytes(uint64(v.state.File.Size)))
	}
	b.WriteString(zone.Width(v.width).Render(label) + "\n")

	switch {
	case v.state.Uploading():
		b.WriteString(v.spinner.View() + " " + v.state.Status + "\n")
	case v.state.Phase == uploader.PhaseError:
		b.WriteString(errorStyle.Render(v.state.Status) + "\n")
	case v.state.Phase == uploader.PhaseSuccess:
		b.WriteString(successStyle.Render(v.state.Status) + "\n")
	}
	if v.state.File != nil && !v.state.Uploading() {
		b.WriteString(mutedStyle.Render("ctrl+s to upload") + "\n")
	}

	if !v.state.Uploading() {
		b.WriteString(v.picker.View() + "\n")
	}
	b.WriteString(mutedStyle.Render(supportedFormatsHint()))
	return panelStyle.Render(b.String())
}
