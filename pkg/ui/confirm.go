package ui

import (
	"context"

	"github.com/charmbracelet/huh"
)

// ConfirmRequest asks the UI to show a yes/no form. The answer goes to
// ReplyCh.
type ConfirmRequest struct {
	Message string
	ReplyCh chan<- bool
}

// FormConfirmer answers confirmations with a huh form shown by AppModel.
// Confirm blocks, so it must be called from a tea.Cmd, never from Update.
type FormConfirmer struct {
	requests chan ConfirmRequest
}

func NewFormConfirmer() *FormConfirmer {
	return &FormConfirmer{requests: make(chan ConfirmRequest)}
}

func (f *FormConfirmer) Requests() <-chan ConfirmRequest {
	return f.requests
}

func (f *FormConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case f.requests <- ConfirmRequest{Message: message, ReplyCh: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// confirmDialog is the active form and where its answer goes.
type confirmDialog struct {
	form  *huh.Form
	value *bool
	reply chan<- bool
}

func newConfirmDialog(req ConfirmRequest) *confirmDialog {
	value := new(bool)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(req.Message).
				Affirmative("Yes").
				Negative("No").
				Value(value),
		),
	).WithShowHelp(true)
	return &confirmDialog{form: form, value: value, reply: req.ReplyCh}
}

// answer replies once; aborted forms count as no.
func (d *confirmDialog) answer() {
	ok := d.form.State == huh.StateCompleted && *d.value
	d.reply <- ok
}
