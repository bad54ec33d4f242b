// Package confirm holds the non-TUI ways of answering a yes/no question.
package confirm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"
)

// Prompt asks on a terminal. Default is returned for an empty answer.
type Prompt struct {
	Reader  io.Reader
	Writer  io.Writer
	Default bool
}

func (p *Prompt) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ui := &input.UI{
		Writer: p.Writer,
		Reader: p.Reader,
	}

	def, hint := "n", "[y/N]"
	if p.Default {
		def, hint = "y", "[Y/n]"
	}

	_, _ = fmt.Fprint(p.Writer, "\n")
	answer, err := ui.Ask(fmt.Sprintf("%s %s", message, hint), &input.Options{
		Default:     def,
		Required:    true,
		Loop:        true,
		HideDefault: true,
		ValidateFunc: func(answer string) error {
			switch strings.ToLower(answer) {
			case "y", "yes", "n", "no", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "read confirmation")
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Always answers every question the same way, for --yes flags and tests.
type Always bool

func (a Always) Confirm(context.Context, string) (bool, error) {
	return bool(a), nil
}

// Func adapts a function.
type Func func(ctx context.Context, message string) (bool, error)

func (f Func) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}
