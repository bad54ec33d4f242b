package cmds

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func NewAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question about the uploaded documents",
		Long: `Ask one question about the uploaded documents and print the answer.
Use "-" to read the question from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			question := strings.Join(args, " ")
			if question == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read question from stdin")
				}
				question = string(b)
			}
			question = strings.TrimSpace(question)
			if question == "" {
				return errors.New("question is empty")
			}

			res, err := newClient().AskQuestion(cmd.Context(), question, []api.ChatTurn{})
			if err != nil {
				return err
			}
			return printAnswer(cmd.OutOrStdout(), res, raw)
		},
	}
	cmd.Flags().Bool("raw", false, "Print the answer as markdown instead of rendering it")
	return cmd
}

func printAnswer(w io.Writer, res *api.AskResult, raw bool) error {
	answer := res.Answer
	if !raw {
		rendered, err := renderMarkdown(answer)
		if err != nil {
			return err
		}
		answer = rendered
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(answer, "\n")); err != nil {
		return err
	}
	if len(res.Sources) > 0 {
		_, err := fmt.Fprintf(w, "\nSources: %s\n", strings.Join(res.Sources, ", "))
		return err
	}
	return nil
}

func renderMarkdown(s string) (string, error) {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.Wrap(err, "create markdown renderer")
	}
	out, err := r.Render(s)
	if err != nil {
		return "", errors.Wrap(err, "render answer")
	}
	return out, nil
}
