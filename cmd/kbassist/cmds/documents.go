package cmds

import (
	"fmt"
	"os"

	"github.com/go-go-golems/kbassist/pkg/confirm"
	"github.com/go-go-golems/kbassist/pkg/shell"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewDocumentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage the documents in the knowledge base",
	}
	cmd.AddCommand(newDocumentsListCommand(), newDocumentsClearCommand())
	return cmd
}

func newDocumentsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			res, err := newClient().GetDocuments(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(w)
				defer func() {
					_ = enc.Close()
				}()
				return enc.Encode(res)
			case "text":
				if len(res.Documents) == 0 {
					fmt.Fprintln(w, "No documents uploaded yet")
					return nil
				}
				for _, d := range res.Documents {
					fmt.Fprintln(w, d)
				}
				return nil
			default:
				return errors.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text, yaml)")
	return cmd
}

func newDocumentsClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all documents from the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")

			var confirmer shell.Confirmer
			switch {
			case yes:
				confirmer = confirm.Always(true)
			case isatty.IsTerminal(os.Stdin.Fd()):
				confirmer = &confirm.Prompt{Reader: cmd.InOrStdin(), Writer: cmd.ErrOrStderr()}
			default:
				return errors.New("refusing to clear documents without a terminal, pass --yes")
			}

			app := shell.New(newClient(), shell.WithConfirmer(confirmer))
			defer app.Close()
			if !app.ClearDocuments(cmd.Context()) {
				if t := app.Toasts().Current(); t != nil {
					return errors.New(t.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing was cleared")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), shell.ClearSuccessMessage)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}
