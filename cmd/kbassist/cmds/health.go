package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable and ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			h, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: status=%s rag_ready=%t\n", client.BaseURL(), h.Status, h.RAGReady)
			if h.Status != "healthy" {
				return errors.Errorf("backend reports status %q", h.Status)
			}
			return nil
		},
	}
}
