package cmds

import (
	"fmt"

	"github.com/go-go-golems/kbassist/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect kbassist configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings after flags, environment and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Fprintf(w, "# config file: %s\n", used)
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(config.Load()); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}
