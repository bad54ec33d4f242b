package main

import (
	"github.com/go-go-golems/kbassist/cmd/kbassist/cmds"
	"github.com/go-go-golems/kbassist/pkg/config"
	"github.com/go-go-golems/kbassist/pkg/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kbassist",
	Short: "kbassist is a terminal client for a document question answering backend",
	Long: `kbassist uploads documents to a knowledge base backend and lets you ask
questions about them, either from an interactive chat or from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// reinitialize the logger now that --log-level and co are parsed
		s := config.Load().Logging
		if cmds.IsFullScreen(cmd) && s.File == "" {
			// the chat UI owns the terminal
			s.File = logging.DefaultTUILogFile
		}
		return logging.InitLogger(s)
	},
}

func main() {
	err := config.InitViper("kbassist", rootCmd)
	cobra.CheckErr(err)
	err = logging.InitLogger(logging.Settings{Level: "info", Format: "text"})
	cobra.CheckErr(err)

	cmds.Register(rootCmd)

	err = rootCmd.Execute()
	cobra.CheckErr(err)
}
