package cmds

import (
	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/config"
	"github.com/spf13/cobra"
)

const (
	userAgent            = "kbassist"
	fullScreenAnnotation = "fullscreen"
)

// Register adds all kbassist subcommands to root.
func Register(root *cobra.Command) {
	root.AddCommand(
		NewChatCommand(),
		NewAskCommand(),
		NewUploadCommand(),
		NewWatchCommand(),
		NewDocumentsCommand(),
		NewHealthCommand(),
		NewMockBackendCommand(),
		NewConfigCommand(),
	)
}

// IsFullScreen reports whether cmd takes over the terminal, in which case
// logs must not go to stderr.
func IsFullScreen(cmd *cobra.Command) bool {
	return cmd.Annotations[fullScreenAnnotation] == "true"
}

func newClient() *api.Client {
	return api.NewClient(config.Load().APIURL, api.WithUserAgent(userAgent))
}
