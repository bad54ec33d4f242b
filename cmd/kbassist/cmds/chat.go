package cmds

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/kbassist/pkg/chat"
	"github.com/go-go-golems/kbassist/pkg/config"
	"github.com/go-go-golems/kbassist/pkg/redisstream"
	"github.com/go-go-golems/kbassist/pkg/shell"
	"github.com/go-go-golems/kbassist/pkg/toast"
	"github.com/go-go-golems/kbassist/pkg/ui"
	"github.com/go-go-golems/kbassist/pkg/uploader"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "chat",
		Short:       "Open the interactive knowledge base assistant",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{fullScreenAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			noMouse, _ := cmd.Flags().GetBool("no-mouse")
			return runChat(cmd.Context(), dir, !noMouse)
		},
	}
	cmd.Flags().String("dir", "", "Directory the file picker starts in (default: working directory)")
	cmd.Flags().Bool("no-mouse", false, "Disable mouse support, which keeps terminal text selection working")
	return cmd
}

func runChat(ctx context.Context, dir string, mouse bool) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("chat needs a terminal, use ask or upload from scripts")
	}
	if dir != "" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return errors.Wrapf(err, "expand %s", dir)
		}
		dir = expanded
	}

	settings := config.Load()
	client := newClient()

	bus, err := redisstream.BuildBus(ctx, settings.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn().Err(err).Msg("could not close event bus")
		}
	}()

	toasts := toast.NewManager(toast.WithDefaultDuration(settings.ToastDuration))
	defer toasts.Close()

	confirmer := ui.NewFormConfirmer()
	app := shell.New(client,
		shell.WithConfirmer(confirmer),
		shell.WithToasts(toasts),
		shell.WithBus(bus),
	)
	defer app.Close()

	session := chat.NewSession(client)
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	model := ui.NewAppModel(ctx, ui.Options{
		Shell:   app,
		Session: session,
		NewUploader: func() *uploader.Uploader {
			return uploader.New(client, uploader.WithOnSuccess(func() {
				app.OnUploadSuccess(ctx)
			}))
		},
		Confirmer: confirmer,
		StartDir:  dir,
	})

	options := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if mouse {
		options = append(options, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, options...)

	log.Info().Str("api_url", client.BaseURL()).Msg("starting chat")

	eg.Go(func() error {
		return app.Run(ctx)
	})
	eg.Go(func() error {
		// ending the program ends the bus subscription
		defer cancel()
		final, err := p.Run()
		if m, ok := final.(ui.AppModel); ok {
			m.Close()
		} else {
			model.Close()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			// the bus subscription failed, eg.Wait reports why
			return nil
		}
		return err
	})

	return eg.Wait()
}
