package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/config"
	"github.com/go-go-golems/kbassist/pkg/dropwatch"
	"github.com/go-go-golems/kbassist/pkg/events"
	"github.com/go-go-golems/kbassist/pkg/redisstream"
	"github.com/go-go-golems/kbassist/pkg/uploader"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload every supported file dropped into a directory",
		Long: `Watch a directory and upload every supported file that appears in it.
With --redis-enabled, running chat sessions refresh their document list after
each upload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settle, _ := cmd.Flags().GetDuration("settle")
			dir, err := homedir.Expand(args[0])
			if err != nil {
				return errors.Wrapf(err, "expand %s", args[0])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, dir, settle)
		},
	}
	cmd.Flags().Duration("settle", dropwatch.DefaultSettle, "How long a new file must stay unchanged before it is uploaded")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string, settle time.Duration) error {
	w, err := dropwatch.New(dir,
		dropwatch.WithSettle(settle),
		dropwatch.WithExtensions(api.AcceptedExtensions...),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()

	bus, err := redisstream.BuildBus(ctx, config.Load().Redis)
	if err != nil {
		return err
	}
	defer func() {
		_ = bus.Close()
	}()

	files, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("watching for documents")

	client := newClient()
	for f := range files {
		up := uploader.New(client)
		ok := uploadOne(ctx, cmd.OutOrStdout(), up, f, true)
		up.Close()
		if !ok {
			continue
		}
		count := 0
		if docs, err := client.GetDocuments(ctx); err == nil {
			count = len(docs.Documents)
		}
		if err := bus.Publish(events.Event{Type: events.EventDocumentUploaded, Count: count}); err != nil {
			log.Warn().Err(err).Msg("could not publish upload event")
		}
	}
	log.Info().Msg("stopped watching")
	return nil
}
