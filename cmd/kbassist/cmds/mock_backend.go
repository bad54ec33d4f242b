package cmds

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/kbassist/pkg/mockbackend"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewMockBackendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Serve an in-memory backend for trying the client without the real service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveMockBackend(ctx, addr)
		},
	}
	cmd.Flags().String("addr", ":8000", "Address to listen on")
	return cmd
}

func serveMockBackend(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           mockbackend.New().Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down mock backend")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	eg.Go(func() error {
		log.Info().Str("addr", addr).Msg("starting mock backend")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})
	return eg.Wait()
}
