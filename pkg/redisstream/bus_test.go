package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/kbassist/pkg/events"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestBuildBusFallsBackToMemory(t *testing.T) {
	bus, err := BuildBus(context.Background(), Settings{})
	require.NoError(t, err)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(events.Event{Type: events.EventDocumentUploaded, Count: 1}))

	select {
	case ev := <-ch:
		require.Equal(t, bus.Origin(), ev.Origin)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestBuildBusFailsWhenRedisIsUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := BuildBus(ctx, Settings{Enabled: true, Addr: "127.0.0.1:1", Consumer: "test"})
	require.Error(t, err)
}

func TestSettingsFromFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "x"}
	require.NoError(t, AddFlags(cmd))
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--redis-enabled", "--redis-addr", "redis:6380"}))

	s := SettingsFromViper()
	require.True(t, s.Enabled)
	require.Equal(t, "redis:6380", s.Addr)
	require.Equal(t, "kbassist", s.Consumer)
	require.Empty(t, s.Group)
}
