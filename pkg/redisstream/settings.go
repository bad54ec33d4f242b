package redisstream

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Settings holds Redis Streams transport configuration for the event bus.
type Settings struct {
	Enabled  bool   `yaml:"redis-enabled"`
	Addr     string `yaml:"redis-addr"`
	Group    string `yaml:"redis-group"`
	Consumer string `yaml:"redis-consumer"`
}

// AddFlags registers the redis flags on cmd and binds them to viper.
func AddFlags(cmd *cobra.Command) error {
	f := cmd.PersistentFlags()
	f.Bool("redis-enabled", false, "Share document events between instances over Redis Streams")
	f.String("redis-addr", "localhost:6379", "Redis address host:port")
	f.String("redis-group", "", "Redis consumer group (defaults to one group per instance)")
	f.String("redis-consumer", "kbassist", "Redis consumer name")
	for _, name := range []string{"redis-enabled", "redis-addr", "redis-group", "redis-consumer"} {
		if err := viper.BindPFlag(name, f.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func SettingsFromViper() Settings {
	return Settings{
		Enabled:  viper.GetBool("redis-enabled"),
		Addr:     viper.GetString("redis-addr"),
		Group:    viper.GetString("redis-group"),
		Consumer: viper.GetString("redis-consumer"),
	}
}
