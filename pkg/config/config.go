// Package config wires kbassist's settings: flags on the root command,
// KBASSIST_* environment variables (optionally from a .env file) and
// $HOME/.kbassist/config.yaml, in viper's usual precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/logging"
	"github.com/go-go-golems/kbassist/pkg/redisstream"
	"github.com/go-go-golems/kbassist/pkg/toast"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "KBASSIST"

type Settings struct {
	APIURL        string               `yaml:"api-url"`
	ToastDuration time.Duration        `yaml:"toast-duration"`
	Logging       logging.Settings     `yaml:",inline"`
	Redis         redisstream.Settings `yaml:",inline"`
}

// InitViper registers the global flags on rootCmd and sets up viper's
// environment and config file lookup. It must run before rootCmd executes.
func InitViper(appName string, rootCmd *cobra.Command) error {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "Config file (default $HOME/."+appName+"/config.yaml)")
	f.String("api-url", api.DefaultBaseURL, "Base URL of the knowledge base backend")
	f.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	f.String("log-file", "", "Write logs to this file instead of stderr")
	f.String("log-format", "text", "Log format (text, json)")
	f.Bool("with-caller", false, "Include caller (file:line) in logs")
	f.Duration("toast-duration", toast.DefaultDuration, "How long notifications stay visible (0 keeps them)")

	for _, name := range []string{"api-url", "log-level", "log-file", "log-format", "with-caller", "toast-duration"} {
		if err := viper.BindPFlag(name, f.Lookup(name)); err != nil {
			return errors.Wrapf(err, "bind flag %s", name)
		}
	}
	if err := redisstream.AddFlags(rootCmd); err != nil {
		return errors.Wrap(err, "add redis flags")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(func() {
		cfg, _ := f.GetString("config")
		cobra.CheckErr(ReadConfig(appName, cfg))
	})
	return nil
}

// ReadConfig loads .env from the working directory, then the config file.
// Missing files are not an error.
func ReadConfig(appName, configFile string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "load .env")
	}

	if configFile != "" {
		path, err := homedir.Expand(configFile)
		if err != nil {
			return errors.Wrapf(err, "expand %s", configFile)
		}
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, "."+appName))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (configFile == "" && os.IsNotExist(err)) {
			return nil
		}
		return errors.Wrap(err, "read config file")
	}
	log.Debug().Str("config_path", viper.ConfigFileUsed()).Msg("using config file")
	return nil
}

// Load reads the effective settings out of viper.
func Load() Settings {
	return Settings{
		APIURL:        viper.GetString("api-url"),
		ToastDuration: viper.GetDuration("toast-duration"),
		Logging: logging.Settings{
			Level:      viper.GetString("log-level"),
			File:       viper.GetString("log-file"),
			Format:     viper.GetString("log-format"),
			WithCaller: viper.GetBool("with-caller"),
		},
		Redis: redisstream.SettingsFromViper(),
	}
}
