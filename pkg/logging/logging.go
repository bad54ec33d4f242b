package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTUILogFile is where the chat UI logs, since the terminal belongs to
// the UI while it runs.
const DefaultTUILogFile = "~/.kbassist/kbassist.log"

type Settings struct {
	Level      string `yaml:"log-level"`
	File       string `yaml:"log-file"`
	Format     string `yaml:"log-format"`
	WithCaller bool   `yaml:"with-caller"`
}

// InitLogger replaces the global zerolog logger according to s.
func InitLogger(s Settings) error {
	level := zerolog.InfoLevel
	if s.Level != "" {
		l, err := zerolog.ParseLevel(s.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	w, err := writer(s)
	if err != nil {
		return err
	}

	ctx := zerolog.New(w).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return nil
}

func writer(s Settings) (io.Writer, error) {
	var out io.Writer = os.Stderr
	if s.File != "" {
		path, err := homedir.Expand(s.File)
		if err != nil {
			return nil, errors.Wrapf(err, "expand log file %s", s.File)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create log directory for %s", path)
		}
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
	}

	switch s.Format {
	case "", "text":
		return zerolog.ConsoleWriter{Out: out, NoColor: s.File != ""}, nil
	case "json":
		return out, nil
	default:
		return nil, errors.Errorf("unknown log format %q", s.Format)
	}
}
