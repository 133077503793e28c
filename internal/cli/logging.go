package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/NissesSenap/aws-sns-graph/internal/config"
)

// newLogger builds the process logger from the log settings. The level and
// format were checked by config.Validate.
func newLogger(cfg config.Log, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
