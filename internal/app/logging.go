package app

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"popclient/internal/poperr"
)

// NewLogger returns a console logger writing to w at level.
func NewLogger(level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), poperr.WrapConfiguration(err, "log level")
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
