package commands

import (
	"io"

	"go.uber.org/zap"

	"github.com/ccollicutt/faultscope/internal/logging"
)

// GlobalOptions holds settings shared by every command.
type GlobalOptions struct {
	LogLevel  string
	LogFormat string

	logger *zap.Logger
}

// InitLogger builds the logger from the current settings, writing to w.
func (g *GlobalOptions) InitLogger(w io.Writer) error {
	logger, err := logging.New(logging.Options{Level: g.LogLevel, Format: g.LogFormat}, w)
	if err != nil {
		return err
	}
	g.logger = logger
	return nil
}

// Logger returns the configured logger, or a no-op logger before InitLogger.
func (g *GlobalOptions) Logger() *zap.Logger {
	if g == nil || g.logger == nil {
		return zap.NewNop()
	}
	return g.logger
}
