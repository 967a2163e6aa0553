package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
)

const serviceName = "flood-alert"

// Logger is the service-wide structured logger. Components derive tagged
// children from it instead of adding fields at every call site.
type Logger struct {
	*zerolog.Logger
}

// NewLogger builds the process logger from configuration and installs it as
// the zerolog global.
func NewLogger(cfg *config.LoggingConfig) *Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	zctx := zerolog.New(writerFor(cfg)).With().Timestamp().Str("service", serviceName)
	if cfg.EnableCaller {
		zctx = zctx.Caller()
	}
	log.Logger = zctx.Logger()
	return &Logger{&log.Logger}
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func writerFor(cfg *config.LoggingConfig) io.Writer {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "json") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	l := zerolog.Nop()
	return &Logger{&l}
}

// NewWithWriter returns a JSON logger writing to w. Writes are serialized,
// so w need not be safe for concurrent use.
func NewWithWriter(w io.Writer) *Logger {
	l := zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Logger()
	return &Logger{&l}
}

func (l *Logger) child(add func(zerolog.Context) zerolog.Context) *Logger {
	c := add(l.Logger.With()).Logger()
	return &Logger{&c}
}

// WithComponent names the subsystem emitting the entries
func (l *Logger) WithComponent(component string) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Str("component", component)
	})
}

// WithCycleID tags every entry with the scheduler cycle it belongs to
func (l *Logger) WithCycleID(cycleID string) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		return c.Str("cycle_id", cycleID)
	})
}

// WithDevice tags entries with the monitoring device and its channel.
// An empty channel is omitted.
func (l *Logger) WithDevice(deviceID, channelID string) *Logger {
	return l.child(func(c zerolog.Context) zerolog.Context {
		c = c.Str("device_id", deviceID)
		if channelID != "" {
			c = c.Str("channel_id", channelID)
		}
		return c
	})
}

// FatalWithError logs err and exits
func (l *Logger) FatalWithError(err error, msg string) {
	l.Logger.Fatal().Err(err).Msg(msg)
}

func (l *Logger) ErrorWithError(err error, msg string) {
	l.Logger.Error().Err(err).Msg(msg)
}

func (l *Logger) Info(msg string) {
	l.Logger.Info().Msg(msg)
}
