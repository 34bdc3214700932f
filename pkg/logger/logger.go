package logger

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithComponent(name string) Logger
}

type Opts struct {
	Env       string
	SentryUrl string
}

type Impl struct {
	log *slog.Logger
}

var _ Logger = (*Impl)(nil)

func New(opts Opts) *Impl {
	zl := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	level := slog.LevelDebug
	if opts.Env == "production" {
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler(),
	}

	if opts.SentryUrl != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryUrl,
			Environment: opts.Env,
		})
		if err != nil {
			zl.Warn().Err(err).Msg("Sentry init failed, continuing without it")
		} else {
			handlers = append(handlers, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
		}
	}

	return &Impl{log: slog.New(slogmulti.Fanout(handlers...))}
}

func (i *Impl) Debug(msg string, args ...any) { i.log.Debug(msg, args...) }
func (i *Impl) Info(msg string, args ...any)  { i.log.Info(msg, args...) }
func (i *Impl) Warn(msg string, args ...any)  { i.log.Warn(msg, args...) }
func (i *Impl) Error(msg string, args ...any) { i.log.Error(msg, args...) }

// Printf satisfies fx.Printer so an Impl can be passed to fx.Logger.
func (i *Impl) Printf(format string, args ...any) {
	i.log.Info(fmt.Sprintf(format, args...))
}

func (i *Impl) WithComponent(name string) Logger {
	return &Impl{log: i.log.With("component", name)}
}
