package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/evalphobia/logrus_sentry"
	log "github.com/sirupsen/logrus"
)

// Options controls logger setup
type Options struct {
	Level       string
	Format      string // "text" or "json"
	SentryDSN   string
	Environment string
	Output      io.Writer
}

// Setup configures the standard logrus logger and returns a function that
// flushes pending error reports
func Setup(opts Options) (func(), error) {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	log.SetLevel(level)

	switch opts.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	if opts.SentryDSN == "" {
		return func() {}, nil
	}

	hook, err := logrus_sentry.NewSentryHook(opts.SentryDSN, []log.Level{
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry hook: %w", err)
	}
	hook.Timeout = 5 * time.Second
	hook.StacktraceConfiguration.Enable = true
	hook.SetEnvironment(opts.Environment)
	log.AddHook(hook)

	log.WithField("environment", opts.Environment).Info("Sentry error reporting enabled")

	return hook.Flush, nil
}
