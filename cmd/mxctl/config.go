package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/magenta-go/kernel"
)

// config is loaded from MX_* environment variables and then overridden by
// any flags set on the command line.
type config struct {
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	Sleep              time.Duration `envconfig:"SLEEP" default:"1s"`
	MaxMessageBytes    uint32        `envconfig:"MAX_MESSAGE_BYTES" default:"65536"`
	MaxMessageHandles  uint32        `envconfig:"MAX_MESSAGE_HANDLES" default:"64"`
	MaxPendingMessages int           `envconfig:"MAX_PENDING_MESSAGES" default:"256"`
	MaxHandles         int           `envconfig:"MAX_HANDLES" default:"1048575"`
}

func loadConfig() (*config, error) {
	var cfg config
	if err := envconfig.Process("mx", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *config) kernelConfig() *kernel.Config {
	return &kernel.Config{
		MaxMessageBytes:    c.MaxMessageBytes,
		MaxMessageHandles:  c.MaxMessageHandles,
		MaxPendingMessages: c.MaxPendingMessages,
		MaxHandles:         c.MaxHandles,
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true
	return zc.Build()
}

// logEvents reports every handle lifecycle event at debug level.
func logEvents(l *zap.Logger) kernel.Observer {
	return kernel.ObserverFunc(func(e kernel.Event) {
		l.Debug("handle event",
			zap.Stringer("event", e.Type),
			zap.Stringer("object", e.Object),
			zap.Uint64("koid", uint64(e.Koid)),
			zap.Int32("handle", int32(e.Handle)))
	})
}
