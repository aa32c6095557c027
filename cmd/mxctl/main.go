package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	magenta "github.com/wippyai/magenta-go"
	"github.com/wippyai/magenta-go/kernel"
	"github.com/wippyai/magenta-go/sys"
	"github.com/wippyai/magenta-go/wasmhost"
)

func main() {
	var (
		sleep       = flag.Duration("sleep", 0, "Sleep between the two clock readings (overrides MX_SLEEP)")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides MX_LOG_LEVEL)")
		maxHandles  = flag.Int("max-handles", 0, "Handle table size (overrides MX_MAX_HANDLES)")
		walk        = flag.Bool("walk", false, "Run the ownership walkthrough and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sleep":
			cfg.Sleep = *sleep
		case "log-level":
			cfg.LogLevel = *logLevel
		case "max-handles":
			cfg.MaxHandles = *maxHandles
		}
	})

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Usage: mxctl -i needs a terminal on stdout")
		os.Exit(1)
	}

	k, err := setup(cfg, *interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer k.Close()

	switch {
	case *interactive:
		err = runInteractive(k)
	case *walk:
		err = walkthrough(k, os.Stdout)
	default:
		err = run(k, cfg.Sleep, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup builds the logger and the kernel. The TUI owns the terminal, so
// logging is silenced in interactive mode.
func setup(cfg *config, interactive bool) (*kernel.Kernel, error) {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if interactive {
		log = zap.NewNop()
	}
	kernel.SetLogger(log.Named("kernel"))
	magenta.SetLogger(log.Named("magenta"))
	wasmhost.SetLogger(log.Named("wasmhost"))

	k := kernel.NewWithConfig(cfg.kernelConfig())
	k.Subscribe(logEvents(log.Named("events")))
	return k, nil
}

// run prints the current time, sleeps, and prints the time again.
func run(s sys.System, d time.Duration, out io.Writer) error {
	fmt.Fprintf(out, "Current time: %d\n", magenta.CurrentTime(s))
	fmt.Fprintf(out, "Sleeping %s\n", d)
	if err := magenta.Nanosleep(s, magenta.Timeout(d)); err != nil {
		return fmt.Errorf("nanosleep: %w", err)
	}
	fmt.Fprintf(out, "Current time: %d\n", magenta.CurrentTime(s))
	return nil
}
