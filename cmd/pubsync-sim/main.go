// Command pubsync-sim runs the subscription engine against a simulated or
// remote publisher.
//
// This command exercises the whole client stack:
//   - YAML configuration with command-line overrides
//   - Automatic reconnect with engine online/offline transitions
//   - Preconfigured subscriptions
//   - Interactive command interface
//   - Prometheus metrics and protocol capture
//
// Without -url it starts an in-process publisher and talks to it over a
// pipe. With -serve it runs only the publisher, as a websocket endpoint
// another pubsync-sim can connect to.
//
// Usage:
//
//	pubsync-sim [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-url string           Publisher websocket URL (default: in-process publisher)
//	-serve string         Serve the publisher on this address instead of running a client
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-interactive          Enable interactive command mode
//	-metrics-addr string  Address for the Prometheus endpoint
//	-protocol-log string  File for CBOR protocol capture
//	-tick duration        Exercise interval (default 100ms)
//	-drop-rate float      Probability that the publisher ignores a request
//
// Examples:
//
//	# Interactive session against the in-process publisher
//	pubsync-sim -interactive
//
//	# Publisher on one host, engine on another
//	pubsync-sim -serve :8765
//	pubsync-sim -url ws://publisher:8765/ -interactive
//
//	# Lossy publisher with metrics and capture
//	pubsync-sim -config sim.yaml -drop-rate 0.2 -metrics-addr :9100 -protocol-log sim.plog
//
// Interactive Commands:
//
//	subscribe <id> <channel> [opts] - Register a subscription
//	activate <id> [seq]             - Send the subscribe or query request
//	unsubscribe <id>                - Remove a subscription
//	batch <lane> <on|off>           - Hold or release a lane
//	online / offline                - Toggle the engine's transport state
//	list                            - List subscriptions
//	status                          - Show engine counters
//	break [reason]                  - Make the publisher cancel all streams
//	disconnect                      - Drop the connection
//	quit                            - Exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pubsync/pubsync-go/cmd/pubsync-sim/interactive"
)

// Flags holds command-line settings. Set flags override the config file.
type Flags struct {
	ConfigFile  string
	URL         string
	Serve       string
	LogLevel    string
	Interactive bool
	MetricsAddr string
	ProtocolLog string
	Tick        time.Duration
	DropRate    float64
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.URL, "url", "", "Publisher websocket URL (default: in-process publisher)")
	flag.StringVar(&flags.Serve, "serve", "", "Serve the publisher on this address instead of running a client")
	flag.StringVar(&flags.LogLevel, "log-level", DefaultLogLevel, "Log level: debug, info, warn, error")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
	flag.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Address for the Prometheus endpoint")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "File for CBOR protocol capture")
	flag.DurationVar(&flags.Tick, "tick", DefaultTickInterval, "Exercise interval")
	flag.Float64Var(&flags.DropRate, "drop-rate", 0, "Probability that the publisher ignores a request")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags, setFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if flags.Serve != "" {
		logger := newLogger(os.Stderr, cfg.LogLevel)
		if err := servePublisher(ctx, flags.Serve, cfg, logger); err != nil {
			logger.Error("publisher failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runClient(ctx, cancel, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "pubsync-sim: %v\n", err)
		os.Exit(1)
	}
}

// setFlags returns the names of flags given on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(f Flags, set map[string]bool) (*SimConfig, error) {
	cfg := &SimConfig{}
	if f.ConfigFile != "" {
		loaded, err := LoadConfig(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["url"] {
		cfg.Connection.URL = f.URL
	}
	if set["log-level"] || cfg.LogLevel == "" {
		cfg.LogLevel = f.LogLevel
	}
	if set["interactive"] {
		cfg.Interactive = f.Interactive
	}
	if set["metrics-addr"] {
		cfg.Metrics.Addr = f.MetricsAddr
	}
	if set["protocol-log"] {
		cfg.ProtocolLog = f.ProtocolLog
	}
	if set["tick"] {
		cfg.Engine.TickInterval = f.Tick
	}
	if set["drop-rate"] {
		cfg.Publisher.DropRate = f.DropRate
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runClient(ctx context.Context, cancel context.CancelFunc, cfg *SimConfig) error {
	var console *interactive.Console
	out := io.Writer(os.Stderr)
	if cfg.Interactive {
		var err error
		console, err = interactive.New(nil)
		if err != nil {
			return err
		}
		out = console.Stdout()
	}
	logger := newLogger(out, cfg.LogLevel)
	slog.SetDefault(logger)

	sim, err := NewSimulator(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sim.Close(); err != nil {
			logger.Warn("close", "error", err)
		}
	}()

	if console != nil {
		console.Attach(sim)
		sim.OnNotification(console.Notify)
		go console.Run(ctx, cancel)
	}

	logger.Info("pubsync-sim started",
		"publisher", publisherName(cfg),
		"tick", cfg.Engine.TickInterval,
		"throttle", cfg.Engine.ThrottleMode,
	)
	return sim.Run(ctx)
}

// servePublisher runs the simulated publisher as a websocket endpoint.
func servePublisher(ctx context.Context, addr string, cfg *SimConfig, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newPublisherHandler(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("publisher listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func publisherName(cfg *SimConfig) string {
	if cfg.Connection.URL != "" {
		return cfg.Connection.URL
	}
	return "in-process"
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
