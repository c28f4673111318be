// Command gotnc runs the software modem and packet TNC: it loads a
// configuration file, wires up every channel's demodulator, transmit
// queue, digipeater, and CSMA scheduler, and serves KISS and AGW-style
// TCP clients until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/k4tnc/gotnc/internal/config"
	"github.com/k4tnc/gotnc/internal/runtime"
)

func main() {
	var (
		configFile = pflag.StringP("config-file", "c", "", "Configuration file (YAML). If omitted, built-in defaults are used.")
		logLevel   = pflag.StringP("log-level", "d", "", "Log level: debug, info, warn, error. Overrides the config file.")
		agwAddr    = pflag.StringP("agw-addr", "a", "", "AGW TCP listen address (e.g. :8000). Overrides the config file.")
		kissAddr   = pflag.StringP("kiss-addr", "k", "", "KISS TCP listen address (e.g. :8001). Overrides the config file.")
		help       = pflag.BoolP("help", "h", false, "Display help text.")
	)
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if err := run(*configFile, *logLevel, *agwAddr, *kissAddr); err != nil {
		fmt.Fprintln(os.Stderr, "gotnc:", err)
		os.Exit(1)
	}
}

func run(configFile, logLevelOverride, agwAddrOverride, kissAddrOverride string) error {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if logLevelOverride != "" {
		cfg.LogLevel = logLevelOverride
	}
	if agwAddrOverride != "" {
		cfg.AGW.TCPAddr = agwAddrOverride
	}
	if kissAddrOverride != "" {
		cfg.KISS.TCPAddr = kissAddrOverride
	}

	logger := log.New(os.Stderr)
	logger.SetLevel(parseLevel(cfg.LogLevel))

	sys, err := runtime.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer sys.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("gotnc starting", "channels", len(cfg.Channels), "agw", cfg.AGW.TCPAddr, "kiss", cfg.KISS.TCPAddr)
	return sys.Run(ctx)
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
