// Command merchantpay is the entry point for the listing settlement service.
// It loads configuration, validates it, wires dependencies, sets up signal
// handling, and serves the HTTP API in the configured mode. The encrypt-key
// subcommand produces the encrypted custodian key file the loader expects.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/merchantpay/internal/app"
	"github.com/alanyoungcy/merchantpay/internal/config"
	"github.com/alanyoungcy/merchantpay/internal/crypto"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "encrypt-key" {
		if err := runEncryptKey(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("merchantpay starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if err == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("merchantpay stopped")
}

// runEncryptKey encrypts a custodian private key to a JSON file that the
// custodian.encrypted_key_path config option can point at. The key and
// password fall back to the same environment variables the config loader
// reads, so the raw key never has to appear on the command line.
func runEncryptKey(args []string) error {
	fs := flag.NewFlagSet("encrypt-key", flag.ExitOnError)
	out := fs.String("out", "custodian-key.json", "path to write the encrypted key file")
	key := fs.String("key", "", "hex private key (default: $MERCHANTPAY_CUSTODIAN_PRIVATE_KEY)")
	password := fs.String("password", "", "encryption password (default: $MERCHANTPAY_CUSTODIAN_KEY_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *key == "" {
		*key = os.Getenv("MERCHANTPAY_CUSTODIAN_PRIVATE_KEY")
	}
	if *key == "" {
		return fmt.Errorf("no private key: pass -key or set MERCHANTPAY_CUSTODIAN_PRIVATE_KEY")
	}
	if *password == "" {
		*password = os.Getenv("MERCHANTPAY_CUSTODIAN_KEY_PASSWORD")
	}
	if *password == "" {
		return fmt.Errorf("no password: pass -password or set MERCHANTPAY_CUSTODIAN_KEY_PASSWORD")
	}

	blob, err := crypto.EncryptKey(*key, *password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, blob, 0o600); err != nil {
		return err
	}

	fmt.Printf("encrypted key written to %s\n", *out)
	return nil
}
