package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/trellishq/trellis-gw/internal/api"
	"github.com/trellishq/trellis-gw/internal/auth"
	"github.com/trellishq/trellis-gw/internal/config"
	"github.com/trellishq/trellis-gw/internal/dispatch"
	"github.com/trellishq/trellis-gw/internal/items"
	"github.com/trellishq/trellis-gw/internal/lock"
	"github.com/trellishq/trellis-gw/internal/log"
	"github.com/trellishq/trellis-gw/internal/secrets"
	"github.com/trellishq/trellis-gw/internal/storage"
	"github.com/trellishq/trellis-gw/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		os.Exit(runServe(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("trellis-gw version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`trellis-gw - Webhook verification gateway for work item tracking

Usage:
  trellis-gw <command> [flags]

Commands:
  serve             Start the gateway service in foreground
  config lock       Authorize current config (update integrity hashes)
  config check      Validate syntax, policy, and integrity
  version           Show version information
  help              Show this help message
`)
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: trellis-gw config <lock|check> [flags]")
		return 1
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock":
		return runConfigLock(actionArgs)
	case "check":
		return runConfigCheck(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("config lock", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if err := config.Lock(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Config locked: %s\n", *configPath)
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config check failed: %v\n", err)
		return 1
	}

	fmt.Printf("Config OK: %s\n", *configPath)
	if cfg.Auth.DevMode.Enabled {
		fmt.Println("WARNING: dev mode is enabled; authentication and signature checks are bypassed")
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	// Local .env files supply ${VAR} references in config. Absence is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("trellis-gw starting", "version", version, "config", *configPath)

	pidLockPath := filepath.Join(filepath.Dir(cfg.Storage.Path), "trellis-gw.lock")
	pidLock, err := lock.Acquire(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(ctx, cfg.Storage.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Storage.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.Storage.Path)

	resolver, err := secrets.NewResolver(cfg.Secrets, cfg.Auth.DevMode, db, log.WithComponent("secrets"))
	if err != nil {
		logger.Error("failed to build secret resolver", "error", err)
		return 1
	}
	defer resolver.Close()

	maxBodySize, err := config.ParseMaxBodySize(cfg.Server.MaxBodySize)
	if err != nil {
		logger.Error("invalid max_body_size", "value", cfg.Server.MaxBodySize, "error", err)
		return 1
	}

	store := items.New(db)
	dispatcher := dispatch.NewGitHub(store, log.WithComponent("dispatch"))
	gate := webhook.NewGate(resolver, dispatcher, maxBodySize, cfg.Server.DispatchTimeout, log.WithComponent("webhook"))
	authn := auth.NewAuthenticator(cfg.Auth, log.WithComponent("auth"))

	server := api.New(api.Config{
		Listen:       cfg.Server.Listen,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, gate, authn, store, resolver, log.WithComponent("api"))

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", "error", err)
		return 1
	}

	logger.Info("trellis-gw stopped")
	return 0
}
