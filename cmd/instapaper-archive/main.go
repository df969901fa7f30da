package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afv22/instapaper/internal/archive"
	"github.com/afv22/instapaper/internal/config"
	"github.com/afv22/instapaper/internal/history"
	"github.com/afv22/instapaper/internal/rate"
	"github.com/afv22/instapaper/internal/runtime"
)

type archiveConfig struct {
	cfgPath     string
	tag         string
	maxAge      time.Duration
	limit       int
	rps         int
	dryRun      bool
	historyPath string
	jsonOut     string
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("instapaper-archive failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() archiveConfig {
	cfgPath := flag.String("config", "instapaper_config.json", "path to credentials file")
	tag := flag.String("tag", "newsletter", "tag whose bookmarks get archived")
	maxAge := flag.Duration("max-age", 7*24*time.Hour, "archive bookmarks older than this")
	limit := flag.Int("limit", 500, "list request limit (<=500)")
	rps := flag.Int("rps", 2, "max requests per second")
	dryRun := flag.Bool("dry-run", false, "log only; skip archiving")
	historyPath := flag.String("history", "", "record runs in this SQLite database")
	jsonOut := flag.String("json", "", "write JSON result to path")
	flag.Parse()

	return archiveConfig{
		cfgPath:     *cfgPath,
		tag:         *tag,
		maxAge:      *maxAge,
		limit:       *limit,
		rps:         *rps,
		dryRun:      *dryRun,
		historyPath: *historyPath,
		jsonOut:     *jsonOut,
	}
}

// run exits cleanly even when individual archives failed; cron surfaces only
// config, auth, and fetch level problems.
func run(cfg archiveConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	creds, err := config.Load(cfg.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("authenticating with instapaper", "username", creds.Username)
	client, err := runtime.NewClient(ctx, creds)
	if err != nil {
		return fmt.Errorf("create instapaper client: %w", err)
	}

	var (
		limiter rate.Limiter
		bucket  *rate.TokenBucket
	)
	if cfg.rps > 0 {
		bucket = rate.NewTokenBucket(cfg.rps)
		limiter = bucket
		defer bucket.Stop()
	}

	svc := archive.NewService(client, limiter, logger)
	if cfg.historyPath != "" {
		store, openErr := history.Open(cfg.historyPath)
		if openErr != nil {
			return fmt.Errorf("open history: %w", openErr)
		}
		defer func() { _ = store.Close() }()
		svc.History = store
	}

	spec := archive.Spec{
		Tag:    cfg.tag,
		MaxAge: cfg.maxAge,
		DryRun: cfg.dryRun,
		Limit:  cfg.limit,
	}
	res, runErr := svc.Run(ctx, spec)
	if runErr != nil {
		return fmt.Errorf("run archive pass: %w", runErr)
	}

	if printErr := archive.PrintSummary(res, os.Stdout); printErr != nil {
		return fmt.Errorf("print summary: %w", printErr)
	}
	if cfg.jsonOut == "" {
		return nil
	}
	if writeErr := archive.WriteJSON(res, cfg.jsonOut); writeErr != nil {
		return fmt.Errorf("write json: %w", writeErr)
	}
	return nil
}
