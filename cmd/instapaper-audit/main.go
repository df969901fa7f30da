package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/afv22/instapaper/internal/audit"
	"github.com/afv22/instapaper/internal/config"
	"github.com/afv22/instapaper/internal/rate"
	"github.com/afv22/instapaper/internal/runtime"
)

type auditConfig struct {
	cfgPath string
	topN    int
	limit   int
	rps     int
	jsonOut string
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("instapaper-audit failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() auditConfig {
	cfgPath := flag.String("config", "instapaper_config.json", "path to credentials file")
	topN := flag.Int("top", 20, "number of top sources to display")
	limit := flag.Int("limit", 500, "list request limit (<=500)")
	rps := flag.Int("rps", 2, "max requests per second")
	jsonOut := flag.String("json", "", "write JSON report to path")
	flag.Parse()

	return auditConfig{
		cfgPath: *cfgPath,
		topN:    *topN,
		limit:   *limit,
		rps:     *rps,
		jsonOut: *jsonOut,
	}
}

func run(cfg auditConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()

	creds, err := config.Load(cfg.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
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

	svc := audit.NewService(client, limiter, logger)
	rep, err := svc.Run(ctx, audit.Options{TopN: cfg.topN, Limit: cfg.limit})
	if err != nil {
		return fmt.Errorf("run audit: %w", err)
	}

	if printErr := audit.PrintHuman(rep, os.Stdout); printErr != nil {
		return fmt.Errorf("print report: %w", printErr)
	}
	if cfg.jsonOut == "" {
		return nil
	}
	if writeErr := audit.WriteJSON(rep, cfg.jsonOut); writeErr != nil {
		return fmt.Errorf("write json: %w", writeErr)
	}
	return nil
}
