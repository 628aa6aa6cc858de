// Command pyannote-health reports whether speaker diarization can run on
// this host. It exits 0 only when pyannote is available.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/cache"
	"github.com/yoockh/callsplit/internal/health"
	"github.com/yoockh/callsplit/internal/logger"
	"github.com/yoockh/callsplit/internal/models"
)

func main() {
	refresh := flag.Bool("refresh", false, "ignore the cached report")
	asJSON := flag.Bool("json", false, "print the raw JSON report")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewCLI()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var c cache.Cache
	if config.RedisAddrFromEnv() != "" {
		if err := config.InitRedis(); err != nil {
			log.WithError(err).Warn("redis unavailable, running uncached")
		} else {
			c = cache.NewRedisCache(config.RedisClient, "callsplit:")
		}
	}

	svc := health.NewService(health.NewChecker(cfg), c, cfg.HealthCacheTTL, cfg.HealthTimeout, log)

	var report *models.HealthReport
	if *refresh {
		report = svc.Refresh(ctx)
	} else {
		report = svc.Check(ctx, false)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printReport(os.Stdout, report)
	}

	if !report.Available {
		os.Exit(1)
	}
}

func printReport(w io.Writer, r *models.HealthReport) {
	state := "available"
	if !r.Available {
		state = "unavailable"
	}
	fmt.Fprintf(w, "pyannote: %s\n", state)
	if r.PythonVersion != "" {
		fmt.Fprintf(w, "python: %s\n", r.PythonVersion)
	}

	checks := r.Checks.All()
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		c := checks[name]
		fmt.Fprintf(w, "  %-18s %-8s %s\n", name, c.Status, c.Message)
	}

	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, wn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", wn)
	}
}
