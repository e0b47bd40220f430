// cmd/preflight/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/config"
	"github.com/hamed0406/uptimewatch/internal/repo/backend"
	"github.com/hamed0406/uptimewatch/internal/targets"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load")
	connect := flag.Bool("connect", false, "also open the configured store")
	flag.Parse()

	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := config.LoadDotEnv(*envFile); err != nil {
		fail(err.Error())
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
	} else {
		ok(fmt.Sprintf("config valid (backend=%s, threshold=%d, alert mode=%s)",
			cfg.StoreBackend, cfg.FailThreshold, cfg.AlertTracking))
	}

	ts, err := targets.Load(cfg.TargetsPath)
	switch {
	case err != nil:
		fail(err.Error())
	case len(ts) == 0:
		warn("no targets in " + cfg.TargetsPath + "; runs will write empty documents.")
	default:
		ok(fmt.Sprintf("%d targets in %s", len(ts), cfg.TargetsPath))
		for _, p := range targets.Check(ts) {
			warn(p.Error())
		}
	}

	if cfg.StoreBackend == config.BackendFile {
		if err := writable(cfg.DataDir); err != nil {
			fail("DATA_DIR not writable: " + err.Error())
		} else {
			ok("DATA_DIR=" + cfg.DataDir)
		}
	}
	if cfg.StoreBackend == config.BackendMemory {
		warn("STORE_BACKEND=memory keeps nothing between runs; streaks will never reach the threshold.")
	}

	if *connect && !failed {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := backend.Open(ctx, cfg, zap.NewNop())
		cancel()
		if err != nil {
			fail(err.Error())
		} else {
			_ = store.Close()
			ok("store reachable")
		}
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; /api/state is open to every caller.")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("no API keys configured; the status API is unauthenticated.")
	}
	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; the status API accepts any origin.")
	}
	if cfg.PushgatewayURL == "" && cfg.MetricsTextfile == "" {
		warn("no metrics sink configured.")
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}

func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
