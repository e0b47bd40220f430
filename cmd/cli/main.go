// Command cli inspects the monitor's documents and links open alerts to
// external tickets. Run it between monitor runs, never during one.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/config"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/backend"
)

const usage = `usage: cli [-env FILE] [-no-color] <command>

commands:
  status              last result per target with streak and open alert
  alerts              alerts and recoveries from the last run
  link <url> <ref>    replace the open alert reference for url
`

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fail(err)
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fail(fmt.Errorf("config: %w", err))
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		fail(err)
	}

	err = multierr.Append(
		dispatch(ctx, os.Stdout, repo.NewDocuments(store), flag.Args()),
		store.Close(),
	)
	if err != nil {
		fail(err)
	}
}

func dispatch(ctx context.Context, w io.Writer, docs *repo.Documents, args []string) error {
	switch args[0] {
	case "status":
		return cmdStatus(ctx, w, docs)
	case "alerts":
		return cmdAlerts(ctx, w, docs)
	case "link":
		if len(args) != 3 {
			return fmt.Errorf("link needs <url> <ref>")
		}
		return cmdLink(ctx, w, docs, args[1], args[2])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, red("✖"), err)
	os.Exit(1)
}
