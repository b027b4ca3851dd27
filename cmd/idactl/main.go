package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/saimizi/ivi-id-agent/internal/config"
	"github.com/saimizi/ivi-id-agent/internal/control/client"
	"github.com/saimizi/ivi-id-agent/internal/rules"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := flag.NewFlagSet("idactl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "path to agent control socket")
	timeout := fs.Duration("timeout", 3*time.Second, "control request timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <command> [args]\n", fs.Name())
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Commands:")
		fmt.Fprintln(fs.Output(), "  status\t\t\tshow rule bindings and allocator state")
		fmt.Fprintln(fs.Output(), "  metrics\t\tshow assignment counters")
		fmt.Fprintln(fs.Output(), "  check --config <path>\tvalidate a configuration file")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing subcommand")
	}

	if args[0] == "check" {
		return runCheck(args[1:], os.Stdout, os.Stderr)
	}

	cli, err := client.New(*socket)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	switch args[0] {
	case "status":
		return runStatus(ctx, cli)
	case "metrics":
		return runMetrics(ctx, cli)
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runStatus(ctx context.Context, cli *client.Client) error {
	status, err := cli.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Rules) == 0 {
		fmt.Println("No surface rules loaded")
	} else {
		fmt.Printf("Surface rules (%d):\n", len(status.Rules))
		for _, rule := range status.Rules {
			fmt.Printf("  id %d  app=%s  title=%s  bound=%s\n",
				rule.SurfaceID, orDash(rule.AppID), orDash(rule.Title), orDash(rule.Bound))
		}
	}
	if status.Allocator.Enabled {
		fmt.Printf("Default pool: next=%d max=%d remaining=%d\n",
			status.Allocator.Next, status.Allocator.Max, status.Allocator.Remaining)
	} else {
		fmt.Println("Default pool: disabled")
	}
	if status.StoreConnected {
		fmt.Println("Store mirror: connected")
	} else {
		fmt.Println("Store mirror: not connected")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runMetrics(ctx context.Context, cli *client.Client) error {
	snapshot, err := cli.Metrics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Started: %s\n", snapshot.Started.Format(time.RFC3339))
	fmt.Printf("Assigned: %d (rule) / %d (default pool)\n",
		snapshot.Totals.Assigned, snapshot.Totals.DefaultAssigned)
	fmt.Printf("Removed: %d\n", snapshot.Totals.Removed)
	fmt.Printf("Failed: %d\n", snapshot.Totals.Failed)
	for _, failure := range snapshot.Failures {
		fmt.Printf("  %s: %d\n", failure.Reason, failure.Count)
	}
	return nil
}

func runCheck(args []string, stdout io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configPath == "" {
		fs.Usage()
		return fmt.Errorf("check requires --config <path>")
	}

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	pool := rules.Pool{
		Enabled: cfg.Default.Enabled,
		First:   cfg.PoolFirst(),
		Max:     cfg.PoolMax(),
	}
	ruleStore, err := rules.Load(rules.SpecsFromConfig(cfg), pool)
	if err != nil {
		return err
	}

	for _, w := range warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(stdout, "Configuration OK (%d surface rules, default pool enabled=%v)\n",
		ruleStore.Len(), pool.Enabled)
	return nil
}
