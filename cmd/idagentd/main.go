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
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/saimizi/ivi-id-agent/internal/alloc"
	"github.com/saimizi/ivi-id-agent/internal/config"
	"github.com/saimizi/ivi-id-agent/internal/control"
	"github.com/saimizi/ivi-id-agent/internal/engine"
	"github.com/saimizi/ivi-id-agent/internal/ipc"
	"github.com/saimizi/ivi-id-agent/internal/metrics"
	"github.com/saimizi/ivi-id-agent/internal/rules"
	"github.com/saimizi/ivi-id-agent/internal/store"
	"github.com/saimizi/ivi-id-agent/internal/util"
)

func main() {
	cfgPath := flag.String("config", "/etc/ivi-id-agent/config.yaml", "path to YAML config")
	logLevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	cfg, warnings, err := config.Load(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}
	for _, w := range warnings {
		logger.Warnf("config: %s", w)
	}

	pool := rules.Pool{
		Enabled: cfg.Default.Enabled,
		First:   cfg.PoolFirst(),
		Max:     cfg.PoolMax(),
	}
	ruleStore, err := rules.Load(rules.SpecsFromConfig(cfg), pool)
	if err != nil {
		exitErr(fmt.Errorf("compile rules: %w", err))
	}
	allocator := alloc.New(pool.Enabled, pool.First, pool.Max)
	logger.Infof("loaded %d surface rules (default pool enabled=%v)", ruleStore.Len(), pool.Enabled)

	cfgFullPath, err := filepath.Abs(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("resolve config path: %w", err))
	}
	cfgFullPath = filepath.Clean(cfgFullPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitErr(fmt.Errorf("watch config: %w", err))
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(cfgFullPath)); err != nil {
		exitErr(fmt.Errorf("watch config dir: %w", err))
	}
	if err := watcher.Add(cfgFullPath); err != nil {
		logger.Debugf("unable to watch config file directly: %v", err)
	}
	go watchConfig(logger, watcher, cfgFullPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mirror := store.New(cfg.Store.Host, cfg.Store.Port, logger.WithComponent("store"))
	mirror.Connect(ctx)

	comp, err := ipc.NewClient()
	if err != nil {
		exitErr(fmt.Errorf("connect to compositor: %w", err))
	}

	collector := metrics.NewCollector()
	eng := engine.New(comp, mirror, ruleStore, allocator, collector, logger.WithComponent("engine"))

	ctrlSrv, err := control.NewServer(eng, collector, mirror.Connected, logger.WithComponent("control"))
	if err != nil {
		exitErr(fmt.Errorf("start control server: %w", err))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	errs := make(chan error, 2)
	go func() {
		errs <- eng.Run(ctx)
	}()
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	for {
		select {
		case err := <-errs:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("agent exited: %v", err)
				os.Exit(1)
			}
			logger.Infof("agent stopped")
			return
		case sig := <-sigs:
			logger.Infof("received %s, shutting down", sig)
			cancel()
		}
	}
}

// watchConfig reports edits to the config file. Loaded rules are immutable
// for the lifetime of the process, so the only remedy is a restart.
func watchConfig(logger *util.Logger, watcher *fsnotify.Watcher, target string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			logger.Warnf("config file changed; restart the agent to apply it")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
