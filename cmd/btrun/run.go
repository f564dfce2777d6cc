package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/zeusync/behave/internal/config"
	"github.com/zeusync/behave/internal/core/bt/loader"
	"github.com/zeusync/behave/internal/core/observability/log"
	"github.com/zeusync/behave/internal/injector"
)

type runOptions struct {
	configPath string
	tree       string
	frames     int
	agents     int
	seed       int64
	watch      bool
	listen     string
	logLevel   string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Tick agents running a tree until interrupted",
		Long: `Run spawns the configured number of agents from one tree file and ticks
them at tick.rate frames per second, passing each frame the wall time
since the previous one. Flags override values from --config.

With --watch, edits to the tree file are applied between frames. When
trace.listen is set the event stream is served on /ws and prometheus
metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return runLoop(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "runtime config file (YAML)")
	f.StringVarP(&opts.tree, "tree", "t", "", "tree file (.yaml, .json or .hcl)")
	f.IntVar(&opts.frames, "frames", 0, "stop after this many frames (0 runs until interrupted)")
	f.IntVar(&opts.agents, "agents", 0, "number of agents to spawn")
	f.Int64Var(&opts.seed, "seed", 0, "override the tree seed")
	f.BoolVarP(&opts.watch, "watch", "w", false, "reload the tree file when it changes")
	f.StringVar(&opts.listen, "listen", "", "serve the trace stream and metrics on this address")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn, error or silent")
	return cmd
}

// resolve loads the config file and applies the flags the user set.
func (o *runOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("tree") {
		cfg.Tree = o.tree
	}
	if f.Changed("frames") {
		cfg.Tick.Frames = o.frames
	}
	if f.Changed("agents") {
		cfg.Agents.Count = o.agents
	}
	if f.Changed("seed") {
		cfg.Seed = o.seed
	}
	if f.Changed("watch") {
		cfg.Watch = o.watch
	}
	if f.Changed("listen") {
		cfg.Trace.Listen = o.listen
	}
	if f.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	return cfg, cfg.Validate()
}

func loadTree(cfg config.Config) (*loader.Config, error) {
	tree, err := loader.LoadFile(cfg.Tree)
	if err != nil {
		return nil, err
	}
	if cfg.Seed != 0 {
		tree.Seed = cfg.Seed
	}
	return tree, nil
}

func runLoop(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()

	rt, err := injector.InitializeRuntime(cfg)
	if err != nil {
		return err
	}
	logger := rt.Logger.Named("btrun")
	defer func() { _ = rt.Logger.Sync() }()
	defer func() { _ = rt.Metrics.Detach() }()

	tree, err := loadTree(cfg)
	if err != nil {
		return err
	}
	for i := 0; i < cfg.Agents.Count; i++ {
		if _, err := rt.Manager.Spawn("", tree, cfg.Agents.Blackboard); err != nil {
			return err
		}
	}

	if rt.Server != nil {
		if err := rt.Server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rt.Server.Stop(stopCtx); err != nil {
				logger.Warn("Trace server stop failed", log.Error(err))
			}
		}()
	}

	var (
		changes   <-chan string
		watchErrs <-chan error
	)
	if cfg.Watch {
		w, err := loader.NewWatcher(cfg.Tree)
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Tree, err)
		}
		defer func() { _ = w.Close() }()
		changes, watchErrs = w.Events, w.Errors
	}

	logger.Info("Running",
		log.String("tree", tree.Name),
		log.Int("agents", rt.Manager.Len()),
		log.Float64("rate", cfg.Tick.Rate),
	)

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	// A broken tree fails every frame, so failures are logged at most
	// once a second.
	warnLimit := rate.NewLimiter(rate.Every(time.Second), 1)
	failed := 0

	last := time.Now()
	frames := 0
	for {
		select {
		case <-ctx.Done():
			rt.Manager.AbortAll()
			logger.Info("Interrupted", log.Int("frames", frames))
			return summary(cmd, rt, frames)

		case path, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			reload(logger, rt, cfg, path)

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warn("Watcher error", log.Error(err))

		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := rt.Manager.TickAll(ctx, dt); err != nil {
				if ctx.Err() != nil {
					continue
				}
				failed++
				if warnLimit.Allow() {
					logger.Warn("Tick failed",
						log.Int("frame", frames),
						log.Int("failed_frames", failed),
						log.Error(err),
					)
				}
			}
			frames++
			if cfg.Tick.Frames > 0 && frames >= cfg.Tick.Frames {
				return summary(cmd, rt, frames)
			}
		}
	}
}

func reload(logger log.Log, rt *injector.Runtime, cfg config.Config, path string) {
	tree, err := loadTree(cfg)
	if err != nil {
		logger.Warn("Reload skipped", log.String("file", path), log.Error(err))
		return
	}
	patched, rebuilt, err := rt.Manager.Reload(tree)
	if err != nil {
		logger.Warn("Reload failed", log.String("file", path), log.Error(err))
	}
	logger.Debug("Reloaded", log.String("file", path), log.Int("patched", patched), log.Int("rebuilt", rebuilt))
}

func summary(cmd *cobra.Command, rt *injector.Runtime, frames int) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "frames: %d\n", frames)
	fmt.Fprintln(w, "AGENT\tSTATE\tTICKS\tCYCLES\tRESULT")
	for _, a := range rt.Manager.List() {
		r := a.Runner()
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", a.Name(), a.LastState(), r.Ticks(), r.Cycles(), r.LastResult())
	}
	return w.Flush()
}
