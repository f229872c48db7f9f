package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/minstate/internal/todo"
	"github.com/vango-dev/minstate/pkg/events"
	"github.com/vango-dev/minstate/pkg/inspect"
	"github.com/vango-dev/minstate/pkg/observe"
	"github.com/vango-dev/minstate/pkg/state"
)

func inspectCmd(flags *globalFlags) *cobra.Command {
	var (
		addr   string
		tick   time.Duration
		render bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the todo state through the inspector",
		Long: `Serve the todo example state over HTTP.

Endpoints:
  GET /states                    registered states
  GET /states/{name}             snapshot
  GET /states/{name}/keys/{key}  one field
  GET /states/{name}/events      websocket stream of changes
  GET /metrics                   Prometheus metrics

Examples:
  minstate inspect
  minstate inspect --addr=0.0.0.0:7070 --tick=1s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInspect(ctx, cmd, flags, addr, tick, render)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().DurationVarP(&tick, "tick", "t", 0, "Emit a mousedown event at this interval (0 disables)")
	cmd.Flags().BoolVar(&render, "render", false, "Print component renders")

	return cmd
}

func runInspect(ctx context.Context, cmd *cobra.Command, flags *globalFlags, addr string, tick time.Duration, render bool) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Inspect.Addr = addr
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	reg := prometheus.NewRegistry()
	observers := []events.Observer{observe.NewTracing()}
	if cfg.Metrics.Enabled {
		observers = append(observers, observe.NewMetrics(
			observe.WithRegistry(reg),
			observe.WithNamespace(cfg.Metrics.Namespace),
		))
	}

	out := io.Discard
	if render {
		out = cmd.OutOrStdout()
	}
	app := todo.New(out,
		todo.WithLogger(logger),
		todo.WithStateOptions(cfg.StateOptions(logger, state.WithObserver(events.MultiObserver(observers...)))...),
	)
	app.Mount()
	defer app.Unmount()

	ins := inspect.New(
		inspect.WithEventBuffer(cfg.Inspect.EventBuffer),
		inspect.WithWriteTimeout(cfg.WriteTimeout()),
		inspect.WithGatherer(reg),
		inspect.WithLogger(logger),
	)
	if err := ins.Register(app.State); err != nil {
		return err
	}

	if tick > 0 {
		go func() {
			ticker := time.NewTicker(tick)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					app.MouseDown()
				}
			}
		}()
	}

	return ins.ListenAndServe(ctx, cfg.Inspect.Addr)
}
