package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rescueops/internal/admin"
	"rescueops/internal/clock"
	"rescueops/internal/config"
	"rescueops/internal/fleet"
	"rescueops/internal/logging"
	"rescueops/internal/render"
	"rescueops/internal/sim"
	"rescueops/internal/tui"
)

var (
	consoleHeadless bool
	consoleAdmin    string
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the operator console",
	Long: "console runs the map, unit commands and AI advisory. It takes over the terminal when " +
		"attached to one and logs events otherwise; the admin HTTP surface serves the same map to a browser.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("admin-addr") {
			cfg.HTTP.AdminAddr = consoleAdmin
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		interactive := !consoleHeadless && term.IsTerminal(int(os.Stdout.Fd()))
		if interactive {
			return runInteractive(ctx, cfg)
		}
		return runHeadless(ctx, cfg)
	},
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleHeadless, "headless", false, "Log events instead of drawing the terminal UI")
	consoleCmd.Flags().StringVar(&consoleAdmin, "admin-addr", ":8081", "Admin HTTP listen address (empty disables)")
}

// consoleApp is the wired core shared by both console modes.
type consoleApp struct {
	console   *sim.Console
	adapter   *render.Adapter
	scheduler *sim.Scheduler
	admin     *admin.Server
}

func newConsoleApp(cfg *config.Config, clk clock.Clock) (*consoleApp, error) {
	store := fleet.NewStore()
	if err := cfg.Seed(store); err != nil {
		return nil, err
	}
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	console := sim.NewConsole(store,
		sim.NewPositionSimulator(store, cfg.Simulation.Jitter, rng),
		sim.NewAdvisoryRotator(cfg.Advisories.Pool, cfg.Advisories.Initial, rng))

	backend := render.ChooseBackend(cfg.Keys.Maps, cfg.Map.Window, cfg.Map.Band)
	adapter := render.NewAdapter(backend, store, console.Select, cfg.Zones)
	console.OnSelectionChange(adapter.SetSelected)

	return &consoleApp{
		console:   console,
		adapter:   adapter,
		scheduler: sim.NewScheduler(console, clk, cfg.Simulation.PositionInterval, cfg.Simulation.AdvisoryInterval),
		admin:     admin.NewServer(console, adapter),
	}, nil
}

func (a *consoleApp) serveAdmin(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	go func() {
		if err := a.admin.Start(ctx, addr); err != nil {
			logging.FromContext(ctx).Error("admin server failed", "err", err)
		}
	}()
}

func runHeadless(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg)
	ctx = logging.NewContext(ctx, log)
	app, err := newConsoleApp(cfg, clock.Real())
	if err != nil {
		return err
	}
	app.console.OnAdvisory(func(text string) { log.Info("advisory", "text", text) })
	app.console.OnSelectionChange(func(id string) { log.Info("selection", "unit", id) })
	app.adapter.OnRender(func(f render.Frame) {
		log.Debug("map rendered", "backend", app.adapter.Backend().Name(), "entities", f.Snapshot.Len())
	})

	log.Info("console started", "map", app.adapter.Backend().Name(), "entities", app.console.Store().Len())
	app.serveAdmin(ctx, cfg.HTTP.AdminAddr)
	if err := app.scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	app.scheduler.Stop()
	log.Info("console stopped")
	return nil
}

func runInteractive(ctx context.Context, cfg *config.Config) error {
	app, err := newConsoleApp(cfg, clock.Real())
	if err != nil {
		return err
	}
	backend := app.adapter.Backend()
	window, band := cfg.Map.Window, cfg.Map.Band
	if fb, ok := backend.(*render.FallbackBackend); ok {
		window = fb.Window()
	}
	ui := tui.New(app.console, tui.Options{
		Backend:  backend.Name(),
		Window:   window,
		Band:     band,
		Advisory: app.console.Advisory(),
	})

	log := slog.New(slog.NewTextHandler(uiWriter{ui}, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.LogLevel)}))
	ctx, cancel := context.WithCancel(logging.NewContext(ctx, log))
	defer cancel()

	app.adapter.OnRender(func(render.Frame) { ui.ShowFrame(app.adapter.Visuals(), app.adapter.Overlays()) })
	app.console.OnAdvisory(ui.ShowAdvisory)
	app.console.OnSelectionChange(ui.ShowSelection)

	go ui.ShowFrame(app.adapter.Visuals(), app.adapter.Overlays())
	app.serveAdmin(ctx, cfg.HTTP.AdminAddr)
	if err := app.scheduler.Start(ctx); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ui.Close()
	}()

	err = ui.Run()
	cancel()
	app.scheduler.Stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// uiWriter routes log lines into the terminal UI's log pane.
type uiWriter struct{ ui *tui.UI }

func (w uiWriter) Write(p []byte) (int, error) {
	w.ui.Logf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
