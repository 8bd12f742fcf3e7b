// Command manusd is the browser orchestration daemon. It owns the browser
// sessions, runs tasks against the agent daemon, and serves the HTTP and
// WebSocket control surface.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HarxSan/Mini-Manus/pkg/actuator/agentd"
	"github.com/HarxSan/Mini-Manus/pkg/api"
	"github.com/HarxSan/Mini-Manus/pkg/bus"
	"github.com/HarxSan/Mini-Manus/pkg/config"
	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/orchestrator"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		listenAddr  = flag.String("addr", "", "listen address (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("manusd %s (%s, built %s)\n", version, commit, buildDate)
		return
	}

	if err := run(*configPath, *listenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listenAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Address = listenAddr
	}

	logger, err := logging.NewLogger(cfg.Log.Dir)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.SetMinLevel(logging.Level(cfg.Log.Level))

	transcript, err := logging.NewTranscriptLogger(cfg.Log.Dir)
	if err != nil {
		return err
	}
	defer transcript.Close()

	eventBus, err := buildBus(cfg)
	if err != nil {
		return err
	}
	defer eventBus.Close()

	runtime, err := agentd.NewRuntime(agentd.Config{
		Endpoint:            cfg.Actuator.AgentdEndpoint,
		ConnectTimeout:      cfg.Actuator.ConnectTimeout,
		RequiredCredentials: cfg.Actuator.RequiredCredentials,
	})
	if err != nil {
		return err
	}
	defer runtime.Close()

	orch, err := orchestrator.New(orchestrator.Options{
		Store:           session.NewStore(),
		Runtime:         runtime,
		Bus:             eventBus,
		Logger:          logger,
		Transcript:      transcript,
		MaxTaskDuration: cfg.Task.MaxDuration,
		DefaultMaxSteps: cfg.Task.DefaultMaxSteps,
	})
	if err != nil {
		return err
	}

	server := api.NewServer(api.ServerConfig{
		Address:      cfg.Server.Address,
		Orchestrator: orch,
		EventBus:     eventBus,
		Logger:       logger,
	})

	// Mirror every session event into the structured log. Cheap with the
	// memory bus and keeps the NATS setup observable too.
	sub, err := eventBus.Subscribe(context.Background(), "manus.session.*", func(msg *bus.Message) {
		var ev session.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		logger.Debug(logging.CategoryStream, string(ev.Type), ev.SessionID, "", map[string]any{
			"seq":   ev.Seq,
			"state": string(ev.Snapshot.State),
		})
	})
	if err != nil {
		return fmt.Errorf("subscribe event mirror: %w", err)
	}
	defer sub.Unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(logging.CategorySession, "daemon_started", "", "listening on "+cfg.Server.Address, map[string]any{
			"version":  version,
			"bus_mode": cfg.Bus.Mode,
		})
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		orch.CloseAll(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info(logging.CategorySession, "daemon_stopped", "", "shutdown complete", nil)
	return err
}

func buildBus(cfg *config.Config) (bus.EventBus, error) {
	switch cfg.Bus.Mode {
	case config.BusModeNATS:
		return bus.NewNATSBus(bus.Config{
			URL:  cfg.Bus.URL,
			Name: "manusd",
		})
	default:
		return bus.NewMemoryBus(), nil
	}
}
