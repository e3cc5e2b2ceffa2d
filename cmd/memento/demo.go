package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/terraskye/memento"
	busmemory "github.com/terraskye/memento/eventbus/memory"
	"github.com/terraskye/memento/eventbus/journal"
	natsbus "github.com/terraskye/memento/eventbus/nats"
	"github.com/terraskye/memento/eventstore/memory"
	"github.com/terraskye/memento/internal/config"
	"github.com/terraskye/memento/internal/ledger"
	"github.com/terraskye/memento/internal/telemetry"
	"github.com/terraskye/memento/logging"
	mementotel "github.com/terraskye/memento/otel"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Record a few ledger operations, including a what-if timeline, and print the balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return runDemo(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func newLogger(cfg config.LogConfig, tp *telemetry.Provider, telemetryEnabled bool, w io.Writer) *slog.Logger {
	if telemetryEnabled {
		return tp.Logger
	}
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runDemo(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	telemetryOpts := tp.Instrumentation()

	// every save of the run is a child of this span
	ctx, span := tp.TracerProvider.Tracer("github.com/terraskye/memento/cmd/memento").Start(ctx, "memento.demo")
	defer span.End()
	logger := telemetry.LogWithTrace(ctx, newLogger(cfg.Log, tp, cfg.Telemetry.Enabled, stderr))

	ledger.RegisterEvents()

	var targets []memento.EventDispatcher
	balances := ledger.NewBalances()

	var bus *busmemory.EventBus
	if cfg.Bus.Enabled {
		bus = busmemory.NewEventBus(cfg.Bus.BufferSize)
		defer bus.Close()

		group := balances.Handler()
		handler, err := mementotel.WithEventTelemetry("balances",
			logging.WithLoggingMiddleware(logger, group), telemetryOpts...)
		if err != nil {
			return fmt.Errorf("instrumenting projection: %w", err)
		}
		if err := bus.Subscribe(ctx, "balances", handler, busmemory.WithFilter(group.Accepts)); err != nil {
			return fmt.Errorf("subscribing projection: %w", err)
		}
		go func() {
			for err := range bus.Errors() {
				logger.Warn("event bus", slog.Any("error", err))
			}
		}()
		targets = append(targets, bus)
	}

	if cfg.Journal.Enabled {
		w := stdout
		if cfg.Journal.Path != "-" {
			f, err := os.OpenFile(cfg.Journal.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("opening journal: %w", err)
			}
			defer f.Close()
			w = f
		}
		jw, err := journal.NewWriter(w)
		if err != nil {
			return err
		}
		targets = append(targets, jw)
	}

	if cfg.NATS.Enabled {
		pub, err := natsbus.NewPublisher(cfg.NATS.URL,
			natsbus.WithSubjectPrefix(cfg.NATS.SubjectPrefix),
			natsbus.WithPropagator(tp.Propagator),
		)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer pub.Close()
		logger.InfoContext(ctx, "publishing events to nats", slog.String("url", cfg.NATS.URL))
		targets = append(targets, pub)
	}

	dispatcher, err := mementotel.NewTelemetryDispatcher(memento.MultiDispatcher(targets...), telemetryOpts...)
	if err != nil {
		return fmt.Errorf("instrumenting dispatcher: %w", err)
	}

	store, err := memory.NewEventStore(
		logging.WithDispatchLogging(logger, dispatcher),
		memory.WithInitialCapacity(cfg.Store.InitialCapacity),
	)
	if err != nil {
		return fmt.Errorf("creating event store: %w", err)
	}
	traced, err := mementotel.NewTelemetryStore(logging.WithStoreLogging(logger, store), telemetryOpts...)
	if err != nil {
		return fmt.Errorf("instrumenting event store: %w", err)
	}

	svc, err := ledger.NewService(traced)
	if err != nil {
		return err
	}

	if err := scenario(ctx, svc, stdout); err != nil {
		return err
	}

	if bus != nil {
		// drain the projection before reading it
		if err := bus.Close(); err != nil {
			return fmt.Errorf("closing event bus: %w", err)
		}
		owners, err := svc.Owners(ctx, uuid.Nil)
		if err != nil {
			return err
		}
		for id, owner := range owners {
			balance, _ := balances.Balance(id)
			fmt.Fprintf(stdout, "projected balance %s: %d\n", owner, balance)
		}
	}

	logger.InfoContext(ctx, "demo finished", slog.Int("events", store.Len()))
	return nil
}

func scenario(ctx context.Context, svc *ledger.Service, out io.Writer) error {
	alice, err := svc.Open(ctx, "alice", uuid.Nil)
	if err != nil {
		return err
	}
	bob, err := svc.Open(ctx, "bob", uuid.Nil)
	if err != nil {
		return err
	}
	if err := svc.Deposit(ctx, alice, 100, uuid.Nil); err != nil {
		return err
	}
	checkpoint := time.Now()

	if err := svc.Transfer(ctx, alice, bob, 40, uuid.Nil); err != nil {
		return err
	}
	if err := svc.Withdraw(ctx, bob, 10, uuid.Nil); err != nil {
		return err
	}

	whatIf := uuid.New()
	branch, err := svc.Open(ctx, "alice", whatIf)
	if err != nil {
		return err
	}
	if err := svc.Deposit(ctx, branch, 500, whatIf); err != nil {
		return err
	}
	if err := svc.Withdraw(ctx, branch, 200, whatIf); err != nil {
		return err
	}

	report := []struct {
		label    string
		id       uuid.UUID
		at       time.Time
		timeline uuid.UUID
	}{
		{"alice", alice, time.Now(), uuid.Nil},
		{"bob", bob, time.Now(), uuid.Nil},
		{"alice at checkpoint", alice, checkpoint, uuid.Nil},
		{"alice what-if", branch, time.Now(), whatIf},
	}
	for _, r := range report {
		acc, err := svc.Account(ctx, r.id, r.at, r.timeline)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "balance %s: %d (%d events)\n", r.label, acc.Balance, acc.Version)
	}
	return nil
}
