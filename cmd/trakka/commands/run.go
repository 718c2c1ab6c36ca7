// Package commands implements CLI command handlers for trakka.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/trakka/internal/config"
	"github.com/Sumatoshi-tech/trakka/internal/observability"
	"github.com/Sumatoshi-tech/trakka/internal/trace"
	"github.com/Sumatoshi-tech/trakka/pkg/graph"
	"github.com/Sumatoshi-tech/trakka/pkg/planfile"
	"github.com/Sumatoshi-tech/trakka/pkg/runner"
	"github.com/Sumatoshi-tech/trakka/pkg/version"
)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	planPath        string
	configFile      string
	keepGoing       bool
	outdated        bool
	quiet           bool
	diagnosticsAddr string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run [plan]",
		Short: "Compile and run a plan to quiescence",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.configFile, "config", "", "Configuration file path (default: .trakka.yaml in CWD or $HOME)")
	cmd.Flags().BoolVar(&rc.keepGoing, "keep-going", false, "Continue past task failures, collecting every failure")
	cmd.Flags().BoolVar(&rc.outdated, "outdated", true, "Mark every path outdated at run start")
	cmd.Flags().BoolVarP(&rc.quiet, "quiet", "q", false, "Suppress the per-task status table")
	cmd.Flags().StringVar(
		&rc.diagnosticsAddr, "diagnostics-addr", "",
		"Start diagnostics HTTP server (health/ready/metrics) at this address (e.g., :6060)",
	)

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) (runErr error) {
	rc.planPath = args[0]

	cfg, err := config.LoadConfig(rc.configFile)
	if err != nil {
		return fmt.Errorf("trakka run: %w", err)
	}

	providers, err := rc.initObservability(cfg)
	if err != nil {
		return fmt.Errorf("trakka run: init observability: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		shutdownErr := providers.Shutdown(ctx)
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("trakka run: %w", err)
	}

	diagAddr := rc.diagnosticsAddr
	if diagAddr == "" {
		diagAddr = cfg.Observability.DiagnosticsAddr
	}

	if diagAddr != "" {
		diagServer, diagMeter, diagErr := observability.NewDiagnosticsServer(diagAddr, providers.Tracer, providers.Logger)
		if diagErr != nil {
			return fmt.Errorf("trakka run: start diagnostics server: %w", diagErr)
		}
		defer diagServer.Close()

		metrics, err = observability.NewRunMetrics(diagMeter)
		if err != nil {
			return fmt.Errorf("trakka run: %w", err)
		}

		providers.Logger.Info("diagnostics server listening", "addr", diagServer.Addr())
	}

	plan, err := planfile.LoadPlan(rc.planPath)
	if err != nil {
		return fmt.Errorf("trakka run: %w", err)
	}

	compiled, err := planfile.Compile(plan, nil)
	if err != nil {
		return fmt.Errorf("trakka run: %w", err)
	}

	var recorder *trace.Recorder

	if cfg.Trace.Enabled {
		recorder, err = trace.NewRecorder(cfg.Trace.Directory)
		if err != nil {
			return fmt.Errorf("trakka run: %w", err)
		}
		defer recorder.Close()
	}

	tbl := newStatusTable(rc.quiet)

	opts := runner.Options[graph.TuplePath, string]{
		Outdated:       rc.outdated,
		KeepGoing:      rc.keepGoing || cfg.Runner.KeepGoing,
		WorkerPoolSize: cfg.Runner.WorkerPoolSize,
		Callbacks:      statusCallbacks(tbl, recorder),
		Logger:         providers.Logger,
		Metrics:        metrics,
	}

	if cfg.Runner.DispatchRateLimit > 0 {
		burst := int(cfg.Runner.DispatchRateLimit)
		if burst < 1 {
			burst = 1
		}

		opts.DispatchRate = rate.NewLimiter(rate.Limit(cfg.Runner.DispatchRateLimit), burst)
	}

	events := make(chan runner.Event[graph.TuplePath, string], len(compiled.Events))
	for _, ev := range compiled.Events {
		events <- ev
	}
	close(events)

	start := time.Now()

	runErr = runner.RunTracker(ctx, compiled.Tracker, events, opts)

	if !rc.quiet {
		tbl.Render()
	}

	var aggregate *runner.AggregateError
	if errors.As(runErr, &aggregate) {
		fmt.Fprintf(os.Stdout, "trakka: run failed after %s with %d failure(s)\n", time.Since(start).Round(time.Millisecond), len(aggregate.Failures))

		return runErr
	}

	if runErr != nil {
		return fmt.Errorf("trakka run: %w", runErr)
	}

	fmt.Fprintf(os.Stdout, "trakka: run completed in %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func newStatusTable(quiet bool) table.Writer {
	if quiet {
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"task", "state"})

	return tbl
}

func statusCallbacks(tbl table.Writer, recorder *trace.Recorder) runner.Callbacks[graph.TuplePath, string] {
	record := func(kind, name, state string) {
		recorder.Record(kind, name, state)
	}

	appendRow := func(name, state string) {
		if tbl != nil {
			tbl.AppendRow(table.Row{name, state})
		}
	}

	return runner.Callbacks[graph.TuplePath, string]{
		OnTaskRunning: func(_ *graph.Tracker[graph.TuplePath, string], task graph.Task[graph.TuplePath]) {
			name := taskLabel(task)
			appendRow(name, "running")
			record("task", name, "running")
		},
		OnTaskStopped: func(_ *graph.Tracker[graph.TuplePath, string], task graph.Task[graph.TuplePath]) {
			name := taskLabel(task)
			appendRow(name, "stopped")
			record("task", name, "stopped")
		},
		OnTaskFailed: func(_ *graph.Tracker[graph.TuplePath, string], task graph.Task[graph.TuplePath]) {
			name := taskLabel(task)
			appendRow(name, "failed")
			record("task", name, "failed")
		},
		OnPathUpToDate: func(_ *graph.Tracker[graph.TuplePath, string], path graph.TuplePath) {
			record("path", string(path), "up_to_date")
		},
		OnPathOutdated: func(_ *graph.Tracker[graph.TuplePath, string], path graph.TuplePath) {
			record("path", string(path), "outdated")
		},
	}
}

// initObservability builds the OTel tracer/meter/logger providers for a run,
// exporting to cfg.Observability.OTLPEndpoint when set and falling back to
// no-op providers (plus a stderr logger) otherwise.
func (rc *RunCommand) initObservability(cfg *config.Config) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = observability.ModeRun
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.LogLevel = parseLogLevel(cfg.Observability.Level)
	obsCfg.LogJSON = cfg.Observability.Format == "json"

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init providers: %w", err)
	}

	return providers, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func taskLabel(task graph.Task[graph.TuplePath]) string {
	outputs := task.OutputPaths()
	if len(outputs) == 0 {
		return "<task>"
	}

	return string(outputs[0])
}
