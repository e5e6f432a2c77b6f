// Command shmemsssp runs a distributed single-source shortest-paths engine
// over a partitioned global address space: `<source> <directed|undirected>
// <graph_path> <iterations>`, with optional layered overrides from a YAML
// config file and SHMEMSSSP_* environment variables (see pkg/config). It is
// the Go counterpart of the original implementation's argv-driven main().
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"shmemsssp/internal/orchestrator"
	"shmemsssp/pkg/apperror"
	"shmemsssp/pkg/config"
	"shmemsssp/pkg/logger"
	"shmemsssp/pkg/metrics"
	"shmemsssp/pkg/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	runArgs, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return apperror.ExitCodeFor(err)
	}

	cfg, err := config.NewLoader().LoadWithRunArgs(runArgs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 2
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Version:     buildVersion,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("failed to init telemetry", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Log.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(buildVersion, cfg.App.Environment)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port); err != nil {
				logger.Log.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	report, err := orchestrator.Run(ctx, cfg)
	if err != nil {
		logger.Error("run failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return apperror.ExitCodeFor(err)
	}

	fmt.Print(report.String())
	return 0
}

// buildVersion is overridden at link time via -ldflags, mirroring the
// teacher services' cfg.App.Version wiring; the CLI has no release
// pipeline of its own yet so it defaults to "dev".
var buildVersion = "dev"

// parseArgs maps the CLI's four positional arguments, plus optional
// flag-style overrides, onto the run.* config keys LoadWithRunArgs expects.
// Positional form: <source> <directed|undirected> <graph_path> <iterations>
// [--peers N] [--config path].
func parseArgs(args []string) (map[string]any, error) {
	var positional []string
	run := make(map[string]any)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--peers":
			if i+1 >= len(args) {
				return nil, apperror.New(apperror.CodeMissingArgument, "--peers requires a value")
			}
			i++
			peers, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return nil, apperror.Wrap(err, apperror.CodeInvalidPeerCount, "parsing --peers")
			}
			run["peers"] = peers
		case "--config":
			if i+1 >= len(args) {
				return nil, apperror.New(apperror.CodeMissingArgument, "--config requires a value")
			}
			i++
			if err := os.Setenv("SHMEMSSSP_CONFIG_PATH", args[i]); err != nil {
				return nil, apperror.Wrap(err, apperror.CodeConfigInvalid, "setting config path")
			}
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) != 4 {
		return nil, apperror.NewWithField(apperror.CodeMissingArgument,
			"expected 4 positional arguments: source mode graph_path iterations", "args")
	}

	source, err := strconv.ParseInt(positional[0], 10, 64)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidSource, "parsing source vertex").WithField("source")
	}
	run["source"] = source

	switch positional[1] {
	case "directed", "undirected":
		run["mode"] = positional[1]
	default:
		return nil, apperror.NewWithField(apperror.CodeInvalidMode,
			"mode must be directed or undirected", "mode").WithDetails("got", positional[1])
	}

	run["graph_path"] = positional[2]

	iterations, err := strconv.Atoi(positional[3])
	if err != nil || iterations <= 0 {
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
			"iterations must be a positive integer", "iterations")
	}
	run["iterations"] = iterations

	return run, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: shmemsssp <source> <directed|undirected> <graph_path> <iterations> [--peers N] [--config path]")
}
