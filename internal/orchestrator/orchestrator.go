// Package orchestrator drives one full engine invocation end to end: it
// validates the resolved configuration, loads the graph, builds the
// configured transport backend, runs the synchronous Bellman-Ford driver
// for the requested iteration count, and reports per-iteration and
// aggregate metrics (SPEC_FULL.md §4.7). It is the Go counterpart of the
// original implementation's main() driving loop, generalized from a fixed
// argv-based invocation to the layered configuration of pkg/config.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shmemsssp/internal/driver"
	"shmemsssp/internal/graphstore"
	"shmemsssp/internal/history"
	"shmemsssp/internal/loader"
	"shmemsssp/internal/partition"
	"shmemsssp/internal/symstate"
	"shmemsssp/internal/transport"
	"shmemsssp/pkg/apperror"
	"shmemsssp/pkg/config"
	"shmemsssp/pkg/logger"
	"shmemsssp/pkg/metrics"
	"shmemsssp/pkg/runlog"
	"shmemsssp/pkg/telemetry"
)

// IterationReport summarizes one completed iteration.
type IterationReport struct {
	Index          int
	Duration       time.Duration
	TEPS           float64
	RoundsRun      int64
	TraversedEdges int64
	Converged      bool
}

// Report summarizes a full run: every iteration plus the derived means
// reported on stdout (SPEC_FULL.md §6 "Reported metrics").
type Report struct {
	RunID            string
	Vertices         int64
	RawEdges         int64
	Peers            int64
	Iterations       []IterationReport
	MeanTimeSeconds  float64
	MeanTEPS         float64
	HarmonicMeanTEPS float64
}

// Run executes cfg.Run.Iterations iterations of the configured SSSP
// engine invocation: validates the source vertex against the padded
// vertex count, loads the graph once per simulated peer, builds the
// configured transport, drives the iteration loop, and persists metrics
// to the run log and (if configured) the history store.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	runID := uuid.NewString()
	log := logger.WithRunID(runID)

	rootCtx, span := telemetry.StartSpan(ctx, "sssp.run", telemetry.WithAttributes(
		telemetry.RunAttributes(runID, cfg.Run.Peers)...,
	))
	defer span.End()

	graphBytes, err := os.ReadFile(cfg.Run.GraphPath)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeGraphUnreadable, "reading graph file").
			WithField("graph_path")
	}

	rawV, err := loader.ReadVertexCount(bytes.NewReader(graphBytes))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeGraphMalformed, "reading vertex count")
	}

	v := partition.PadVertexCount(rawV, cfg.Run.Peers)
	if cfg.Run.Source < 0 || cfg.Run.Source >= v {
		return nil, apperror.NewWithField(apperror.CodeInvalidSource, "source vertex out of range after padding", "source").
			WithDetails("source", cfg.Run.Source).
			WithDetails("padded_vertices", v)
	}

	part, err := partition.New(v, cfg.Run.Peers)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidPeerCount, "building partition map")
	}

	mode := loader.Directed
	if cfg.Run.Mode == "undirected" {
		mode = loader.Undirected
	}

	stores := make([]*graphstore.Store, cfg.Run.Peers)
	var rawEdges int64
	for pe := int64(0); pe < cfg.Run.Peers; pe++ {
		store, stats, err := loader.Load(bytes.NewReader(graphBytes), part, pe, mode)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeGraphMalformed, "loading graph partition").
				WithDetails("peer", pe)
		}
		stores[pe] = store
		rawEdges = stats.RawEdgeCount
	}

	handles, err := buildTransport(rootCtx, cfg, part, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}()

	states := make([]*symstate.State, cfg.Run.Peers)
	for pe := range states {
		states[pe] = symstate.New(handles[pe], part.SliceSize())
	}

	var hist history.Store
	if cfg.History.Enabled {
		hist, err = openHistory(rootCtx, cfg)
		if err != nil {
			return nil, err
		}
		defer hist.Close()
	}

	m := metrics.Get()
	m.RecordGraphSize(cfg.Run.Mode, v, rawEdges)

	runLogger, err := runlog.New(&runlog.Config{
		Enabled:     cfg.RunLog.Enabled,
		Backend:     cfg.RunLog.Backend,
		FilePath:    cfg.RunLog.FilePath,
		BufferSize:  cfg.RunLog.BufferSize,
		FlushPeriod: cfg.RunLog.FlushPeriod,
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeAllocationFailed, "opening run log")
	}
	defer func() {
		if err := runLogger.Close(); err != nil {
			log.Warn("failed to close run log", "error", err)
		}
	}()

	report := &Report{RunID: runID, Vertices: v, RawEdges: rawEdges, Peers: cfg.Run.Peers}
	var iterRecords []history.Iteration

	for i := 0; i < cfg.Run.Iterations; i++ {
		iterReport, entry, histIt, err := runIteration(rootCtx, runID, i, cfg, v, rawEdges, part, stores, states, handles, m)
		if err != nil {
			return nil, err
		}

		if err := runLogger.Log(rootCtx, entry); err != nil {
			log.Warn("failed to write run log entry", "error", err, "iteration", i)
		}
		log.Info("iteration complete",
			"iteration", i,
			"duration_ms", iterReport.Duration.Milliseconds(),
			"teps", iterReport.TEPS,
			"converged", iterReport.Converged,
		)

		report.Iterations = append(report.Iterations, iterReport)
		if hist != nil {
			iterRecords = append(iterRecords, histIt)
		}
	}

	report.MeanTimeSeconds, report.MeanTEPS, report.HarmonicMeanTEPS = computeMeans(report.Iterations)

	if hist != nil {
		run := history.Run{
			RunID:            runID,
			StartedAt:        time.Now().Add(-sumDuration(report.Iterations)),
			Peers:            cfg.Run.Peers,
			Vertices:         v,
			RawEdges:         rawEdges,
			MeanTimeMs:       report.MeanTimeSeconds * 1000,
			MeanTEPS:         report.MeanTEPS,
			HarmonicMeanTEPS: report.HarmonicMeanTEPS,
		}
		if err := hist.SaveRunWithIterations(rootCtx, run, iterRecords); err != nil {
			log.Warn("failed to persist run history", "error", err)
		}
	}

	return report, nil
}

// runIteration resets symmetric state, barriers all peers, runs the
// driver for each simulated peer concurrently via errgroup, and reduces
// the per-peer results into one iteration's report.
func runIteration(
	ctx context.Context,
	runID string,
	index int,
	cfg *config.Config,
	vertices, rawEdges int64,
	part partition.Map,
	stores []*graphstore.Store,
	states []*symstate.State,
	handles []transport.Transport,
	m *metrics.Metrics,
) (IterationReport, *runlog.Entry, history.Iteration, error) {
	iterCtx, iterSpan := telemetry.StartSpan(ctx, "sssp.iteration", telemetry.WithAttributes(
		telemetry.GraphAttributes(vertices, rawEdges, cfg.Run.Mode, cfg.Run.Source)...,
	))
	defer iterSpan.End()

	sourcePeer, sourceLocal := part.Locate(cfg.Run.Source)

	initGroup, initCtx := errgroup.WithContext(iterCtx)
	for pe := int64(0); pe < cfg.Run.Peers; pe++ {
		pe := pe
		initGroup.Go(func() error {
			isSource := func(local int64) bool {
				return pe == sourcePeer && local == sourceLocal
			}
			return states[pe].Init(initCtx, isSource)
		})
	}
	if err := initGroup.Wait(); err != nil {
		return IterationReport{}, nil, history.Iteration{}, apperror.Wrap(err, apperror.CodeTransportUnavailable, "resetting symmetric state")
	}

	for _, h := range handles {
		if err := h.BarrierAll(iterCtx); err != nil {
			return IterationReport{}, nil, history.Iteration{}, apperror.Wrap(err, apperror.CodeBarrierFailed, "pre-iteration barrier")
		}
	}

	tracer := telemetry.Get().Tracer()
	obs := roundObserver{mode: cfg.Run.Mode, metrics: m}

	results := make([]driver.Result, cfg.Run.Peers)
	start := time.Now()
	runGroup, runCtx := errgroup.WithContext(iterCtx)
	for pe := int64(0); pe < cfg.Run.Peers; pe++ {
		pe := pe
		runGroup.Go(func() error {
			res, err := driver.Run(runCtx, tracer, obs, handles[pe], part, stores[pe], states[pe])
			results[pe] = res
			return err
		})
	}
	if err := runGroup.Wait(); err != nil {
		return IterationReport{}, nil, history.Iteration{}, apperror.Wrap(err, apperror.CodeTransportUnavailable, "running iteration driver")
	}
	duration := time.Since(start)

	var traversed, roundsRun int64
	converged := true
	for _, res := range results {
		traversed += res.TraversedEdges
		if res.RoundsRun > roundsRun {
			roundsRun = res.RoundsRun
		}
		converged = converged && res.Converged
	}

	teps := 0.0
	if duration > 0 {
		teps = float64(traversed) / duration.Seconds()
	}

	m.RecordIteration(cfg.Run.Mode, converged, duration, roundsRun, traversed)
	iterSpan.SetAttributes(telemetry.IterationAttributes(index, roundsRun, traversed, teps, converged)...)

	outcome := runlog.OutcomeConverged
	if !converged {
		outcome = runlog.OutcomeExhausted
	}

	entry := runlog.NewEntry().
		Run(runID, cfg.Run.Peers).
		Iteration(index, cfg.Run.Source, cfg.Run.Mode).
		GraphSize(vertices, rawEdges).
		Result(roundsRun, traversed, duration).
		Outcome(outcome).
		Build()

	histIt := history.Iteration{
		Iteration:      index,
		Source:         cfg.Run.Source,
		Mode:           cfg.Run.Mode,
		RoundsRun:      roundsRun,
		TraversedEdges: traversed,
		DurationMs:     duration.Milliseconds(),
		TEPS:           teps,
		Outcome:        string(outcome),
	}

	return IterationReport{
		Index:          index,
		Duration:       duration,
		TEPS:           teps,
		RoundsRun:      roundsRun,
		TraversedEdges: traversed,
		Converged:      converged,
	}, entry, histIt, nil
}

// roundObserver feeds Prometheus round-duration observations from the
// driver's per-round callback without the driver importing pkg/metrics.
type roundObserver struct {
	mode    string
	metrics *metrics.Metrics
}

func (o roundObserver) ObserveRound(_ int64, duration time.Duration, _ int64) {
	o.metrics.RecordRound(o.mode, duration)
}

// buildTransport constructs one Transport handle per peer for the
// configured backend. The Local backend simulates all peers as goroutines
// in this process; the Redis backend connects npes real clients to one
// shared instance, namespaced by runID so concurrent runs cannot collide.
func buildTransport(ctx context.Context, cfg *config.Config, part partition.Map, runID string) ([]transport.Transport, error) {
	switch cfg.Transport.Backend {
	case "redis":
		handles := make([]transport.Transport, cfg.Run.Peers)
		for pe := int64(0); pe < cfg.Run.Peers; pe++ {
			h, err := transport.NewRedisPeer(ctx, pe, cfg.Run.Peers, transport.RedisOptions{
				Addr:         cfg.Transport.Redis.Addr,
				Password:     cfg.Transport.Redis.Password,
				DB:           cfg.Transport.Redis.DB,
				RunID:        runID,
				PollInterval: cfg.Transport.Redis.PollInterval,
			})
			if err != nil {
				return nil, apperror.Wrap(err, apperror.CodeTransportUnavailable, "connecting redis transport peer").
					WithDetails("peer", pe)
			}
			handles[pe] = h
		}
		return handles, nil
	default:
		handles, err := transport.NewLocalCluster(cfg.Run.Peers, part.SliceSize())
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeAllocationFailed, "building local transport cluster")
		}
		return handles, nil
	}
}

// openHistory connects to the configured history store and applies
// pending migrations if auto-migration is enabled.
func openHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	store, err := history.Open(ctx, &cfg.History)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeTransportUnavailable, "opening history store")
	}
	if cfg.History.AutoMigrate {
		if err := history.RunMigrations(ctx, store.Pool(), &cfg.History); err != nil {
			store.Close()
			return nil, apperror.Wrap(err, apperror.CodeTransportUnavailable, "running history migrations")
		}
	}
	return store, nil
}

// computeMeans returns the arithmetic mean wall time and TEPS, and the
// harmonic mean TEPS, across all completed iterations (SPEC_FULL.md §6).
func computeMeans(iters []IterationReport) (meanTime, meanTEPS, harmonicTEPS float64) {
	if len(iters) == 0 {
		return 0, 0, 0
	}
	var sumTime, sumTEPS, sumInvTEPS float64
	for _, it := range iters {
		sumTime += it.Duration.Seconds()
		sumTEPS += it.TEPS
		if it.TEPS > 0 {
			sumInvTEPS += 1 / it.TEPS
		}
	}
	n := float64(len(iters))
	meanTime = sumTime / n
	meanTEPS = sumTEPS / n
	if sumInvTEPS > 0 {
		harmonicTEPS = n / sumInvTEPS
	}
	return meanTime, meanTEPS, harmonicTEPS
}

func sumDuration(iters []IterationReport) time.Duration {
	var total time.Duration
	for _, it := range iters {
		total += it.Duration
	}
	return total
}

// String renders the report in the original implementation's terse
// stdout summary style, one line per iteration followed by the means.
func (r *Report) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "run %s: V=%d peers=%d raw_edges=%d\n", r.RunID, r.Vertices, r.Peers, r.RawEdges)
	for _, it := range r.Iterations {
		fmt.Fprintf(&b, "  iter %d: %.6fs  TEPS=%.2f  rounds=%d  edges=%d  converged=%v\n",
			it.Index, it.Duration.Seconds(), it.TEPS, it.RoundsRun, it.TraversedEdges, it.Converged)
	}
	fmt.Fprintf(&b, "mean time: %.6fs  mean TEPS: %.2f  harmonic mean TEPS: %.2f\n",
		r.MeanTimeSeconds, r.MeanTEPS, r.HarmonicMeanTEPS)
	return b.String()
}
