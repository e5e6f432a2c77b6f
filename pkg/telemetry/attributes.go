package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys used across run, iteration, and round spans.
const (
	AttrGraphVertices = "graph.vertices"
	AttrGraphEdges    = "graph.edges"
	AttrGraphMode     = "graph.mode"
	AttrSourceVertex  = "graph.source_vertex"

	AttrRunID      = "sssp.run_id"
	AttrPeerCount  = "sssp.peer_count"
	AttrPeer       = "sssp.peer"
	AttrIteration  = "sssp.iteration"
	AttrRound      = "sssp.round"
	AttrConverged  = "sssp.converged"
	AttrRoundsRun  = "sssp.rounds_run"
	AttrEdgesDone  = "sssp.edges_traversed"
	AttrTEPS       = "sssp.teps"
)

// GraphAttributes describes the loaded graph for a run-level span.
func GraphAttributes(vertices, rawEdges int64, mode string, source int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrGraphVertices, vertices),
		attribute.Int64(AttrGraphEdges, rawEdges),
		attribute.String(AttrGraphMode, mode),
		attribute.Int64(AttrSourceVertex, source),
	}
}

// RunAttributes identifies one invocation of the engine.
func RunAttributes(runID string, peerCount int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Int64(AttrPeerCount, peerCount),
	}
}

// IterationAttributes summarizes one completed iteration.
func IterationAttributes(iteration int, roundsRun, edgesTraversed int64, teps float64, converged bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrIteration, iteration),
		attribute.Int64(AttrRoundsRun, roundsRun),
		attribute.Int64(AttrEdgesDone, edgesTraversed),
		attribute.Float64(AttrTEPS, teps),
		attribute.Bool(AttrConverged, converged),
	}
}

// RoundAttributes tags a single driver-round span.
func RoundAttributes(round, peer int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrRound, round),
		attribute.Int64(AttrPeer, peer),
	}
}
