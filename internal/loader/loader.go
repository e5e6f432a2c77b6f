// Package loader parses the plain-text graph input format into a per-peer
// graphstore.Store: a global vertex count, followed by `(src dest weight)`
// triples, one per line. It is grounded on the original implementation's
// read_file(), with the undirected-mode edge-ownership rule corrected per
// SPEC_FULL.md §9.1: every peer scans the entire input independently and
// keeps only the edges it owns, rather than relying on shared memory.
package loader

import (
	"bufio"
	"fmt"
	"io"

	"shmemsssp/internal/graphstore"
	"shmemsssp/internal/partition"
)

// Mode selects whether an input line (a, b, w) also implies a reverse edge
// (b, a, w).
type Mode int

const (
	Directed Mode = iota
	Undirected
)

// Stats reports bookkeeping the orchestrator surfaces in its run report,
// mirroring the original's printed edge/memory counters.
type Stats struct {
	// RawEdgeCount is the number of (a, b, w) lines read from the input,
	// before self-loop pruning or ownership filtering.
	RawEdgeCount int64
	// LocalEdgeCount is the number of edges this peer actually stored
	// (forward plus, in undirected mode, reverse edges it owns).
	LocalEdgeCount int64
}

// ReadVertexCount reads just the leading vertex-count token of the graph
// input format. The orchestrator calls this once (against its own open
// handle) to compute the padded partition size before any peer begins its
// full per-peer edge scan.
func ReadVertexCount(r io.Reader) (int64, error) {
	var v int64
	if _, err := fmt.Fscan(r, &v); err != nil {
		return 0, fmt.Errorf("loader: reading vertex count: %w", err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("loader: vertex count must be positive, got %d", v)
	}
	return v, nil
}

// Load scans the full graph input for one peer: every peer reads the entire
// input independently (there is no shared filesystem assumption beyond
// every peer being handed an equivalent reader) and keeps only the edges it
// owns. In Undirected mode, a line (a, b, w) additionally contributes the
// reverse edge (b, a, w) whenever this peer owns b, regardless of who owns
// a — this is the corrected rule from SPEC_FULL.md §9.1; the original only
// added the reverse edge when b was locally owned by the peer that also
// owned a, silently dropping cross-peer reverse edges.
func Load(r io.Reader, part partition.Map, myPE int64, mode Mode) (*graphstore.Store, Stats, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var header int64
	if _, err := fmt.Fscan(br, &header); err != nil {
		return nil, Stats{}, fmt.Errorf("loader: reading vertex count header: %w", err)
	}

	b := graphstore.NewBuilder(part.SliceSize())
	var stats Stats

	for {
		var a, dest, weight int64
		_, err := fmt.Fscan(br, &a, &dest, &weight)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("loader: parsing edge line %d: %w", stats.RawEdgeCount+1, err)
		}
		stats.RawEdgeCount++

		if a == dest {
			continue // self-loop pruning
		}

		if part.Owns(myPE, a) {
			_, local := part.Locate(a)
			b.AddEdge(local, dest, weight, part.Owns(myPE, dest))
			stats.LocalEdgeCount++
		}
		if mode == Undirected && part.Owns(myPE, dest) {
			_, local := part.Locate(dest)
			b.AddEdge(local, a, weight, part.Owns(myPE, a))
			stats.LocalEdgeCount++
		}
	}

	return b.Compact(), stats, nil
}
