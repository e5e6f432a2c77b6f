// Package graphstore holds the local, per-peer adjacency slice: the
// out-edges of vertices this peer owns. It is never shared across peers —
// unlike the symmetric state in internal/symstate, a graphstore.Store lives
// entirely in one process's private memory.
package graphstore

// Edge is a single directed out-edge, mirroring the C original's
// struct edge { int64_t dest; int64_t weight; }.
type Edge struct {
	Dest   int64
	Weight int64
}

// builderNode accumulates edges for one owned vertex during load, growing
// geometrically like the original's realloc-doubling.
type builderNode struct {
	edges             []Edge
	internalEdgesOnly bool
}

// Builder accumulates edges per owned vertex during loading, then Compact
// flattens everything into the read-only CSR Store used by the hot path.
type Builder struct {
	nodes []builderNode
}

// NewBuilder allocates a Builder for a peer owning sliceSize vertices.
// Every vertex starts with internalEdgesOnly true; AddEdge clears it the
// first time a non-local destination is seen.
func NewBuilder(sliceSize int64) *Builder {
	nodes := make([]builderNode, sliceSize)
	for i := range nodes {
		nodes[i].internalEdgesOnly = true
	}
	return &Builder{nodes: nodes}
}

// AddEdge appends an out-edge for the owned vertex at local index u.
// isLocalDest must be true iff the destination is owned by this same peer;
// the loader is responsible for computing that from the partition map.
func (b *Builder) AddEdge(u int64, dest, weight int64, isLocalDest bool) {
	n := &b.nodes[u]
	n.edges = append(n.edges, Edge{Dest: dest, Weight: weight})
	if !isLocalDest {
		n.internalEdgesOnly = false
	}
}

// Compact flattens the builder into a read-only CSR-layout Store: an
// offsets array of length sliceSize+1 and a single flat edge slice, so the
// iteration driver's hot scan walks contiguous memory instead of
// slice-of-slices.
func (b *Builder) Compact() *Store {
	n := int64(len(b.nodes))
	offsets := make([]int32, n+1)
	var total int64
	for i, node := range b.nodes {
		offsets[i] = int32(total)
		total += int64(len(node.edges))
	}
	offsets[n] = int32(total)

	flat := make([]Edge, total)
	internalOnly := make([]bool, n)
	for i, node := range b.nodes {
		copy(flat[offsets[i]:offsets[i+1]], node.edges)
		internalOnly[i] = node.internalEdgesOnly
	}

	return &Store{
		offsets:      offsets,
		edges:        flat,
		internalOnly: internalOnly,
	}
}

// Store is the read-only, CSR-laid-out local adjacency used by the driver
// and relaxation primitive. It is built once at load time via Builder and
// never mutated afterwards.
type Store struct {
	offsets      []int32
	edges        []Edge
	internalOnly []bool
}

// SliceSize returns the number of owned vertices.
func (s *Store) SliceSize() int64 { return int64(len(s.internalOnly)) }

// OutEdges returns the out-edges of owned vertex at local index u. The
// returned slice aliases the store's internal buffer and must not be
// mutated or retained past the next Compact.
func (s *Store) OutEdges(u int64) []Edge {
	return s.edges[s.offsets[u]:s.offsets[u+1]]
}

// InternalEdgesOnly reports whether every out-edge of owned vertex u points
// to a destination owned by this same peer, enabling the relaxation
// primitive's local fast path (SPEC_FULL.md §4.3 step 3).
func (s *Store) InternalEdgesOnly(u int64) bool { return s.internalOnly[u] }

// EdgeCount returns the total number of out-edges stored across all owned
// vertices, used for local memory accounting.
func (s *Store) EdgeCount() int64 { return int64(len(s.edges)) }
