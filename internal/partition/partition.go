// Package partition implements the bijective mapping between a global vertex
// id and its owning peer plus local index within that peer's slice.
package partition

import "fmt"

// Map describes a uniform partition of [0, V) across P peers, each owning a
// contiguous slice of S = V/P vertices.
type Map struct {
	v int64
	p int64
	s int64
}

// New builds a Map for v global vertices spread uniformly across p peers.
// v must already be a multiple of p; callers pad before constructing this.
func New(v, p int64) (Map, error) {
	if p <= 0 {
		return Map{}, fmt.Errorf("partition: peer count must be positive, got %d", p)
	}
	if v <= 0 {
		return Map{}, fmt.Errorf("partition: vertex count must be positive, got %d", v)
	}
	if v%p != 0 {
		return Map{}, fmt.Errorf("partition: vertex count %d is not a multiple of peer count %d", v, p)
	}
	return Map{v: v, p: p, s: v / p}, nil
}

// Vertices returns the total (padded) global vertex count.
func (m Map) Vertices() int64 { return m.v }

// Peers returns the peer count.
func (m Map) Peers() int64 { return m.p }

// SliceSize returns S, the uniform number of vertices owned by each peer.
func (m Map) SliceSize() int64 { return m.s }

// Locate maps a global vertex id to its owning peer and local index.
func (m Map) Locate(v int64) (peer, local int64) {
	return v / m.s, v % m.s
}

// Global is the inverse of Locate: the global id of local index i on peer p.
func (m Map) Global(peer, local int64) int64 {
	return peer*m.s + local
}

// Owns reports whether peer owns global vertex v.
func (m Map) Owns(peer, v int64) bool {
	owner, _ := m.Locate(v)
	return owner == peer
}

// PadVertexCount rounds v up to the nearest multiple of p that is also at
// least p, mirroring the original loader's "at least one vertex per peer"
// rule.
func PadVertexCount(v, p int64) int64 {
	if v < p {
		return p
	}
	if rem := v % p; rem != 0 {
		return v + (p - rem)
	}
	return v
}
