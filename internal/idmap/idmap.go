// Package idmap provides a roaring-bitmap-backed implementation of
// postings.DocMap (spec §6, "Doc-id remapping"), grounded on the
// RoaringBitmap usage in _examples/hupe1980-vecgo and
// _examples/influxdata-influxdb for compact set-membership storage.
package idmap

import (
	"math"

	"github.com/RoaringBitmap/roaring"
)

// Map translates old document ids (0-based, relative to a configured
// Min) to new ones, or reports them dropped. Build it once via
// NewBuilder, then use it as a postings.DocMap during flush.
type Map struct {
	min     uint32
	dropped *roaring.Bitmap
	assign  []uint32 // dense old-relative-id -> new-id; math.MaxUint32 sentinel for dropped
}

// Builder accumulates (old, new) assignments and drops before Build
// freezes them into a Map.
type Builder struct {
	min     uint32
	dropped *roaring.Bitmap
	assign  map[uint32]uint32
	maxOld  uint32
}

// NewBuilder starts a builder for old ids relative to min (spec §6:
// "min is the minimum valid document id, conventionally 1").
func NewBuilder(min uint32) *Builder {
	return &Builder{min: min, dropped: roaring.New(), assign: make(map[uint32]uint32)}
}

// Assign records that old (an absolute old document id, >= min) maps
// to newID.
func (b *Builder) Assign(old, newID uint32) {
	rel := old - b.min
	b.assign[rel] = newID
	if rel > b.maxOld || len(b.assign) == 1 {
		b.maxOld = rel
	}
}

// Drop records that old (an absolute old document id, >= min) has no
// surviving new id.
func (b *Builder) Drop(old uint32) {
	rel := old - b.min
	b.dropped.Add(rel)
	if rel > b.maxOld {
		b.maxOld = rel
	}
}

// Build freezes the accumulated assignments into a dense lookup table.
func (b *Builder) Build() *Map {
	size := int(b.maxOld) + 1
	if len(b.assign) == 0 && b.dropped.IsEmpty() {
		size = 0
	}
	assign := make([]uint32, size)
	for i := range assign {
		assign[i] = math.MaxUint32
	}
	for rel, newID := range b.assign {
		assign[rel] = newID
	}
	return &Map{min: b.min, dropped: b.dropped.Clone(), assign: assign}
}

// Min returns the minimum valid absolute document id (spec §6).
func (m *Map) Min() uint32 { return m.min }

// Get returns the new id for oldIDMinusMin, or postings.DocIDEOF
// (math.MaxUint32) if it was dropped or never assigned. Defined here
// rather than importing postings to avoid a package cycle; the value
// is numerically identical to postings.DocIDEOF.
func (m *Map) Get(oldIDMinusMin uint32) uint32 {
	if m.dropped.Contains(oldIDMinusMin) {
		return math.MaxUint32
	}
	if int(oldIDMinusMin) >= len(m.assign) {
		return math.MaxUint32
	}
	return m.assign[oldIDMinusMin]
}
