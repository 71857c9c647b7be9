package postings

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/irsgo/iresearch/bytepool"
	"github.com/irsgo/iresearch/internal/telemetry"
)

// FieldsData owns the byte pool, int pool, and the set of field
// accumulators for one in-memory segment under construction (spec
// §4.5, SPEC_FULL.md §3 "Additional ambient data"), playing the role
// golucene's DocumentsWriterPerThread plays in core/index/dwpt.go: one
// instance per segment, driven single-threaded (spec §5), reset to
// empty once flushed.
type FieldsData struct {
	bytePool *bytepool.Pool
	intPool  *bytepool.IntPool

	legacyOffsets            bool
	promoteZeroLengthPayload bool

	fields map[string]*FieldAccumulator
	names  []string // insertion order, for stable iteration before sort

	id      uuid.UUID
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewFieldsData returns an empty set backed by fresh byte/int pools,
// stamped with a fresh segment id and wired to logger/metrics. Either
// may be nil: a nil logger becomes a no-op logger, a nil metrics handle
// disables metric recording. legacyOffsets and promoteZeroLengthPayload
// are forwarded to every field accumulator it creates (spec §9's
// offs_base open question and SPEC_FULL.md's payload-promotion knob).
func NewFieldsData(legacyOffsets, promoteZeroLengthPayload bool, logger *zap.Logger, metrics *telemetry.Metrics) *FieldsData {
	id := uuid.New()
	fd := &FieldsData{
		bytePool:                 bytepool.New(),
		intPool:                  bytepool.NewIntPool(),
		legacyOffsets:            legacyOffsets,
		promoteZeroLengthPayload: promoteZeroLengthPayload,
		fields:                   make(map[string]*FieldAccumulator),
		id:                       id,
		logger:                   telemetry.NewLogger(logger, id.String()),
		metrics:                  metrics,
	}
	fd.bytePool.OnNewBlock = func() {
		if fd.metrics != nil {
			fd.metrics.BlocksAllocated.Inc()
		}
	}
	fd.bytePool.OnOversizeAppend = func(size int) {
		fd.logger.Error("term exceeds byte pool block size, segment unusable", zap.Int("bytes", size))
		if fd.metrics != nil {
			fd.metrics.PoolExhaustedTot.Inc()
		}
	}
	return fd
}

// ID returns this segment's diagnostic identifier.
func (fd *FieldsData) ID() uuid.UUID { return fd.id }

// SetMetrics attaches a metrics handle after construction, letting a
// caller build one labeled with the segment's own generated id.
func (fd *FieldsData) SetMetrics(m *telemetry.Metrics) { fd.metrics = m }

// Emplace returns the field accumulator for name, creating it on first
// mention within this segment (spec §4.5).
func (fd *FieldsData) Emplace(name string) *FieldAccumulator {
	if f, ok := fd.fields[name]; ok {
		return f
	}
	f := NewFieldAccumulator(name, fd.bytePool, fd.intPool, fd.legacyOffsets, fd.promoteZeroLengthPayload, fd.logger, fd.metrics)
	fd.fields[name] = f
	fd.names = append(fd.names, name)
	return f
}

// Field returns the existing accumulator for name, or nil if the field
// has never been emplaced in this segment.
func (fd *FieldsData) Field(name string) *FieldAccumulator {
	return fd.fields[name]
}

// FlushState carries the per-flush configuration flush() needs beyond
// the writer itself: an optional doc-id remap. Which of the
// frequency/position/offset streams get decoded is derived per field
// from that field's own accumulated feature set (field_data.cpp:202-212
// derives doc_iterator/pos_iterator::reset the same way from
// field.meta().features), not from a single flush-wide setting: a
// segment mixing a positions field with a freq-only field would
// otherwise have one of the two decoded wrong.
type FlushState struct {
	DocMap DocMap // nil for no remapping
}

// Flush walks fields in sorted name order, handing writer a term
// iterator per field, then finalizes with writer.End() and resets the
// pools and field map (spec §4.5). It returns the first error a
// FieldWriter call reports, if any; on success or failure the set is
// always reset, matching golucene's per-segment "flush is terminal"
// lifecycle.
func (fd *FieldsData) Flush(writer FieldWriter, state FlushState) error {
	start := time.Now()
	defer fd.reset()
	if fd.metrics != nil {
		defer func() { fd.metrics.ObserveFlush(time.Since(start)) }()
	}

	names := make([]string, len(fd.names))
	copy(names, fd.names)
	sort.Strings(names)

	for _, name := range names {
		f := fd.fields[name]
		trackPos := f.features.Has(FeaturePosition)
		trackFreq := f.features.Has(FeatureFrequency) || trackPos
		trackOffset := f.features.Has(FeatureOffset)
		terms := NewTermIterator(f.dict, fd.bytePool, fd.intPool, trackFreq, trackPos, trackOffset, state.DocMap)
		fd.logger.Info("flushing field", zap.String("field", name), zap.Int("terms", f.dict.Len()))
		if err := writer.Write(name, f.normHandle, f.features, terms); err != nil {
			return err
		}
		if fd.metrics != nil {
			fd.metrics.FieldsFlushed.Inc()
		}
	}
	return writer.End()
}

func (fd *FieldsData) reset() {
	fd.bytePool.Reset()
	fd.intPool.Reset()
	fd.fields = make(map[string]*FieldAccumulator)
	fd.names = nil
}

// FieldNames returns the set of field names emplaced so far, in
// insertion order (supplemented accessor; useful for tests and
// diagnostics, not part of the write/flush path itself).
func (fd *FieldsData) FieldNames() []string {
	out := make([]string, len(fd.names))
	copy(out, fd.names)
	return out
}
