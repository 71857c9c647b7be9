package postings

import (
	"go.uber.org/zap"

	"github.com/irsgo/iresearch/bytepool"
	"github.com/irsgo/iresearch/internal/telemetry"
	"github.com/irsgo/iresearch/vint"
)

// FieldAccumulator is the per-field state machine that consumes one
// document's TokenStream and encodes it into the freq/prox streams
// (spec §4.4). It plays the role golucene's FreqProxTermsWriterPerField
// plays in core/index/termsHashConsumerPerField.go: own the term
// dictionary lookups, the per-document invariant checks, and the
// deferred doc_code bookkeeping described in spec §3.
type FieldAccumulator struct {
	name          string
	dict          *TermDictionary
	bytePool      *bytepool.Pool
	intPool       *bytepool.IntPool
	sliceW        *bytepool.SliceWriter
	legacyOffsets bool

	// promoteZeroLengthPayload, when true, treats a zero-length payload
	// as "payload observed" for feature-set promotion instead of the
	// spec §8 boundary rule (SPEC_FULL.md, Config.PromoteZeroLengthPayload).
	promoteZeroLengthPayload bool

	features FeatureSet // running union across every Invert call

	hasDoc     bool
	docID      uint32
	firstToken bool
	state      invertState

	offsBase       uint32 // field-local offset baseline, spec §9
	lastTokenEnd   uint32 // end of the most recently accepted token, this document
	lastFieldStart uint32

	normHandle   NormHandle
	normAppender ColumnAppender

	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewFieldAccumulator returns an empty accumulator for name, sharing
// bytePool/intPool with the rest of the owning FieldsData set.
// legacyOffsets selects the spec §9 open-question resolution: false
// (default) resets offs_base to zero every document; true carries it
// forward across documents. promoteZeroLengthPayload overrides the spec
// §8 boundary rule that a zero-length payload never promotes the
// feature set. A nil logger becomes a no-op logger; a nil metrics
// handle disables the invert_rejected counter.
func NewFieldAccumulator(name string, bytePool *bytepool.Pool, intPool *bytepool.IntPool, legacyOffsets, promoteZeroLengthPayload bool, logger *zap.Logger, metrics *telemetry.Metrics) *FieldAccumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldAccumulator{
		name:                     name,
		dict:                     NewTermDictionary(bytePool),
		bytePool:                 bytePool,
		intPool:                  intPool,
		sliceW:                   bytepool.NewSliceWriter(bytePool),
		legacyOffsets:            legacyOffsets,
		promoteZeroLengthPayload: promoteZeroLengthPayload,
		normHandle:               NormHandleInvalid,
		logger:                   logger,
		metrics:                  metrics,
	}
}

// reject logs a level 1-3 invert rejection (spec §7) and always
// returns false, letting Invert write `return f.reject(err)`.
func (f *FieldAccumulator) reject(err error) bool {
	f.logger.Warn("invert rejected", zap.String("field", f.name), zap.Error(err))
	if f.metrics != nil {
		f.metrics.InvertRejected.WithLabelValues(f.name).Inc()
	}
	return false
}

// Name returns the field name.
func (f *FieldAccumulator) Name() string { return f.name }

// Features returns the running union of feature sets passed to Invert.
func (f *FieldAccumulator) Features() FeatureSet { return f.features }

// Dictionary exposes the term dictionary for flush.
func (f *FieldAccumulator) Dictionary() *TermDictionary { return f.dict }

// MaxTermFreq returns the maximum term frequency observed in the most
// recently inverted document (supplemented feature, ambient to any norm
// computation a caller performs immediately after Invert returns).
func (f *FieldAccumulator) MaxTermFreq() uint32 { return f.state.maxTermFreq }

// UniqueTermCount returns the number of distinct terms seen in the most
// recently inverted document.
func (f *FieldAccumulator) UniqueTermCount() uint32 { return f.state.uniqueTerms }

// StreamCount returns the total token count of the most recently
// inverted document, including overlapping (zero-increment) tokens.
func (f *FieldAccumulator) StreamCount() uint32 { return f.state.length }

// OverlapCount returns the number of zero-position-increment tokens
// seen in the most recently inverted document.
func (f *FieldAccumulator) OverlapCount() uint32 { return f.state.numOverlap }

// Reset begins a new document for this field (spec §4.4). Idempotent
// when called twice with the same docID.
func (f *FieldAccumulator) Reset(docID uint32) {
	if f.hasDoc && f.docID == docID {
		return
	}
	f.hasDoc = true
	f.docID = docID
	f.firstToken = true
	f.lastFieldStart = 0
	f.lastTokenEnd = 0
	f.state.reset()
	if !f.legacyOffsets {
		f.offsBase = 0
	}
}

// Invert drives ts through the field's state machine for docID, adding
// or updating postings for every term it yields. It returns false the
// instant an invariant is violated (spec §7: reported as a single
// logical failure, no retry, no partial application beyond what was
// already written to the shared pools).
func (f *FieldAccumulator) Invert(ts TokenStream, features FeatureSet, docID uint32) bool {
	f.Reset(docID)
	f.features = f.features.With(features)

	trackPos := f.features.Has(FeaturePosition)
	if trackPos {
		// Invariant 4: tracking position implies tracking frequency.
		f.features = f.features.With(FeatureFrequency)
	}
	trackFreq := f.features.Has(FeatureFrequency)
	trackOffset := f.features.Has(FeatureOffset)

	for ts.Next() {
		term := ts.Term()
		if len(term) == 0 {
			return f.reject(ErrMissingAttribute)
		}
		if len(term) > bytepool.BlockSize {
			return f.reject(ErrPoolExhausted)
		}

		if f.state.length == PosMaxValid {
			return f.reject(ErrTokenCountOverflow)
		}
		f.state.length++

		inc := ts.PositionIncrement()
		var newPos uint32
		if f.firstToken && inc == 0 {
			// Boundary case (spec §8): a zero increment on the very
			// first token of a document cannot fall out of the
			// wraparound trick below (it would land back on the
			// sentinel itself), so it is special-cased to yield 0.
			newPos = 0
		} else {
			newPos = f.state.pos + inc // wraps intentionally, spec §9
		}
		if newPos >= PosEOF {
			// spec §7 level-3: reaching the eof sentinel is overflow, not
			// an ordering regression.
			return f.reject(ErrPositionOverflow)
		}
		if !f.firstToken && newPos < f.state.pos {
			return f.reject(ErrPositionRegressed)
		}
		if inc == 0 {
			f.state.numOverlap++
		}
		f.state.pos = newPos

		var start, end uint32
		hasOffset := false
		if trackOffset {
			s, e, ok := ts.Offset()
			if !ok {
				return f.reject(ErrMissingAttribute)
			}
			start, end = f.offsBase+s, f.offsBase+e
			if end < start {
				return f.reject(ErrOffsetRegressed)
			}
			if !f.firstToken && start < f.lastFieldStart {
				return f.reject(ErrOffsetRegressed)
			}
			f.lastFieldStart = start
			f.lastTokenEnd = end
			hasOffset = true
		}

		payload := ts.Payload()
		if len(payload) > 0 || (f.promoteZeroLengthPayload && payload != nil) {
			f.features = f.features.With(FeaturePayload)
		}

		hash := Hash(term)
		rec, fresh := f.dict.Emplace(term, hash)
		if fresh {
			f.state.uniqueTerms++
			f.newTerm(rec, docID, trackFreq, trackPos, trackOffset, payload, start, end, hasOffset)
		} else {
			f.addTerm(rec, docID, trackFreq, trackPos, trackOffset, payload, start, end, hasOffset)
		}
		if rec.Freq > f.state.maxTermFreq {
			f.state.maxTermFreq = rec.Freq
		}
		f.firstToken = false
	}

	if trackOffset && f.legacyOffsets {
		// field_data.cpp:780-782: offs_ += offs->end, the last token's
		// end, not the largest end seen this document.
		f.offsBase = f.lastTokenEnd
	}
	return true
}

// Norms lazily allocates this field's norm column via cw and returns
// its appender (spec §4.4, "norms"). Subsequent calls return the same
// appender.
func (f *FieldAccumulator) Norms(cw ColumnWriter) (ColumnAppender, error) {
	if f.normHandle == NormHandleInvalid {
		id, appender, err := cw.PushColumn(f.name)
		if err != nil {
			return nil, err
		}
		f.normHandle = NormHandle(id)
		f.normAppender = appender
		f.features = f.features.With(FeatureNorm)
	}
	return f.normAppender, nil
}

// newTerm allocates fresh freq/prox slices for a term seen for the
// first time anywhere in this field and writes its first posting
// (spec §3, "new_term").
func (f *FieldAccumulator) newTerm(rec *Record, doc uint32, trackFreq, trackPos, trackOffset bool, payload []byte, start, end uint32, hasOffset bool) {
	rec.IntStart = f.intPool.Alloc(intSlotsPerTerm)

	freqBegin := f.bytePool.AllocSlice()
	rec.setFreqBegin(f.intPool, freqBegin)
	rec.setFreqCursor(f.intPool, freqBegin)

	if trackPos {
		proxBegin := f.bytePool.AllocSlice()
		rec.setProxBegin(f.intPool, proxBegin)
		rec.setProxCursor(f.intPool, proxBegin)
	}

	rec.Doc = doc
	rec.DocCode = uint64(doc) // absolute id for the very first document, spec §3
	rec.Freq = 1
	rec.Pos = 0
	rec.Offs = 0

	if trackPos {
		f.writeProx(rec, f.state.pos, payload, trackOffset, start, end)
	}
	_ = hasOffset
	_ = trackFreq
}

// addTerm updates an existing term's Record, either continuing the
// current document (bump freq, append a prox record) or advancing to a
// new document (flush the pending doc_code/freq to the freq stream and
// start a fresh pending posting), per spec §3's "add_term".
func (f *FieldAccumulator) addTerm(rec *Record, doc uint32, trackFreq, trackPos, trackOffset bool, payload []byte, start, end uint32, hasOffset bool) {
	if rec.Doc != doc {
		f.flushFreq(rec, trackFreq)

		delta := uint64(doc - rec.Doc)
		rec.Doc = doc
		rec.DocCode = delta
		rec.Freq = 1
		rec.Pos = 0
		rec.Offs = 0
	} else {
		rec.Freq++
	}

	if trackPos {
		f.writeProx(rec, f.state.pos, payload, trackOffset, start, end)
	}
	_ = hasOffset
}

// flushFreq appends rec's still-pending doc_code (and, if tracked,
// term frequency) to the freq stream. The freq-is-one bit is computed
// here, from whatever rec.Freq ended up being while the doc_code sat
// pending (spec §3 invariant: "doc_code is valid only while the
// last-seen document has not yet been superseded").
func (f *FieldAccumulator) flushFreq(rec *Record, trackFreq bool) {
	cw := &cursorWriter{sw: f.sliceW, cur: rec.FreqCursor(f.intPool)}
	if trackFreq {
		packed := vint.ShiftPack64(rec.DocCode, rec.Freq == 1)
		vint.WriteVInt64(cw, packed)
		if rec.Freq > 1 {
			vint.WriteVInt32(cw, rec.Freq)
		}
	} else {
		vint.WriteVInt32(cw, uint32(rec.DocCode))
	}
	rec.setFreqCursor(f.intPool, cw.cur)
}

// writeProx appends one proximity record for the current token to
// rec's prox stream (spec §3, "Proximity Stream"): a shift-packed
// position delta with the has-payload flag, an optional payload
// length+bytes, and, if offsets are tracked, a start delta and a
// end-start length.
func (f *FieldAccumulator) writeProx(rec *Record, curPos uint32, payload []byte, trackOffset bool, start, end uint32) {
	cw := &cursorWriter{sw: f.sliceW, cur: rec.ProxCursor(f.intPool)}

	posDelta := curPos - rec.Pos
	hasPayload := len(payload) > 0
	vint.WriteVInt32(cw, vint.ShiftPack32(posDelta, hasPayload))
	if hasPayload {
		vint.WriteVInt32(cw, uint32(len(payload)))
		cw.cur = f.sliceW.WriteBytes(cw.cur, payload)
	}
	if trackOffset {
		vint.WriteVInt32(cw, start-rec.Offs)
		vint.WriteVInt32(cw, end-start)
		rec.Offs = start
	}
	rec.Pos = curPos

	rec.setProxCursor(f.intPool, cw.cur)
}
