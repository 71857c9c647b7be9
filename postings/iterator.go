package postings

import (
	"sort"

	"github.com/irsgo/iresearch/bytepool"
	"github.com/irsgo/iresearch/vint"
)

// PositionSeq is the read surface a document's decoded occurrences
// present, shared by PosIterator and the fully-materialized positions
// SortingDocIterator replays (spec §4.6, "pos_iterator").
type PositionSeq interface {
	Next() bool
	Pos() uint32
	Payload() []byte
	Offset() (start, end uint32)
}

// DocSeq is the common surface both DocIterator and SortingDocIterator
// present to a FieldWriter (spec §4.6).
type DocSeq interface {
	Next() bool
	Doc() uint32
	Freq() uint32
	Positions() PositionSeq
}

// TermIterator walks a term dictionary in sorted order (spec §4.6). It
// is the object flush() hands the external FieldWriter.
type TermIterator struct {
	pool    *bytepool.Pool
	intPool *bytepool.IntPool
	terms   []*dictEntry
	idx     int

	trackFreq, trackPos, trackOffset bool
	remap                            DocMap // nil unless a doc-id remap was requested
}

// NewTermIterator returns an iterator over dict's terms in sorted
// order, decoding postings for features indicated by trackFreq,
// trackPos, trackOffset. remap may be nil.
func NewTermIterator(dict *TermDictionary, pool *bytepool.Pool, intPool *bytepool.IntPool, trackFreq, trackPos, trackOffset bool, remap DocMap) *TermIterator {
	return &TermIterator{
		pool:        pool,
		intPool:     intPool,
		terms:       dict.Sorted(),
		trackFreq:   trackFreq,
		trackPos:    trackPos,
		trackOffset: trackOffset,
		remap:       remap,
	}
}

// Min and Max return the smallest/largest term bytes across the whole
// iteration, or nil if empty (spec §4.6).
func (t *TermIterator) Min() []byte {
	if len(t.terms) == 0 {
		return nil
	}
	return t.terms[0].ref.bytes(t.pool)
}

func (t *TermIterator) Max() []byte {
	if len(t.terms) == 0 {
		return nil
	}
	return t.terms[len(t.terms)-1].ref.bytes(t.pool)
}

// Next advances to the next term, returning false once exhausted.
func (t *TermIterator) Next() bool {
	if t.idx >= len(t.terms) {
		return false
	}
	t.idx++
	return true
}

// Term returns the current term's bytes.
func (t *TermIterator) Term() []byte {
	return t.terms[t.idx-1].ref.bytes(t.pool)
}

// Postings constructs a fresh doc iterator for the current term (spec
// §4.6: "yields a fresh doc_iterator on request"), wrapped in a
// sorting_doc_iterator when a doc-id remap was requested.
func (t *TermIterator) Postings() DocSeq {
	rec := t.terms[t.idx-1].record
	freqBegin := rec.FreqBegin(t.intPool)
	freqEnd := rec.FreqCursor(t.intPool)
	proxBegin := rec.ProxBegin(t.intPool)
	proxEnd := rec.ProxCursor(t.intPool)

	it := newDocIterator(t.pool, rec, freqBegin, freqEnd, proxBegin, proxEnd, t.trackFreq, t.trackPos, t.trackOffset)
	if t.remap == nil {
		return it
	}
	return newSortingDocIterator(it, t.remap)
}

type docIterState int

const (
	docStreaming docIterState = iota
	docExhausted
)

// DocIterator replays one term's freq stream (spec §4.6, "doc_iterator").
// The freq stream holds every document up through the second-to-last one
// ever seen for this term, written as forward deltas starting from an
// implicit zero; the Record itself holds only the pending posting for
// the single most recent, not-yet-superseded document. Next() must
// therefore drain the freq stream first and emit the pending posting
// last, on the call that first observes the stream at eof — reading it
// any other order would emit doc ids out of the strictly increasing
// order spec §8 requires.
//
// The prox stream is one flat, doc-ordered concatenation of every
// occurrence ever written for the term; PosIterator holds a single
// reader over its whole span and simply keeps reading forward as
// DocIterator advances from one document to the next, so it must be
// driven to completion (via Next() until false) before the caller
// moves on, exactly mirroring how the writer laid the stream down.
type DocIterator struct {
	rec *Record

	trackFreq bool

	state docIterState
	r     *bytepool.SliceReader

	doc  uint32
	freq uint32
	pos  *PosIterator
}

func newDocIterator(pool *bytepool.Pool, rec *Record, freqBegin, freqEnd, proxBegin, proxEnd int64, trackFreq, trackPos, trackOffset bool) *DocIterator {
	d := &DocIterator{
		rec:       rec,
		trackFreq: trackFreq,
		state:     docStreaming,
		r:         bytepool.NewSliceReader(pool, freqBegin, freqEnd),
	}
	if trackPos {
		d.pos = newPosIterator(pool, proxBegin, proxEnd, trackOffset)
	}
	return d
}

// Next advances to the next document for this term, returning false
// once exhausted. It decodes forward through the freq stream, then
// emits the still-pending posting exactly once, on the call that finds
// the stream already at eof.
func (d *DocIterator) Next() bool {
	if d.state == docExhausted {
		return false
	}
	if d.r.EOF() {
		d.state = docExhausted
		d.doc = d.rec.Doc
		d.freq = 0
		if d.trackFreq {
			d.freq = d.rec.Freq
		}
		if d.pos != nil {
			d.pos.beginDoc(d.freq)
		}
		return true
	}
	var delta uint32
	if d.trackFreq {
		packed, err := vint.ReadVInt64(d.r)
		if err != nil {
			d.state = docExhausted
			return false
		}
		isOne, rawDelta := vint.ShiftUnpack64(packed)
		delta = uint32(rawDelta)
		if isOne {
			d.freq = 1
		} else {
			f, err := vint.ReadVInt32(d.r)
			if err != nil {
				d.state = docExhausted
				return false
			}
			d.freq = f
		}
	} else {
		v, err := vint.ReadVInt32(d.r)
		if err != nil {
			d.state = docExhausted
			return false
		}
		delta = v
		d.freq = 0
	}
	d.doc += delta
	if d.pos != nil {
		d.pos.beginDoc(d.freq)
	}
	return true
}

// Doc returns the current (already delta-decoded) document id.
func (d *DocIterator) Doc() uint32 { return d.doc }

// Freq returns the current document's term frequency (0 if frequency
// is not tracked for this field).
func (d *DocIterator) Freq() uint32 { return d.freq }

// Positions returns the position iterator for the current document,
// nil unless positions are tracked.
func (d *DocIterator) Positions() PositionSeq {
	if d.pos == nil {
		return nil
	}
	return d.pos
}

// Seek advances via repeated Next() until reaching a document id >=
// target or exhaustion (spec §4.6, "seek(d) performs linear next").
func (d *DocIterator) Seek(target uint32) bool {
	for {
		if !d.Next() {
			return false
		}
		if d.doc >= target {
			return true
		}
	}
}

type posIterState int

const (
	posFresh posIterState = iota
	posMid
	posExhausted
)

// PosIterator replays occurrences from one term's prox stream in doc
// order (spec §4.6, "pos_iterator"). One instance spans the whole
// stream; beginDoc rearms it for the next document's occurrences
// without moving the underlying reader.
type PosIterator struct {
	trackOffset bool

	r      *bytepool.SliceReader
	state  posIterState
	remain uint32

	pos     uint32
	start   uint32
	end     uint32
	payload []byte
}

func newPosIterator(pool *bytepool.Pool, begin, end int64, trackOffset bool) *PosIterator {
	return &PosIterator{
		trackOffset: trackOffset,
		r:           bytepool.NewSliceReader(pool, begin, end),
		state:       posFresh,
	}
}

// beginDoc rearms the iterator for a new document's count occurrences,
// resetting the document-local position/offset baselines to zero
// (spec §4.3: pos_delta and start_delta are both document-local).
func (p *PosIterator) beginDoc(count uint32) {
	p.state = posFresh
	p.remain = count
	p.pos = 0
	p.start = 0
}

// Next decodes the next occurrence, returning false once every
// occurrence for the current document has been consumed.
func (p *PosIterator) Next() bool {
	if p.remain == 0 {
		p.state = posExhausted
		return false
	}
	packed, err := vint.ReadVInt32(p.r)
	if err != nil {
		p.state = posExhausted
		return false
	}
	hasPayload, delta := vint.ShiftUnpack32(packed)
	p.pos += delta

	p.payload = nil
	if hasPayload {
		n, err := vint.ReadVInt32(p.r)
		if err != nil {
			p.state = posExhausted
			return false
		}
		buf := make([]byte, n)
		if err := p.r.ReadBytes(buf); err != nil {
			p.state = posExhausted
			return false
		}
		p.payload = buf
	}

	if p.trackOffset {
		startDelta, err := vint.ReadVInt32(p.r)
		if err != nil {
			p.state = posExhausted
			return false
		}
		length, err := vint.ReadVInt32(p.r)
		if err != nil {
			p.state = posExhausted
			return false
		}
		p.start += startDelta
		p.end = p.start + length
	}

	p.remain--
	p.state = posMid
	return true
}

// Pos, Payload, Offset expose the current occurrence's decoded fields.
func (p *PosIterator) Pos() uint32     { return p.pos }
func (p *PosIterator) Payload() []byte { return p.payload }
func (p *PosIterator) Offset() (start, end uint32) { return p.start, p.end }

// EOF reports whether this document's occurrences are exhausted (spec
// §4.6, "yield EOF sentinel").
func (p *PosIterator) EOF() bool { return p.remain == 0 && p.state != posFresh }

// decodedOccurrence is one fully materialized position/payload/offset
// tuple, used by SortingDocIterator (spec §4.6: "must fully decode
// before re-emitting").
type decodedOccurrence struct {
	pos     uint32
	start   uint32
	end     uint32
	payload []byte
}

// sortEntry is one materialized (new_doc, freq, positions) tuple for
// the sorting doc iterator.
type sortEntry struct {
	newDoc    uint32
	freq      uint32
	positions []decodedOccurrence
}

// SortingDocIterator materializes every (new_doc, freq) pair from an
// underlying DocIterator through a doc-id remap, drops dropped
// documents, and replays them sorted ascending by new doc id (spec
// §4.6, "sorting_doc_iterator"). Position data is not remapped
// (positions are document-local); because remapping destroys
// doc-delta encoding, this requires full materialization up front.
type SortingDocIterator struct {
	entries []sortEntry
	idx     int
	cur     sortEntry
}

func newSortingDocIterator(underlying *DocIterator, remap DocMap) *SortingDocIterator {
	s := &SortingDocIterator{}
	min := remap.Min()
	for underlying.Next() {
		old := underlying.Doc()
		newID := remap.Get(old - min)
		if newID == DocIDEOF {
			// Still must drain this document's positions so the shared
			// prox reader stays aligned for the next document.
			if pos := underlying.Positions(); pos != nil {
				for pos.Next() {
				}
			}
			continue
		}
		e := sortEntry{newDoc: newID, freq: underlying.Freq()}
		if pos := underlying.Positions(); pos != nil {
			for pos.Next() {
				start, end := pos.Offset()
				e.positions = append(e.positions, decodedOccurrence{
					pos: pos.Pos(), start: start, end: end, payload: pos.Payload(),
				})
			}
		}
		s.entries = append(s.entries, e)
	}
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].newDoc < s.entries[j].newDoc })
	return s
}

// Next advances to the next (remapped, sorted) document.
func (s *SortingDocIterator) Next() bool {
	if s.idx >= len(s.entries) {
		return false
	}
	s.cur = s.entries[s.idx]
	s.idx++
	return true
}

// Doc and Freq return the current entry's remapped document id and
// frequency.
func (s *SortingDocIterator) Doc() uint32  { return s.cur.newDoc }
func (s *SortingDocIterator) Freq() uint32 { return s.cur.freq }

// Positions replays the current entry's already-decoded occurrences.
func (s *SortingDocIterator) Positions() PositionSeq {
	return &materializedPositions{occurrences: s.cur.positions}
}

// materializedPositions implements PositionSeq over a decoded slice.
type materializedPositions struct {
	occurrences []decodedOccurrence
	idx         int
}

func (m *materializedPositions) Next() bool {
	if m.idx >= len(m.occurrences) {
		return false
	}
	m.idx++
	return true
}

func (m *materializedPositions) Pos() uint32     { return m.occurrences[m.idx-1].pos }
func (m *materializedPositions) Payload() []byte { return m.occurrences[m.idx-1].payload }
func (m *materializedPositions) Offset() (uint32, uint32) {
	o := m.occurrences[m.idx-1]
	return o.start, o.end
}
