package bytepool

import "io"

// SliceWriter appends bytes into a sliced stream through nothing but a
// bare absolute cursor (spec §4.1: "a sliced inserter that writes bytes
// into a sliced stream starting at a caller-supplied absolute cursor
// and returns the new cursor after each write"). It has no state of its
// own: level and slice boundaries are recovered from the pool's bytes
// on every call, so many terms' streams can interleave writes through
// one shared Pool without a SliceWriter needing to remember which term
// it last served.
type SliceWriter struct {
	pool *Pool
}

// NewSliceWriter returns a writer over pool.
func NewSliceWriter(pool *Pool) *SliceWriter { return &SliceWriter{pool: pool} }

// WriteByte appends b at cursor, allocating and linking the next slice
// first if cursor has reached the current slice's reserved region, and
// returns the cursor to use for the following byte.
func (w *SliceWriter) WriteByte(cursor int64, b byte) int64 {
	block := w.pool.blockFor(cursor)
	o := w.pool.blockOffset(cursor)
	if marker := block[o]; marker != 0 {
		level := int(marker) - 1
		newLevel := nextLevel(level)
		next := w.pool.allocSliceAt(newLevel)
		w.pool.putUint32At(cursor+markerBytes, uint32(next))
		cursor = next
		block = w.pool.blockFor(cursor)
		o = w.pool.blockOffset(cursor)
	}
	block[o] = b
	return cursor + 1
}

// WriteBytes writes each byte of b in turn.
func (w *SliceWriter) WriteBytes(cursor int64, b []byte) int64 {
	for _, c := range b {
		cursor = w.WriteByte(cursor, c)
	}
	return cursor
}

// SliceReader reads forward from a begin offset until a caller-supplied
// end offset, transparently traversing forward pointers (spec §4.1). It
// always starts at level 0 and re-derives level purely by counting
// slice transitions, exactly mirroring how AllocSlice/SliceWriter
// advance levels, since every stream begins with AllocSlice() (level 0)
// and follows the same deterministic level table thereafter.
type SliceReader struct {
	pool *Pool

	level int
	pos   int64 // absolute read cursor
	limit int64 // absolute end of current slice's data region
	end   int64 // absolute end of the whole stream
}

// NewSliceReader constructs a reader over [begin, end) of pool. begin
// must be a value previously returned by AllocSlice: the reader treats
// it as the first byte of a level-0 slice. end is a cursor returned by
// a SliceWriter over the same stream.
func NewSliceReader(pool *Pool, begin, end int64) *SliceReader {
	r := &SliceReader{pool: pool, level: 0, pos: begin, end: end}
	r.limit = min64(end, begin+int64(levelDataCap(0)))
	return r
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// EOF reports whether the reader has consumed every byte up to end.
func (r *SliceReader) EOF() bool {
	return r.pos >= r.end
}

// advance jumps to the next slice in the chain when pos has reached the
// end of the current slice's data region but not yet the stream's end.
func (r *SliceReader) advance() {
	if r.pos < r.limit || r.pos >= r.end {
		return
	}
	next := int64(r.pool.uint32At(r.pos + markerBytes))
	r.level = nextLevel(r.level)
	r.pos = next
	r.limit = min64(r.end, next+int64(levelDataCap(r.level)))
}

// ReadByte reads and returns the next byte of the stream, implementing
// vint.ByteReader (and io.ByteReader). It returns io.EOF once the
// reader has consumed every byte up to its end offset.
func (r *SliceReader) ReadByte() (byte, error) {
	r.advance()
	if r.pos >= r.end {
		return 0, io.EOF
	}
	b := r.pool.ByteAt(r.pos)
	r.pos++
	return b, nil
}

// ReadBytes reads exactly len(dst) bytes into dst.
func (r *SliceReader) ReadBytes(dst []byte) error {
	for i := range dst {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		dst[i] = b
	}
	return nil
}
