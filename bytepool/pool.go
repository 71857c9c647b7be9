// Package bytepool implements the two slab allocators the field
// accumulator builds posting streams on top of: a byte pool that also
// supports sliced logical byte streams chained through fixed-capacity
// slices, and an int pool used to hold per-term stream cursors.
//
// The design mirrors golucene's core/util/byteBlockPool.go and
// core/index/byteSliceReader.go, both of which describe (in comments,
// mostly unimplemented) the same slice-chaining scheme Lucene itself
// uses: slices grow through a fixed geometric level table, and each
// slice reserves trailing bytes for a level marker and a forward
// pointer to the next slice in its chain. A writer resuming from
// nothing but a bare absolute cursor recovers the current level by
// peeking the byte at that cursor: while inside a slice's data region
// that byte is always still zero (a fresh, never-written block), and
// only becomes non-zero once the cursor reaches the marker byte
// pre-set at slice-creation time. That single trick is what lets the
// posting record's int-pool entry be a bare int64 cursor rather than a
// (cursor, level) pair.
package bytepool

import "fmt"

// BlockSize is the size of one byte-pool block. Recommended by the spec
// at 32 KiB.
const BlockSize = 32 << 10

const blockShift = 15 // 1<<15 == 32768 == BlockSize

func init() {
	if 1<<blockShift != BlockSize {
		panic("bytepool: blockShift out of sync with BlockSize")
	}
}

const blockMask = BlockSize - 1

// Each slice reserves its final reservedBytes for bookkeeping: one byte
// holds (level+1), the following 4 bytes hold the absolute offset (as a
// uint32) of the next slice in the chain. A uint32 chain pointer bounds
// any single in-memory segment's byte pool at 4 GiB, which is far past
// any realistic in-memory segment; it is an implementation choice, not
// a change to the spec's notion of an absolute offset being externally
// a 64-bit position (Append/AllocSlice/cursors are all int64).
const (
	markerBytes  = 1
	pointerBytes = 4
	reservedBytes = markerBytes + pointerBytes
)

// levelSizes is the fixed slice-size table from spec §4.1. The last
// level is self-referential: once a stream reaches it, every further
// slice it allocates is again of that size.
var levelSizes = [...]int{9, 18, 18, 36, 36, 72, 72, 144, 144, 200}

func levelSize(level int) int {
	if level >= len(levelSizes) {
		level = len(levelSizes) - 1
	}
	return levelSizes[level]
}

func levelDataCap(level int) int { return levelSize(level) - reservedBytes }

func nextLevel(level int) int {
	if level+1 >= len(levelSizes) {
		return len(levelSizes) - 1
	}
	return level + 1
}

// Pool is an append-only slab allocator of fixed-size blocks. It hands
// out absolute 64-bit offsets into the conceptual concatenation of all
// blocks it owns; consumers never see block boundaries. A single slice
// never straddles a block: slices are small relative to BlockSize, so a
// slice that would overflow the current block simply starts the next
// one instead.
type Pool struct {
	blocks [][]byte
	upto   int // write cursor within the current (last) block

	// OnNewBlock, if set, is called after every later block allocation.
	// The block New allocates exists before the hook can be set and is
	// not reported, and Reset keeps it. Used by FieldsData to drive
	// the iresearch_bytepool_blocks_allocated_total counter.
	OnNewBlock func()

	// OnOversizeAppend, if set, is called with the offending length just
	// before Append panics on input wider than one block. Used by
	// FieldsData to record the fatal-for-this-segment diagnostic (spec
	// §7 level 4) before the panic unwinds.
	OnOversizeAppend func(size int)
}

// New returns an empty Pool.
func New() *Pool {
	p := &Pool{}
	p.newBlock()
	return p
}

func (p *Pool) newBlock() {
	p.blocks = append(p.blocks, make([]byte, BlockSize))
	p.upto = 0
	if p.OnNewBlock != nil {
		p.OnNewBlock()
	}
}

// Reset drops every block but the first and rewinds the write cursor,
// reproducing the pool's state as if it had just been created. Called
// when the owning segment is flushed (spec §3, "Byte pool ... lifecycle").
func (p *Pool) Reset() {
	if len(p.blocks) == 0 {
		p.newBlock()
		return
	}
	first := p.blocks[0]
	for i := range first {
		first[i] = 0
	}
	p.blocks = p.blocks[:1]
	p.upto = 0
}

func (p *Pool) blockIndex(offset int64) int      { return int(offset >> blockShift) }
func (p *Pool) blockOffset(offset int64) int     { return int(offset) & blockMask }
func (p *Pool) absolute(block, offset int) int64 { return int64(block)<<blockShift + int64(offset) }

func (p *Pool) blockFor(offset int64) []byte { return p.blocks[p.blockIndex(offset)] }

// Append writes b into the pool, allocating a new block first if b would
// straddle the current one, and returns the absolute offset of the
// first byte written. Used for data with no slicing/chaining needs,
// such as interned term bytes (spec §3, "Term Dictionary").
func (p *Pool) Append(b []byte) int64 {
	if len(b) > BlockSize {
		if p.OnOversizeAppend != nil {
			p.OnOversizeAppend(len(b))
		}
		panic(fmt.Sprintf("bytepool: append of %d bytes exceeds block size %d", len(b), BlockSize))
	}
	if p.upto+len(b) > BlockSize {
		p.newBlock()
	}
	block := p.blocks[len(p.blocks)-1]
	start := p.absolute(len(p.blocks)-1, p.upto)
	copy(block[p.upto:], b)
	p.upto += len(b)
	return start
}

// ByteAt returns the single byte at offset, for callers (such as the
// term dictionary) that hold a (offset, length) reference into the pool.
func (p *Pool) ByteAt(offset int64) byte {
	return p.blockFor(offset)[p.blockOffset(offset)]
}

// Slice returns a copy of the length bytes starting at offset. Used to
// reconstruct interned term bytes from a pool reference.
func (p *Pool) Slice(offset int64, length int) []byte {
	out := make([]byte, length)
	block := p.blockFor(offset)
	o := p.blockOffset(offset)
	copy(out, block[o:o+length])
	return out
}

// allocSliceAt mints a slice of the given level, writes its trailing
// marker byte, and returns the absolute offset of the first byte of its
// data region (i.e. the initial write cursor for the stream).
func (p *Pool) allocSliceAt(level int) int64 {
	size := levelSize(level)
	if p.upto+size > BlockSize {
		p.newBlock()
	}
	start := p.absolute(len(p.blocks)-1, p.upto)
	block := p.blocks[len(p.blocks)-1]
	markerAt := p.upto + levelDataCap(level)
	block[markerAt] = byte(level + 1)
	p.upto += size
	return start
}

// AllocSlice mints a fresh sliced stream at level 0 and returns the
// absolute offset of its first byte, i.e. the stream's initial write
// cursor (spec §4.1).
func (p *Pool) AllocSlice() int64 {
	return p.allocSliceAt(0)
}

func (p *Pool) putUint32At(offset int64, v uint32) {
	block := p.blockFor(offset)
	o := p.blockOffset(offset)
	block[o] = byte(v)
	block[o+1] = byte(v >> 8)
	block[o+2] = byte(v >> 16)
	block[o+3] = byte(v >> 24)
}

func (p *Pool) uint32At(offset int64) uint32 {
	block := p.blockFor(offset)
	o := p.blockOffset(offset)
	return uint32(block[o]) | uint32(block[o+1])<<8 | uint32(block[o+2])<<16 | uint32(block[o+3])<<24
}
