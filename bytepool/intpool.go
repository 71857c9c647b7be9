package bytepool

// IntBlockSize is the number of int64 slots per int-pool block.
const IntBlockSize = 1 << 12 // 4096 slots == 32 KiB

// IntPool is a slab allocator shaped like Pool but typed as integers
// rather than bytes, and never sliced/chained: it stores per-term
// cursors into the byte pool (spec §3, "Int Pool"). golucene's own
// core/util/intBlockPool.go describes this same "pool for int blocks
// similar to ByteBlockPool" but never got past a stub; this fills it in
// against the byte pool actually built here.
type IntPool struct {
	blocks [][]int64
	upto   int
}

// NewIntPool returns an empty IntPool.
func NewIntPool() *IntPool {
	p := &IntPool{}
	p.newBlock()
	return p
}

func (p *IntPool) newBlock() {
	p.blocks = append(p.blocks, make([]int64, IntBlockSize))
	p.upto = 0
}

// Reset drops every block but the first and rewinds the write cursor.
func (p *IntPool) Reset() {
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

// Alloc reserves n contiguous slots (never straddling a block) and
// returns their base index, addressable via Get/Set.
func (p *IntPool) Alloc(n int) int {
	if p.upto+n > IntBlockSize {
		p.newBlock()
	}
	base := (len(p.blocks)-1)*IntBlockSize + p.upto
	p.upto += n
	return base
}

func (p *IntPool) locate(index int) (block []int64, offset int) {
	return p.blocks[index/IntBlockSize], index % IntBlockSize
}

// Get returns the value stored at index.
func (p *IntPool) Get(index int) int64 {
	block, o := p.locate(index)
	return block[o]
}

// Set stores v at index.
func (p *IntPool) Set(index int, v int64) {
	block, o := p.locate(index)
	block[o] = v
}
