package postings

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/irsgo/iresearch/bytepool"
)

// termRef is a (offset, length) reference into the byte pool that owns
// the storage for one interned term (spec §3, "Term Dictionary": "Term
// bytes are stored inside the byte pool; the dictionary holds
// references into it").
type termRef struct {
	offset int64
	length int
}

func (t termRef) bytes(pool *bytepool.Pool) []byte { return pool.Slice(t.offset, t.length) }

// TermDictionary is an ordered mapping from term bytes to Records, built
// as terms are observed (spec §3). Lookup is hash-based (grounded on
// golucene's core/util/bytesRefHash.go, which hashes into the byte pool
// the same way and only sorts once, at flush time); spec §4.5 leaves
// the hash function to the caller, so Emplace takes a pre-computed
// xxhash.
type TermDictionary struct {
	pool    *bytepool.Pool
	buckets map[uint64][]*dictEntry
	entries []*dictEntry // insertion order; sorted lazily by Sorted()
}

type dictEntry struct {
	ref    termRef
	record *Record
}

// NewTermDictionary returns an empty dictionary backed by pool.
func NewTermDictionary(pool *bytepool.Pool) *TermDictionary {
	return &TermDictionary{pool: pool, buckets: make(map[uint64][]*dictEntry)}
}

// Hash computes the caller-side hash spec §4.5 requires when interning
// a term ("Hash is computed by the caller").
func Hash(term []byte) uint64 { return xxhash.Sum64(term) }

// Emplace returns the Record for term, creating and interning it (into
// the byte pool) if this is the first time it has been seen. fresh
// reports whether a new Record was created.
func (d *TermDictionary) Emplace(term []byte, hash uint64) (rec *Record, fresh bool) {
	for _, e := range d.buckets[hash] {
		if bytesEqual(e.ref.bytes(d.pool), term) {
			return e.record, false
		}
	}
	offset := d.pool.Append(term)
	e := &dictEntry{
		ref:    termRef{offset: offset, length: len(term)},
		record: &Record{},
	}
	d.buckets[hash] = append(d.buckets[hash], e)
	d.entries = append(d.entries, e)
	return e.record, true
}

// Len returns the number of distinct terms interned.
func (d *TermDictionary) Len() int { return len(d.entries) }

// Sorted returns terms in lexicographic order (spec §3: "comparing byte
// sequences lexicographically (unsigned), with ties broken by length").
// The comparator matches golucene's core/util/bytesref.go
// UTF8SortedAsUnicodeLess.
func (d *TermDictionary) Sorted() []*dictEntry {
	out := make([]*dictEntry, len(d.entries))
	copy(out, d.entries)
	sort.Slice(out, func(i, j int) bool {
		return termLess(out[i].ref.bytes(d.pool), out[j].ref.bytes(d.pool))
	})
	return out
}

// Min and Max return the lexicographically smallest/largest interned
// term, or nil if the dictionary is empty (spec §4.6: "Exposes the
// minimum and maximum term bytes (nil when empty)").
func (d *TermDictionary) Min() []byte {
	sorted := d.Sorted()
	if len(sorted) == 0 {
		return nil
	}
	return sorted[0].ref.bytes(d.pool)
}

func (d *TermDictionary) Max() []byte {
	sorted := d.Sorted()
	if len(sorted) == 0 {
		return nil
	}
	return sorted[len(sorted)-1].ref.bytes(d.pool)
}

func termLess(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
