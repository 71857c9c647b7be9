package postings

import "github.com/irsgo/iresearch/bytepool"

// Record is the per-term, per-field posting state (spec §3, "Posting
// Record"). It is the scalar analogue of golucene's
// FreqProxPostingsArray (core/index/termsHashConsumerPerField.go),
// which keeps the same five fields — termFreqs, lastDocIDs,
// lastDocCodes, lastPositions, lastOffsets — as parallel arrays indexed
// by term ordinal for cache locality. This module keeps one struct per
// term instead: the byte/int pools already give term data pool
// locality, and a struct is far simpler to reason about against the
// invariants in spec §3.
type Record struct {
	// IntStart is the base offset into the int pool; IntStart..IntStart+3
	// hold, in order, the freq-stream write cursor, the prox-stream
	// write cursor, the freq-stream begin offset, and the prox-stream
	// begin offset (spec §3).
	IntStart int

	// Doc is the last document id for which a posting was recorded.
	Doc uint32
	// Freq is the term frequency in the current document.
	Freq uint32
	// Pos is the last written position within the current document.
	Pos uint32
	// Offs is the last written start offset within the current document.
	Offs uint32
	// DocCode is the pending encoded doc delta for Doc, not yet flushed
	// to the freq stream (spec §3, "doc_code").
	DocCode uint64
}

const (
	intSlotFreqCursor = 0
	intSlotProxCursor = 1
	intSlotFreqBegin  = 2
	intSlotProxBegin  = 3
	intSlotsPerTerm   = 4
)

// FreqCursor, ProxCursor, FreqBegin, ProxBegin read the four cursor ints
// for this term out of ip.
func (r *Record) FreqCursor(ip *bytepool.IntPool) int64 { return ip.Get(r.IntStart + intSlotFreqCursor) }
func (r *Record) ProxCursor(ip *bytepool.IntPool) int64 { return ip.Get(r.IntStart + intSlotProxCursor) }
func (r *Record) FreqBegin(ip *bytepool.IntPool) int64  { return ip.Get(r.IntStart + intSlotFreqBegin) }
func (r *Record) ProxBegin(ip *bytepool.IntPool) int64  { return ip.Get(r.IntStart + intSlotProxBegin) }

func (r *Record) setFreqCursor(ip *bytepool.IntPool, v int64) { ip.Set(r.IntStart+intSlotFreqCursor, v) }
func (r *Record) setProxCursor(ip *bytepool.IntPool, v int64) { ip.Set(r.IntStart+intSlotProxCursor, v) }
func (r *Record) setFreqBegin(ip *bytepool.IntPool, v int64)  { ip.Set(r.IntStart+intSlotFreqBegin, v) }
func (r *Record) setProxBegin(ip *bytepool.IntPool, v int64)  { ip.Set(r.IntStart+intSlotProxBegin, v) }
