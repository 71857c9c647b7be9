package postings

// invertState tracks the per-document position/offset/length bookkeeping
// used while driving one token stream through FieldAccumulator.Invert,
// ported from golucene's FieldInvertState (core/index/invert.go), which
// itself tracks "the number and position/offset parameters of terms
// being added to the index... also used to calculate the normalization
// factor for a field."
type invertState struct {
	pos         uint32 // current position, spec §4.4/§9 reset sentinel trick
	length      uint32 // total tokens seen this document
	numOverlap  uint32 // tokens with a zero position increment
	maxTermFreq uint32
	uniqueTerms uint32
}

// reset begins a new document. pos is set to the all-ones sentinel so
// that the first non-zero increment wraps into the intended first
// position (spec §9): a first increment of 1 yields pos == 0 without a
// special case.
func (s *invertState) reset() {
	s.pos = PosInvalid // all-ones sentinel; wraps on first increment
	s.length = 0
	s.numOverlap = 0
	s.maxTermFreq = 0
	s.uniqueTerms = 0
}
