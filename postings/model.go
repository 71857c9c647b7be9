// Package postings implements the field accumulator: the per-field
// state machine that turns one document's token stream into encoded
// posting streams inside a shared byte pool, plus the term dictionary
// and replay iterators that read those streams back in sorted term
// order at flush time.
//
// It is grounded on golucene's indexing chain
// (core/index/termsHashConsumer*.go, core/index/invert.go,
// core/index/dwpt.go): FieldAccumulator plays the role of
// FreqProxTermsWriterPerField, FieldsData plays
// DocumentsWriterPerThread, and FieldInvertState is carried over near
// verbatim from core/index/invert.go's DocInvertState port.
package postings

import "math"

// Sentinels, spec §6.
const (
	DocIDInvalid uint32 = 0
	DocIDEOF     uint32 = math.MaxUint32
	PosInvalid   uint32 = math.MaxUint32
	PosEOF       uint32 = math.MaxUint32
	PosMaxValid  uint32 = math.MaxUint32 - 1
)

// FeatureSet is a union of the per-field feature flags spec §3 defines:
// {frequency, position, offset, payload, norm}.
type FeatureSet uint8

const (
	FeatureFrequency FeatureSet = 1 << iota
	FeaturePosition
	FeatureOffset
	FeaturePayload
	FeatureNorm
)

// Has reports whether every bit of want is set in fs.
func (fs FeatureSet) Has(want FeatureSet) bool { return fs&want == want }

// With returns fs with every bit of add also set.
func (fs FeatureSet) With(add FeatureSet) FeatureSet { return fs | add }

func (fs FeatureSet) String() string {
	names := []struct {
		bit  FeatureSet
		name string
	}{
		{FeatureFrequency, "freq"},
		{FeaturePosition, "pos"},
		{FeatureOffset, "offset"},
		{FeaturePayload, "payload"},
		{FeatureNorm, "norm"},
	}
	out := ""
	for _, n := range names {
		if fs.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// TokenStream is the external, analysis-side collaborator consumed by
// FieldAccumulator.Invert (spec §6, "Token stream (consumed)"). Next
// advances to the next token, returning false once exhausted (mirroring
// golucene's AttributeSource-driven token iteration in
// core/analysis/tokenattributes, simplified to the four attributes the
// core actually reads).
type TokenStream interface {
	Next() bool
	// Term returns the current token's term bytes. Required: Invert
	// fails if this is ever empty on a token Next() accepted.
	Term() []byte
	// PositionIncrement returns the current token's position increment.
	// Required; zero means "overlaps the previous position."
	PositionIncrement() uint32
	// Offset returns the current token's document-local (start, end)
	// span, if the token stream tracks offsets.
	Offset() (start, end uint32, ok bool)
	// Payload returns the current token's payload bytes, if any.
	Payload() []byte
}

// NormHandle identifies a per-field norm column allocated lazily by
// FieldAccumulator.Norms. NormHandleInvalid (-1) marks a field without
// a norm column; the zero value is a valid column id.
type NormHandle int

// NormHandleInvalid indicates a field never requested a norm column.
const NormHandleInvalid NormHandle = -1

// ColumnAppender returns a per-document output stream for norm bytes,
// spec §6 "Column store writer".
type ColumnAppender interface {
	Append(docID uint32) (WriteCloser, error)
}

// WriteCloser is the minimal per-document norm output surface.
type WriteCloser interface {
	Write([]byte) (int, error)
	Close() error
}

// ColumnWriter is the external column-store collaborator: PushColumn
// allocates a new column and returns a handle to append documents to
// it (spec §6, "Column store writer (produced via push_column)").
type ColumnWriter interface {
	PushColumn(name string) (columnID int, appender ColumnAppender, err error)
}

// FieldWriter is the external segment-level collaborator flush() hands
// each field's term iterator to (spec §6, "Field writer (produced)").
type FieldWriter interface {
	Write(name string, norm NormHandle, features FeatureSet, terms *TermIterator) error
	End() error
}

// DocMap is the external doc-id remapping collaborator (spec §6,
// "Doc-id remapping"). Get returns DocIDEOF for a dropped document.
type DocMap interface {
	Min() uint32
	Get(oldIDMinusMin uint32) uint32
}
