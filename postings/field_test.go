package postings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irsgo/iresearch/bytepool"
)

func newTestField(t *testing.T) *FieldAccumulator {
	t.Helper()
	return NewFieldAccumulator("f", bytepool.New(), bytepool.NewIntPool(), false, false, nil, nil)
}

func TestInvertToleratesZeroIncrementMidStream(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(
		fakeToken{Term: "x", Increment: 1},
		fakeToken{Term: "x", Increment: 0}, // position stays the same, not a regression
	)
	require.True(t, f.Invert(ts, FeaturePosition, 1))
}

func TestInvertRejectsPositionEOFSentinel(t *testing.T) {
	// An increment that lands exactly on the eof sentinel is rejected
	// (spec §4.4: "pos >= pos_eof_sentinel").
	f := newTestField(t)
	ts := newFakeTokenStream(
		fakeToken{Term: "x", Increment: 1}, // pos 0
		fakeToken{Term: "x", Increment: PosEOF},
	)
	assert.False(t, f.Invert(ts, FeaturePosition, 1))
}

func TestInvertRejectsEmptyTerm(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(fakeToken{Term: "", Increment: 1})
	assert.False(t, f.Invert(ts, FeatureFrequency, 1))
}

func TestInvertOverlapCountOnZeroIncrementFirstToken(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(fakeToken{Term: "x", Increment: 0})
	require.True(t, f.Invert(ts, FeaturePosition, 1))
	assert.Equal(t, uint32(1), f.OverlapCount())
	assert.Equal(t, uint32(0), f.state.pos) // spec §8: "pos becomes 0"
}

func TestInvertOverlapSequenceScenario3(t *testing.T) {
	// Scenario 3: increments [1,0,1] on term "x" -> positions 0,0,1.
	f := newTestField(t)
	ts := newFakeTokenStream(
		fakeToken{Term: "x", Increment: 1},
		fakeToken{Term: "x", Increment: 0},
		fakeToken{Term: "x", Increment: 1},
	)
	require.True(t, f.Invert(ts, FeaturePosition, 1))
	assert.Equal(t, uint32(1), f.OverlapCount())
	assert.Equal(t, uint32(3), f.StreamCount())
	assert.Equal(t, uint32(3), f.MaxTermFreq())
	assert.Equal(t, uint32(1), f.UniqueTermCount())
}

func TestInvertPositionImpliesFrequency(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(fakeToken{Term: "x", Increment: 1})
	require.True(t, f.Invert(ts, FeaturePosition, 1))
	assert.True(t, f.Features().Has(FeatureFrequency))
}

func TestInvertOffsetRegressionRejected(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(
		fakeToken{Term: "x", Increment: 1, Start: 5, End: 8, HasOffset: true},
		fakeToken{Term: "x", Increment: 1, Start: 2, End: 4, HasOffset: true},
	)
	assert.False(t, f.Invert(ts, FeatureOffset|FeaturePosition, 1))
}

func TestInvertOffsetEmptySpanAllowed(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(fakeToken{Term: "x", Increment: 1, Start: 3, End: 3, HasOffset: true})
	assert.True(t, f.Invert(ts, FeatureOffset|FeaturePosition, 1))
}

func TestInvertZeroLengthPayloadIsNoPayload(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(fakeToken{Term: "x", Increment: 1, Payload: []byte{}})
	require.True(t, f.Invert(ts, FeaturePosition, 1))
	assert.False(t, f.Features().Has(FeaturePayload))
}

func TestInvertZeroLengthPayloadPromotedWhenConfigured(t *testing.T) {
	f := NewFieldAccumulator("f", bytepool.New(), bytepool.NewIntPool(), false, true, nil, nil)
	ts := newFakeTokenStream(fakeToken{Term: "x", Increment: 1, Payload: []byte{}})
	require.True(t, f.Invert(ts, FeaturePosition, 1))
	assert.True(t, f.Features().Has(FeaturePayload))
}

func TestInvertPayloadObservedPromotesFeatureSet(t *testing.T) {
	f := newTestField(t)
	ts := newFakeTokenStream(fakeToken{Term: "x", Increment: 1, Payload: []byte("p")})
	require.True(t, f.Invert(ts, FeaturePosition, 1))
	assert.True(t, f.Features().Has(FeaturePayload))
}

func TestResetIdempotentForSameDoc(t *testing.T) {
	f := newTestField(t)
	f.Reset(1)
	f.state.length = 5
	f.Reset(1) // same doc id: no-op
	assert.Equal(t, uint32(5), f.state.length)
	f.Reset(2) // new doc: clears counters
	assert.Equal(t, uint32(0), f.state.length)
}
