// Command fieldsbench drives postings.FieldsData over synthetic
// documents and reports how many documents were accepted or rejected
// and, per field, the term and posting counts replayed at flush, the way
// a developer would sanity-check the accumulator end to end
// without wiring up a full segment writer. Flag handling follows
// _examples/gcbaptista-go-search-engine/cmd/search_engine/main.go's use
// of the standard flag package; nothing here justifies a third-party
// CLI framework the way an actual server entrypoint might.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/irsgo/iresearch"
	"github.com/irsgo/iresearch/postings"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file (optional; defaults are used if absent)")
		docs       = flag.Int("docs", 100, "number of synthetic documents to invert")
		vocab      = flag.Int("vocab", 50, "size of the synthetic vocabulary")
		maxTokens  = flag.Int("max-tokens", 40, "maximum tokens per document")
		field      = flag.String("field", "body", "field name to invert into")
		trackPos   = flag.Bool("positions", true, "track term positions")
		trackOff   = flag.Bool("offsets", false, "track term offsets")
		seed       = flag.Int64("seed", 1, "random seed for the synthetic corpus")
		verbose    = flag.Bool("v", false, "enable development logging (rejected Invert calls, per-field flush lines)")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("fieldsbench: building logger: %v", err)
		}
		logger = l
	}
	defer logger.Sync()

	cfg := iresearch.DefaultConfig()
	if *configPath != "" {
		loaded, err := iresearch.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("fieldsbench: loading config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	fd := iresearch.NewFieldsData(cfg, logger)

	features := postings.FeatureFrequency
	if *trackPos {
		features |= postings.FeaturePosition
	}
	if *trackOff {
		features |= postings.FeatureOffset
	}

	rng := rand.New(rand.NewSource(*seed))
	vocabulary := makeVocabulary(rng, *vocab)

	accumulator := fd.Emplace(*field)
	accepted, rejected := 0, 0
	for doc := uint32(1); doc <= uint32(*docs); doc++ {
		n := 1 + rng.Intn(*maxTokens)
		ts := newSyntheticTokenStream(rng, vocabulary, n, *trackOff)
		if accumulator.Invert(ts, features, doc) {
			accepted++
		} else {
			rejected++
		}
	}

	writer := &reportingWriter{}
	if err := fd.Flush(writer, postings.FlushState{}); err != nil {
		log.Fatalf("fieldsbench: flush: %v", err)
	}

	fmt.Fprintf(os.Stdout, "documents accepted=%d rejected=%d\n", accepted, rejected)
	for _, s := range writer.summaries {
		fmt.Fprintf(os.Stdout, "field=%q terms=%d postings=%d features=%s\n", s.field, s.terms, s.postings, s.features)
	}
}

func makeVocabulary(rng *rand.Rand, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("term%d", i)
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// syntheticTokenStream implements postings.TokenStream over a randomly
// generated sequence of vocabulary terms, occasionally repeating a
// position (increment zero) to exercise overlap counting.
type syntheticTokenStream struct {
	rng        *rand.Rand
	vocabulary []string
	remaining  int
	trackOff   bool

	term      string
	increment uint32
	start, end uint32
}

func newSyntheticTokenStream(rng *rand.Rand, vocabulary []string, n int, trackOff bool) *syntheticTokenStream {
	return &syntheticTokenStream{rng: rng, vocabulary: vocabulary, remaining: n, trackOff: trackOff}
}

func (s *syntheticTokenStream) Next() bool {
	if s.remaining == 0 {
		return false
	}
	s.remaining--
	s.term = s.vocabulary[s.rng.Intn(len(s.vocabulary))]
	s.increment = 1
	if s.rng.Intn(10) == 0 {
		s.increment = 0 // occasional overlap, e.g. a synonym injection
	}
	if s.trackOff {
		s.start = s.end
		s.end = s.start + uint32(len(s.term)) + 1
	}
	return true
}

func (s *syntheticTokenStream) Term() []byte             { return []byte(s.term) }
func (s *syntheticTokenStream) PositionIncrement() uint32 { return s.increment }
func (s *syntheticTokenStream) Offset() (uint32, uint32, bool) {
	if !s.trackOff {
		return 0, 0, false
	}
	return s.start, s.end, true
}
func (s *syntheticTokenStream) Payload() []byte { return nil }

// reportingWriter is a trivial postings.FieldWriter that counts
// postings per field instead of persisting them anywhere; a real
// segment writer would hand the term iterator to a codec instead.
type reportingWriter struct {
	summaries []fieldSummary
}

type fieldSummary struct {
	field    string
	terms    int
	postings int
	features postings.FeatureSet
}

func (w *reportingWriter) Write(name string, _ postings.NormHandle, features postings.FeatureSet, terms *postings.TermIterator) error {
	s := fieldSummary{field: name, features: features}
	for terms.Next() {
		s.terms++
		docs := terms.Postings()
		for docs.Next() {
			s.postings++
			if pos := docs.Positions(); pos != nil {
				for pos.Next() {
				}
			}
		}
	}
	w.summaries = append(w.summaries, s)
	return nil
}

func (w *reportingWriter) End() error { return nil }
