// Package iresearch is the public facade over the field-accumulator
// core in package postings: it loads Config, wires up the ambient
// logging/metrics stack, and constructs a ready-to-use FieldsData.
package iresearch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/irsgo/iresearch/bytepool"
)

// Config controls the ambient/tunable knobs SPEC_FULL.md §3 calls out:
// pool block sizes, the offs_base legacy behavior (spec §9's open
// question), and whether zero-length payloads still count as
// "payload observed" for feature-set promotion.
type Config struct {
	// ByteBlockSize and IntBlockSize document the pool block sizes this
	// build was compiled with; bytepool/intpool block sizes are compile
	// time constants (spec §4.1 recommends 32 KiB), so these fields are
	// informational and validated against the constants at Load time
	// rather than actually resizing anything.
	ByteBlockSize int `yaml:"byte_block_size"`
	IntBlockSize  int `yaml:"int_block_size"`

	// LegacyFieldLocalOffsets resolves the spec §9 open question: false
	// (default) resets a field's offs_base every document; true carries
	// it forward across documents, reproducing the source's original
	// (likely unintended) behavior.
	LegacyFieldLocalOffsets bool `yaml:"legacy_field_local_offsets"`

	// PromoteZeroLengthPayload, when true, treats a zero-length payload
	// the same as a present-but-empty payload for feature-set promotion
	// instead of spec §8's boundary rule ("payload of length zero must
	// be equivalent to no payload").
	PromoteZeroLengthPayload bool `yaml:"promote_zero_length_payload"`
}

// DefaultConfig returns the in-code defaults used when no YAML file is
// supplied.
func DefaultConfig() Config {
	return Config{
		ByteBlockSize:            32 << 10,
		IntBlockSize:             4096,
		LegacyFieldLocalOffsets:  false,
		PromoteZeroLengthPayload: false,
	}
}

// LoadConfig reads path as YAML, overlaying it onto DefaultConfig. A
// missing file is not an error: it returns the defaults unchanged,
// matching the "optional file, defaults otherwise" behavior SPEC_FULL.md
// describes.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.ByteBlockSize != bytepool.BlockSize || cfg.IntBlockSize != bytepool.IntBlockSize {
		return cfg, fmt.Errorf("iresearch: config block sizes (%d, %d) differ from the compiled-in sizes (%d, %d)",
			cfg.ByteBlockSize, cfg.IntBlockSize, bytepool.BlockSize, bytepool.IntBlockSize)
	}
	return cfg, nil
}
