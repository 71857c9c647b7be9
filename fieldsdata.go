package iresearch

import (
	"go.uber.org/zap"

	"github.com/irsgo/iresearch/internal/telemetry"
	"github.com/irsgo/iresearch/postings"
)

// NewFieldsData constructs a postings.FieldsData wired to cfg and
// logger, with a fresh private Prometheus registry labeled by the
// segment's own generated id (SPEC_FULL.md "AMBIENT STACK"). Passing a
// nil logger yields a no-op logger.
func NewFieldsData(cfg Config, logger *zap.Logger) *postings.FieldsData {
	fd := postings.NewFieldsData(cfg.LegacyFieldLocalOffsets, cfg.PromoteZeroLengthPayload, logger, nil)
	fd.SetMetrics(telemetry.NewMetrics(fd.ID().String()))
	return fd
}
