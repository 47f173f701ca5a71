package rules

import (
	"context"
	"time"

	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	"gorm.io/gorm"
)

const (
	defaultZeroConsumptionMonths = 3
	zeroConsumptionScore         = 75
)

// zeroConsumption flags meters whose cumulative read has not advanced over
// the configured number of months. Occupied premises with no recorded usage
// usually mean a stuck or bypassed meter.
type zeroConsumption struct {
	meterRepo meterdomain.Repository
}

func NewZeroConsumption(meterRepo meterdomain.Repository) anomalydomain.Strategy {
	return &zeroConsumption{meterRepo: meterRepo}
}

func (z *zeroConsumption) Code() string { return anomalydomain.RuleZeroConsumption }

// DedupWindow is zero: any open case on the meter suppresses re-detection
// until that case leaves the workflow.
func (z *zeroConsumption) DedupWindow() time.Duration { return 0 }

func (z *zeroConsumption) Evaluate(ctx context.Context, db *gorm.DB, meter meterdomain.Meter, rule anomalydomain.RaRule, now time.Time) (*anomalydomain.Finding, error) {
	months := rule.ParamInt("months_threshold", defaultZeroConsumptionMonths)
	since := now.AddDate(0, -months, 0)

	reads, err := z.meterRepo.GoodReadsSince(ctx, db, meter.ID, since)
	if err != nil {
		return nil, err
	}
	// Fewer than two reads in the window is a data gap, not zero usage.
	if len(reads) < 2 {
		return nil, nil
	}

	first := reads[0]
	last := reads[len(reads)-1]
	if last.Value-first.Value > 0 {
		return nil, nil
	}

	return &anomalydomain.Finding{
		Severity: rule.Severity,
		Score:    zeroConsumptionScore,
		Evidence: map[string]any{
			"months_threshold": months,
			"window_start":     since.Format(time.RFC3339),
			"first_read_at":    first.ReadAt.Format(time.RFC3339),
			"first_value":      first.Value,
			"last_read_at":     last.ReadAt.Format(time.RFC3339),
			"last_value":       last.Value,
			"read_count":       len(reads),
		},
	}, nil
}
