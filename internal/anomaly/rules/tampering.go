package rules

import (
	"context"
	"time"

	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	"gorm.io/gorm"
)

const (
	tamperingLookback    = 7 * 24 * time.Hour
	tamperingDedupWindow = 30 * 24 * time.Hour
	tamperingScore       = 95
)

// tampering flags a cumulative register that moved backwards within the last
// week. Registers only count up, so a decrease means the meter was reversed,
// swapped, or its dial was wound back.
type tampering struct {
	meterRepo meterdomain.Repository
}

func NewTampering(meterRepo meterdomain.Repository) anomalydomain.Strategy {
	return &tampering{meterRepo: meterRepo}
}

func (t *tampering) Code() string { return anomalydomain.RuleTampering }

func (t *tampering) DedupWindow() time.Duration { return tamperingDedupWindow }

func (t *tampering) Evaluate(ctx context.Context, db *gorm.DB, meter meterdomain.Meter, rule anomalydomain.RaRule, now time.Time) (*anomalydomain.Finding, error) {
	since := now.Add(-tamperingLookback)
	window, err := t.meterRepo.GoodReadsSince(ctx, db, meter.ID, since)
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		return nil, nil
	}

	// Include the read just before the window so a drop across the window
	// boundary is still seen.
	series := window
	prior, err := t.meterRepo.LastGoodReadBefore(ctx, db, meter.ID, window[0].ReadAt)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		series = append([]meterdomain.MeterRead{*prior}, window...)
	}

	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if cur.Value < prev.Value {
			// Tampering is always high severity regardless of the
			// rule's configured grade.
			return &anomalydomain.Finding{
				Severity: anomalydomain.SeverityHigh,
				Score:    tamperingScore,
				Evidence: map[string]any{
					"previous_value":   prev.Value,
					"previous_read_at": prev.ReadAt.Format(time.RFC3339),
					"value":            cur.Value,
					"read_at":          cur.ReadAt.Format(time.RFC3339),
					"drop":             prev.Value - cur.Value,
				},
			}, nil
		}
	}
	return nil, nil
}
