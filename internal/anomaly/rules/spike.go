package rules

import (
	"context"
	"math"
	"time"

	anomalydomain "github.com/openwaterops/revassure/internal/anomaly/domain"
	meterdomain "github.com/openwaterops/revassure/internal/meterdata/domain"
	"gorm.io/gorm"
)

const (
	defaultSpikeMultiplier = 3.0
	spikeDedupWindow       = 30 * 24 * time.Hour
	spikeReadSample        = 6
)

// consumptionSpike flags a latest-interval consumption far above the meter's
// recent average, which points at a leak past the meter or a misread.
type consumptionSpike struct {
	meterRepo meterdomain.Repository
}

func NewConsumptionSpike(meterRepo meterdomain.Repository) anomalydomain.Strategy {
	return &consumptionSpike{meterRepo: meterRepo}
}

func (c *consumptionSpike) Code() string { return anomalydomain.RuleConsumptionSpike }

func (c *consumptionSpike) DedupWindow() time.Duration { return spikeDedupWindow }

func (c *consumptionSpike) Evaluate(ctx context.Context, db *gorm.DB, meter meterdomain.Meter, rule anomalydomain.RaRule, now time.Time) (*anomalydomain.Finding, error) {
	multiplier := rule.ParamFloat("threshold_multiplier", defaultSpikeMultiplier)

	reads, err := c.meterRepo.RecentGoodReads(ctx, db, meter.ID, spikeReadSample)
	if err != nil {
		return nil, err
	}
	// Need the latest interval plus at least one historical interval.
	if len(reads) < 3 {
		return nil, nil
	}

	// RecentGoodReads is newest first; reverse into chronological order.
	for i, j := 0, len(reads)-1; i < j; i, j = i+1, j-1 {
		reads[i], reads[j] = reads[j], reads[i]
	}

	intervals := make([]float64, 0, len(reads)-1)
	for i := 1; i < len(reads); i++ {
		intervals = append(intervals, reads[i].Value-reads[i-1].Value)
	}

	latest := intervals[len(intervals)-1]
	history := intervals[:len(intervals)-1]
	var sum float64
	for _, v := range history {
		sum += v
	}
	avg := sum / float64(len(history))
	// A non-positive baseline has no meaningful multiple; the zero
	// consumption rule covers flat history.
	if avg <= 0 {
		return nil, nil
	}
	if latest <= multiplier*avg {
		return nil, nil
	}

	score := int64(math.Min(100, math.Round((latest/avg-1)*20)))
	return &anomalydomain.Finding{
		Severity: rule.Severity,
		Score:    score,
		Evidence: map[string]any{
			"multiplier":     multiplier,
			"latest_usage":   latest,
			"average_usage":  avg,
			"interval_count": len(history),
			"latest_read_at": reads[len(reads)-1].ReadAt.Format(time.RFC3339),
		},
	}, nil
}
