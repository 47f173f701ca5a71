package domain

import "time"

// AgingBucket partitions overdue balance by days past due.
type AgingBucket string

const (
	BucketCurrent AgingBucket = "current"
	Bucket30Label AgingBucket = "30"
	Bucket60Label AgingBucket = "60"
	Bucket90Label AgingBucket = "90"
	BucketOver90L AgingBucket = "over_90"
)

// ValidOverdueBucket reports whether the bucket is one of the collection
// buckets (everything except current).
func (b AgingBucket) ValidOverdueBucket() bool {
	switch b {
	case Bucket30Label, Bucket60Label, Bucket90Label, BucketOver90L:
		return true
	default:
		return false
	}
}

// DaysOverdue counts whole days between the due date and now; negative when
// the invoice is not yet due. Both instants are truncated to dates so a
// payment later in the day does not shift the bucket.
func DaysOverdue(due, now time.Time) int {
	dueDay := due.UTC().Truncate(24 * time.Hour)
	nowDay := now.UTC().Truncate(24 * time.Hour)
	return int(nowDay.Sub(dueDay) / (24 * time.Hour))
}

// BucketForDays maps days overdue to an aging bucket. Bucket labels are the
// lower bound of their 30-day band; amounts inside the 30-day grace window
// stay in current, so an invoice one month past due lands in the 30 bucket.
func BucketForDays(daysOverdue int) AgingBucket {
	switch {
	case daysOverdue < 30:
		return BucketCurrent
	case daysOverdue < 60:
		return Bucket30Label
	case daysOverdue < 90:
		return Bucket60Label
	case daysOverdue < 120:
		return Bucket90Label
	default:
		return BucketOver90L
	}
}
