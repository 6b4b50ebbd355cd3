package domain

import (
	"fmt"
	"time"
)

// BucketKind selects how dates are grouped for filtered listings.
type BucketKind string

const (
	BucketNone  BucketKind = ""
	BucketDate  BucketKind = "date"
	BucketWeek  BucketKind = "week"
	BucketMonth BucketKind = "month"
	BucketYear  BucketKind = "year"
)

// Bucket is a canonical, half-open date range [Start, End) for one
// bucket key. BucketNone matches everything.
type Bucket struct {
	Start time.Time
	End   time.Time
	Kind  BucketKind
}

// ParseBucket parses a bucket kind and its value into a canonical range.
// Accepted values: date=YYYY-MM-DD, week=YYYY-WW (ISO week),
// month=YYYY-MM, year=YYYY.
func ParseBucket(kind BucketKind, value string) (Bucket, error) {
	switch kind {
	case BucketNone:
		return Bucket{Kind: BucketNone}, nil

	case BucketDate:
		d, err := time.Parse("2006-01-02", value)
		if err != nil {
			return Bucket{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidBucket)
		}

		return Bucket{Kind: kind, Start: d, End: d.AddDate(0, 0, 1)}, nil

	case BucketWeek:
		var year, week int
		if _, err := fmt.Sscanf(value, "%d-%d", &year, &week); err != nil || week < 1 || week > 53 {
			return Bucket{}, fmt.Errorf("%w: week must be YYYY-WW", ErrInvalidBucket)
		}

		start := isoWeekStart(year, week)

		return Bucket{Kind: kind, Start: start, End: start.AddDate(0, 0, 7)}, nil

	case BucketMonth:
		d, err := time.Parse("2006-01", value)
		if err != nil {
			return Bucket{}, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidBucket)
		}

		return Bucket{Kind: kind, Start: d, End: d.AddDate(0, 1, 0)}, nil

	case BucketYear:
		d, err := time.Parse("2006", value)
		if err != nil {
			return Bucket{}, fmt.Errorf("%w: year must be YYYY", ErrInvalidBucket)
		}

		return Bucket{Kind: kind, Start: d, End: d.AddDate(1, 0, 0)}, nil

	default:
		return Bucket{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidBucket, kind)
	}
}

// BucketKey computes the canonical bucket key for a date. Listing by
// bucket is an equality filter on this key.
func BucketKey(d time.Time, kind BucketKind) string {
	switch kind {
	case BucketDate:
		return d.Format("2006-01-02")
	case BucketWeek:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d-%02d", year, week)
	case BucketMonth:
		return d.Format("2006-01")
	case BucketYear:
		return d.Format("2006")
	default:
		return ""
	}
}

// Key returns the canonical key of the bucket itself.
func (b Bucket) Key() string {
	return BucketKey(b.Start, b.Kind)
}

// Contains reports whether a date falls inside the bucket.
func (b Bucket) Contains(d time.Time) bool {
	if b.Kind == BucketNone {
		return true
	}

	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)

	return !day.Before(b.Start) && day.Before(b.End)
}

// isoWeekStart returns the Monday of the given ISO week.
// January 4th is always in ISO week 1.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)

	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}

	week1Monday := jan4.AddDate(0, 0, 1-weekday)

	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// ListFilter narrows a stored-record listing. The zero value lists
// everything with default pagination applied by the repository.
type ListFilter struct {
	Bucket     Bucket
	MatchState MatchState // empty means both states
	Limit      int
	Offset     int
}
