package services

import (
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
)

// MaxUpcomingDayOffset is the last day offset that still produces an item
const MaxUpcomingDayOffset = 21

// DayOffset counts calendar days from now's local date to start's local date
func DayOffset(start, now time.Time, loc *time.Location) int {
	sy, sm, sd := start.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()

	// Civil dates compared in UTC so DST transitions never shorten a day
	startDate := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	nowDate := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(startDate.Sub(nowDate).Hours() / 24)
}

// InWindow reports whether a day offset can produce a confirmation item
func InWindow(offset int) bool {
	return offset >= 0 && offset <= MaxUpcomingDayOffset
}

// ClassifyBucket assigns a bucket to a meeting; ok is false when the meeting is
// in the past or too far ahead and must not produce an item
func ClassifyBucket(start time.Time, hasPhone bool, now time.Time, loc *time.Location) (models.Bucket, bool) {
	offset := DayOffset(start, now, loc)
	if !InWindow(offset) {
		return "", false
	}
	return bucketForOffset(offset, hasPhone), true
}

func bucketForOffset(offset int, hasPhone bool) models.Bucket {
	switch {
	case !hasPhone:
		return models.BucketNoPhone
	case offset == 0:
		return models.BucketToday
	case offset == 1:
		return models.BucketTomorrow
	default:
		return models.BucketUpcoming
	}
}

// LocalMidnight returns the start of t's day in loc
func LocalMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ScanWindow returns [today's local midnight, midnight after the last scanned day)
func ScanWindow(now time.Time, loc *time.Location, days int) (time.Time, time.Time) {
	from := LocalMidnight(now, loc)
	y, m, d := from.Date()
	return from, time.Date(y, m, d+days+1, 0, 0, 0, 0, loc)
}

// SnoozeUntil returns the instant a snooze taken at now ends: the same local wall-clock time
// days calendar days later
func SnoozeUntil(now time.Time, loc *time.Location, days int) time.Time {
	return now.In(loc).AddDate(0, 0, days)
}
