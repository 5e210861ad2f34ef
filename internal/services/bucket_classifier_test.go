package services

import (
	"testing"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBucket(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, loc)
	day := func(offset, hour int) time.Time {
		return time.Date(2026, 10, 18+offset, hour, 0, 0, 0, loc)
	}

	tests := []struct {
		name       string
		start      time.Time
		hasPhone   bool
		wantBucket models.Bucket
		wantOK     bool
	}{
		{"Later today", day(0, 23), true, models.BucketToday, true},
		{"Earlier today still counts as today", day(0, 1), true, models.BucketToday, true},
		{"Tomorrow morning", day(1, 0), true, models.BucketTomorrow, true},
		{"Two days ahead", day(2, 9), true, models.BucketUpcoming, true},
		{"Last upcoming day", day(21, 23), true, models.BucketUpcoming, true},
		{"Beyond the window", day(22, 0), true, "", false},
		{"Yesterday", day(-1, 23), true, "", false},
		{"No phone today", day(0, 23), false, models.BucketNoPhone, true},
		{"No phone on the last day", day(21, 9), false, models.BucketNoPhone, true},
		{"No phone beyond the window", day(22, 9), false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, ok := ClassifyBucket(tt.start, tt.hasPhone, now, loc)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBucket, bucket)
		})
	}
}

func TestDayOffsetUsesLocalDates(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	// 20:00 local is already the next day in UTC
	now := time.Date(2026, 10, 18, 20, 0, 0, 0, loc)
	start := time.Date(2026, 10, 19, 8, 0, 0, 0, loc)
	assert.Equal(t, 1, DayOffset(start, now, loc))
	assert.Equal(t, 0, DayOffset(start, now, time.UTC))
}

func TestDayOffsetAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// US daylight saving ends on 2026-11-01; that day lasts 25 hours
	now := time.Date(2026, 10, 31, 23, 59, 0, 0, ny)
	assert.Equal(t, 1, DayOffset(time.Date(2026, 11, 1, 23, 59, 0, 0, ny), now, ny))
	assert.Equal(t, 2, DayOffset(time.Date(2026, 11, 2, 0, 1, 0, 0, ny), now, ny))

	spring := time.Date(2027, 3, 13, 0, 0, 0, 0, ny)
	assert.Equal(t, 1, DayOffset(time.Date(2027, 3, 14, 23, 0, 0, 0, ny), spring, ny))
}

func TestScanWindow(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	from, to := ScanWindow(time.Date(2026, 10, 18, 15, 4, 5, 0, loc), loc, 21)
	assert.True(t, from.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, loc)))
	assert.True(t, to.Equal(time.Date(2026, 11, 9, 0, 0, 0, 0, loc)))
	assert.Equal(t, 21, DayOffset(to.Add(-time.Second), from, loc))
}

func TestSnoozeUntil(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		days int
		want time.Time
	}{
		{"Morning", time.Date(2026, 10, 18, 9, 0, 0, 0, loc), loc, 1, time.Date(2026, 10, 19, 9, 0, 0, 0, loc)},
		{"Just before midnight lasts a full day", time.Date(2026, 10, 18, 23, 55, 0, 0, loc), loc, 1, time.Date(2026, 10, 19, 23, 55, 0, 0, loc)},
		{"Several days", time.Date(2026, 10, 18, 9, 0, 0, 0, loc), loc, 3, time.Date(2026, 10, 21, 9, 0, 0, 0, loc)},
		{"UTC input is read in local time", time.Date(2026, 10, 19, 5, 30, 0, 0, time.UTC), loc, 1, time.Date(2026, 10, 19, 23, 30, 0, 0, loc)},
		{"Across the DST change", time.Date(2026, 10, 31, 10, 0, 0, 0, ny), ny, 1, time.Date(2026, 11, 1, 10, 0, 0, 0, ny)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SnoozeUntil(tt.now, tt.loc, tt.days)
			assert.True(t, got.Equal(tt.want), "got %s", got)
			assert.GreaterOrEqual(t, got.Sub(tt.now), time.Duration(tt.days)*23*time.Hour)
		})
	}
}
