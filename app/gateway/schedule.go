package gateway

import (
	"fmt"
	"time"
)

// Interval units accepted by the ARB schedule after normalization.
const (
	IntervalUnitDays   = "days"
	IntervalUnitMonths = "months"
)

// openEndedOccurrences is the vendor's marker for a subscription with no
// fixed installment count.
const openEndedOccurrences int32 = 9999

// vendorLocation is the timezone the vendor evaluates "today" in when it
// rejects past-dated schedules.
var vendorLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/Denver")
	if err != nil {
		return time.FixedZone("MST", -7*60*60)
	}
	return loc
}()

// RecurrenceSchedule is a normalized ARB payment schedule.
type RecurrenceSchedule struct {
	IntervalLength   int32
	IntervalUnit     string
	StartDate        time.Time
	TotalOccurrences int32
}

// NormalizeSchedule converts a CRM frequency description to the vendor's
// schedule shape. Weeks become a day count and years a month count; the
// resulting interval must fall inside the vendor's accepted ranges or the
// schedule is rejected outright.
func NormalizeSchedule(frequencyUnit string, frequencyInterval int32, installments *int32, startDate *time.Time, now time.Time) (*RecurrenceSchedule, error) {
	if frequencyInterval <= 0 {
		frequencyInterval = 1
	}

	var unit string
	var length int32
	switch frequencyUnit {
	case "day":
		unit = IntervalUnitDays
		length = frequencyInterval
	case "week":
		unit = IntervalUnitDays
		length = frequencyInterval * 7
	case "month":
		unit = IntervalUnitMonths
		length = frequencyInterval
	case "year":
		unit = IntervalUnitMonths
		length = frequencyInterval * 12
	default:
		return nil, fmt.Errorf("unsupported frequency unit %q", frequencyUnit)
	}

	switch unit {
	case IntervalUnitDays:
		if length < 7 || length > 365 {
			return nil, fmt.Errorf("day interval %d outside accepted range 7-365", length)
		}
	case IntervalUnitMonths:
		if length < 1 || length > 12 {
			return nil, fmt.Errorf("month interval %d outside accepted range 1-12", length)
		}
	}

	occurrences := openEndedOccurrences
	if installments != nil && *installments > 0 {
		occurrences = *installments
	}

	start := now
	if startDate != nil && !startDate.IsZero() {
		start = *startDate
	}

	return &RecurrenceSchedule{
		IntervalLength:   length,
		IntervalUnit:     unit,
		StartDate:        normalizeStartDate(start, now),
		TotalOccurrences: occurrences,
	}, nil
}

// normalizeStartDate guards against the vendor's "no past-dated schedule"
// rule. When the requested calendar day falls before the vendor's current
// day, the wall-clock time is reinterpreted in the vendor's timezone instead
// of being moved forward. Future dates pass through untouched.
func normalizeStartDate(start, now time.Time) time.Time {
	vendorToday := now.In(vendorLocation)

	if calendarDay(start).Before(calendarDay(vendorToday)) {
		return time.Date(
			start.Year(), start.Month(), start.Day(),
			start.Hour(), start.Minute(), start.Second(), start.Nanosecond(),
			vendorLocation,
		)
	}
	return start
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
