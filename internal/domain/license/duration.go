package license

import (
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// Upper bounds for each Duration field. Each one is about a century, which
// keeps every fixed term well inside the int64 range of time.Duration.
const (
	MaxYears   = 100
	MaxMonths  = 1200
	MaxDays    = 36500
	MaxHours   = 876000
	MaxMinutes = 52560000

	// MaxExpiryYear is the last year an RFC 3339 timestamp can encode.
	MaxExpiryYear = 9999
)

var (
	ErrDurationOutOfRange = errors.New("duration field out of range")
	ErrExpiryOutOfRange   = errors.New("expiry date out of range")
)

// Duration is a compound offset. Years and Months are calendar units, the
// rest are fixed lengths.
type Duration struct {
	Years   int `json:"years" binding:"gte=0,lte=100"`
	Months  int `json:"months" binding:"gte=0,lte=1200"`
	Days    int `json:"days" binding:"gte=0,lte=36500"`
	Hours   int `json:"hours" binding:"gte=0,lte=876000"`
	Minutes int `json:"minutes" binding:"gte=0,lte=52560000"`
}

func (d Duration) IsZero() bool {
	return d == Duration{}
}

func (d Duration) Validate() error {
	fields := []struct {
		name  string
		value int
		max   int
	}{
		{"years", d.Years, MaxYears},
		{"months", d.Months, MaxMonths},
		{"days", d.Days, MaxDays},
		{"hours", d.Hours, MaxHours},
		{"minutes", d.Minutes, MaxMinutes},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > f.max {
			return fmt.Errorf("%w: %s must be between 0 and %d", ErrDurationOutOfRange, f.name, f.max)
		}
	}
	return nil
}

// Apply returns t moved forward by d. It fails when d is out of bounds or the
// result would fall before t or past MaxExpiryYear.
func (d Duration) Apply(t time.Time) (time.Time, error) {
	if err := d.Validate(); err != nil {
		return time.Time{}, err
	}
	result := d.AddTo(t)
	if result.Before(t) || result.Year() > MaxExpiryYear {
		return time.Time{}, fmt.Errorf("%w: %s plus %+v", ErrExpiryOutOfRange, t.Format(time.RFC3339), d)
	}
	return result, nil
}

// AddTo applies the calendar part first and the fixed part to the result.
// Month arithmetic clamps to the last day of the target month, so Jan 31 plus
// one month is Feb 29 in a leap year.
func (d Duration) AddTo(t time.Time) time.Time {
	return addMonths(t, d.Years*12+d.Months).
		Add(time.Duration(d.Days) * 24 * time.Hour).
		Add(time.Duration(d.Hours) * time.Hour).
		Add(time.Duration(d.Minutes) * time.Minute)
}

func addMonths(t time.Time, months int) time.Time {
	if months == 0 {
		return t
	}
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := now.With(firstOfTarget).EndOfMonth().Day()

	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
