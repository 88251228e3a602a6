package tcpdump

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrMalformedTimestamp is returned for time-of-day strings that are not HH:MM:SS.ffffff.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

var timeOfDayPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})\.(\d{6})$`)

// referenceMidnight anchors every time-of-day on the same calendar day.
var referenceMidnight = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseTimeOfDay returns the offset from midnight encoded in a capture timestamp.
func ParseTimeOfDay(s string) (time.Duration, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}

	clock, err := time.Parse("15:04:05", s[:8])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, s, err)
	}

	micros, err := strconv.Atoi(m[4])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, s, err)
	}

	offset := time.Duration(clock.Hour())*time.Hour +
		time.Duration(clock.Minute())*time.Minute +
		time.Duration(clock.Second())*time.Second +
		time.Duration(micros)*time.Microsecond
	return offset, nil
}

// ToEpochSeconds converts "11:26:43.974019" into seconds since the reference midnight.
func ToEpochSeconds(s string) (float64, error) {
	offset, err := ParseTimeOfDay(s)
	if err != nil {
		return 0, err
	}
	ts := referenceMidnight.Add(offset)
	return float64(ts.Unix()) + float64(ts.Nanosecond()/1000)/1e6, nil
}

// Elapsed returns end - start in seconds. A capture that crosses midnight
// produces a negative value; callers downstream expect that and it is not corrected.
func Elapsed(start, end string) (float64, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return 0, err
	}
	return (e - s).Seconds(), nil
}
