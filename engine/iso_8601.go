package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var iso8601DurationRegexp = regexp.MustCompile(
	`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`,
)

func NewISO8601Duration(v string) (ISO8601Duration, error) {
	if v == "" {
		return ISO8601Duration(""), nil
	}

	match := iso8601DurationRegexp.FindStringSubmatch(v)
	if match == nil || v == "P" || v[len(v)-1] == 'T' {
		return "", fmt.Errorf("failed to parse ISO 8601 duration %s", v)
	}

	return ISO8601Duration(v), nil
}

// ISO8601Duration is a duration in ISO 8601 format - e.g. P1DT12H.
// The zero value has a duration of 0 seconds.
//
// see https://en.wikipedia.org/wiki/ISO_8601#Durations
type ISO8601Duration string

// Calculate adds the duration to a point in time. Years, months, weeks and
// days are added calendar-aware.
func (d ISO8601Duration) Calculate(t time.Time) time.Time {
	if d.IsZero() {
		return t
	}

	match := iso8601DurationRegexp.FindStringSubmatch(string(d))
	if match == nil {
		return t
	}

	n := make([]int, len(match))
	for i := 1; i < len(match); i++ {
		if match[i] != "" {
			n[i], _ = strconv.Atoi(match[i])
		}
	}

	years, months, weeks, days := n[1], n[2], n[3], n[4]
	hours, minutes, seconds := n[5], n[6], n[7]

	t = t.AddDate(years, months, weeks*7+days)
	t = t.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second)

	return t
}

func (d ISO8601Duration) IsZero() bool {
	return d == ""
}

func (d ISO8601Duration) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.String())), nil
}

func (d ISO8601Duration) String() string {
	return string(d)
}

func (d *ISO8601Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 {
		return fmt.Errorf("invalid ISO 8601 duration data %s", s)
	}

	// validation is done in a separate step, when the enclosing command is validated
	*d = ISO8601Duration(s[1 : len(s)-1])
	return nil
}
