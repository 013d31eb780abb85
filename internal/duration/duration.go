// Package duration converts fractional hours to the elapsed-time text used in
// schedules ("H:MM:SS") and back.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// MaxHours is the largest hour component Decode accepts.
const MaxHours = 99999

// ErrInvalidFormat indicates text that is not H:MM:SS.
var ErrInvalidFormat = errors.New("invalid duration format")

var textPattern = regexp.MustCompile(`^\d{1,5}:\d{2}:\d{2}$`)

// Seconds returns hours as whole seconds, rounding half up.
// Negative and NaN input yields 0; values past the int64 range, +Inf
// included, saturate at math.MaxInt64.
func Seconds(hours float64) int64 {
	if math.IsNaN(hours) || hours < 0 {
		return 0
	}
	secs := math.Floor(hours*3600 + 0.5)
	// float64(math.MaxInt64) rounds up to 2^63, the first value that overflows.
	if secs >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(secs)
}

// Encode formats hours as H:MM:SS. The hour part is not wrapped into days.
func Encode(hours float64) string {
	total := Seconds(hours)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// Decode parses H:MM:SS with H in [0, MaxHours] and MM, SS below 60.
func Decode(text string) (time.Duration, error) {
	if !textPattern.MatchString(text) {
		return 0, fmt.Errorf("%w: %q, expected H:MM:SS", ErrInvalidFormat, text)
	}

	var parts [3]int64
	start, idx := 0, 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != ':' {
			continue
		}
		v, err := strconv.ParseInt(text[start:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
		}
		parts[idx] = v
		idx++
		start = i + 1
	}

	h, m, s := parts[0], parts[1], parts[2]
	if m > 59 || s > 59 {
		return 0, fmt.Errorf("%w: %q, minutes and seconds must be below 60", ErrInvalidFormat, text)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
}

// DecodeHours is Decode expressed in fractional hours.
func DecodeHours(text string) (float64, error) {
	d, err := Decode(text)
	if err != nil {
		return 0, err
	}
	return d.Hours(), nil
}
