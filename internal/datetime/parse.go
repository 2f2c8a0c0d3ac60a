// Package datetime normalizes the human-readable timestamps shown in case list views.
package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	// "1/15/2024, 2:30 PM" with an optional comma. Trailing text such as a
	// zone abbreviation is ignored.
	absoluteRe = regexp.MustCompile(`(?i)^(\d{1,2})/(\d{1,2})/(\d{4}),?\s+(\d{1,2}):(\d{2})\s*(AM|PM)\b`)
	// "today at 2:30 pm".
	relativeRe = regexp.MustCompile(`(?i)^(today|yesterday)\s+at\s+(\d{1,2}):(\d{2})\s*(AM|PM)$`)
)

// Parse converts text into an instant in now's location.
// It accepts "M/D/YYYY, H:MM AM|PM" and "today at H:MM am|pm" (also
// "yesterday at ..."), relative to now. Other shapes fall back to a general
// date parser. Unrecognized, empty or invalid input returns false.
func Parse(text string, now time.Time) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	loc := now.Location()

	if m := absoluteRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		hour, minute, valid := clock(m[4], m[5], m[6])
		if !valid {
			return time.Time{}, false
		}
		return date(year, month, day, hour, minute, loc)
	}

	if m := relativeRe.FindStringSubmatch(text); m != nil {
		hour, minute, valid := clock(m[2], m[3], m[4])
		if !valid {
			return time.Time{}, false
		}
		base := now.In(loc)
		if strings.EqualFold(m[1], "yesterday") {
			base = base.AddDate(0, 0, -1)
		}
		return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc), true
	}

	parsed, err := dateparse.ParseIn(text, loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// clock converts a 12-hour clock reading to 24-hour values.
func clock(hourText, minuteText, meridiem string) (hour, minute int, ok bool) {
	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(minuteText)
	if err != nil || minute > 59 {
		return 0, 0, false
	}

	switch strings.ToUpper(meridiem) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute, true
}

// date builds a wall-clock instant, rejecting days that do not exist in the month.
func date(year, month, day, hour, minute int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// OlderThan reports whether text parses to an instant strictly before now minus age.
// Unparsable text is never older.
func OlderThan(text string, now time.Time, age time.Duration) bool {
	t, ok := Parse(text, now)
	if !ok {
		return false
	}
	return t.Before(now.Add(-age))
}
