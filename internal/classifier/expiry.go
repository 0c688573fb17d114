package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// wordStart keeps "ends" from matching inside "friends" or "weekends"
const wordStart = `(?:^|[^\pL\pN])`

var (
	relativeDayPattern = regexp.MustCompile(wordStart + `(?:expires?|expiring|ends?|ending)\s+(tonight|today|tomorrow)`)
	relativeInPattern  = regexp.MustCompile(wordStart + `(?:expires?|expiring|ends?|ending)\s+in\s+(\d{1,3})\s+(hours?|days?)`)
	absolutePattern    = regexp.MustCompile(wordStart + `(?:expires?|expiring|ends?|ending|valid (?:until|through|thru)|good (?:until|through))\s+(?:on\s+)?([a-z0-9][a-z0-9 ,/\-]{2,30})`)
	ordinalSuffix      = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)
)

var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"1/2/2006",
	"2006-01-02",
	"January 2",
	"Jan 2",
	"1/2",
}

// ParseExpiry finds an expiry phrase in folded body text. Relative phrases
// resolve against ref; when ref is zero only dates with an explicit year parse.
// Returns nil when nothing parseable is found.
func ParseExpiry(body string, ref time.Time) *time.Time {
	if body == "" {
		return nil
	}

	if !ref.IsZero() {
		if m := relativeDayPattern.FindStringSubmatch(body); m != nil {
			t := endOfDay(ref)
			if m[1] == "tomorrow" {
				t = endOfDay(ref.AddDate(0, 0, 1))
			}
			return &t
		}

		if m := relativeInPattern.FindStringSubmatch(body); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				var t time.Time
				if strings.HasPrefix(m[2], "hour") {
					t = ref.Add(time.Duration(n) * time.Hour)
				} else {
					t = ref.AddDate(0, 0, n)
				}
				return &t
			}
		}
	}

	for _, m := range absolutePattern.FindAllStringSubmatch(body, -1) {
		if t, ok := parseDatePhrase(m[1], ref); ok {
			return &t
		}
	}

	return nil
}

// parseDatePhrase tries the longest leading word sequence of candidate that
// parses as a date
func parseDatePhrase(candidate string, ref time.Time) (time.Time, bool) {
	candidate = ordinalSuffix.ReplaceAllString(candidate, "$1")
	words := strings.Fields(candidate)
	if len(words) > 3 {
		words = words[:3]
	}

	loc := time.UTC
	if !ref.IsZero() {
		loc = ref.Location()
	}

	for n := len(words); n >= 1; n-- {
		phrase := strings.TrimRight(strings.Join(words[:n], " "), ",.;:")
		for _, layout := range dateLayouts {
			t, err := time.ParseInLocation(layout, phrase, loc)
			if err != nil {
				continue
			}
			if t.Year() == 0 {
				if ref.IsZero() {
					return time.Time{}, false
				}
				t = t.AddDate(ref.Year(), 0, 0)
				if endOfDay(t).Before(ref) {
					t = t.AddDate(1, 0, 0)
				}
			}
			return endOfDay(t), true
		}
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
