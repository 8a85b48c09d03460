package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// missingTokens are read as null, the same set pandas treats as NA on CSV input.
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a raw cell counts as a null value
func IsMissing(v string) bool {
	_, ok := missingTokens[strings.TrimSpace(v)]
	return ok
}

// NonMissing returns the trimmed non-null values in order
func NonMissing(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

var (
	thousandsPattern = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	currencySymbols  = strings.NewReplacer("$", "", "£", "", "€", "", "¥", "", ",", "", " ", "")
	currencyPattern  = regexp.MustCompile(`[$£€¥]`)
)

// ParseNumber parses a plain number, accepting comma thousands separators.
// Infinite and NaN results are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInteger parses a whole number without a fractional part
func ParseInteger(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if thousandsPattern.MatchString(s) && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	}
	i, err := strconv.ParseInt(s, 10, 64)
	return i, err == nil
}

// ParseCurrency strips currency symbols and separators before parsing
func ParseCurrency(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = strings.Trim(s, "()")
	}
	f, err := strconv.ParseFloat(currencySymbols.Replace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// HasCurrencySymbol reports whether the value carries a currency sign
func HasCurrencySymbol(s string) bool {
	return currencyPattern.MatchString(s)
}

// ParsePercentage strips a trailing percent sign before parsing. The result
// stays on the 0-100 scale.
func ParsePercentage(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	return ParseNumber(s)
}

// NumericValue parses a raw cell according to the column's detected type
func NumericValue(s string, currency, percentage bool) (float64, bool) {
	switch {
	case currency:
		return ParseCurrency(s)
	case percentage:
		return ParsePercentage(s)
	default:
		return ParseNumber(s)
	}
}

type booleanPair struct{ yes, no string }

var booleanPairs = []booleanPair{
	{"true", "false"}, {"yes", "no"}, {"y", "n"}, {"1", "0"}, {"t", "f"},
	{"on", "off"}, {"active", "inactive"}, {"enabled", "disabled"},
}

// booleanPairFor returns the pair a token belongs to
func booleanPairFor(v string) (booleanPair, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, p := range booleanPairs {
		if v == p.yes || v == p.no {
			return p, true
		}
	}
	return booleanPair{}, false
}

// ParseBool maps a boolean token onto true or false
func ParseBool(v string) (bool, bool) {
	p, ok := booleanPairFor(v)
	if !ok {
		return false, false
	}
	return strings.EqualFold(strings.TrimSpace(v), p.yes), true
}

type dateLayout struct {
	layout  string
	hasTime bool
}

// dateLayouts are tried in order. Month-first precedes day-first for
// ambiguous slash dates.
var dateLayouts = []dateLayout{
	{time.RFC3339, true},
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"2006/01/02 15:04:05", true},
	{"1/2/2006 15:04:05", true},
	{"1/2/2006 15:04", true},
	{"2006-01-02", false},
	{"2006/01/02", false},
	{"1/2/2006", false},
	{"01/02/2006", false},
	{"2/1/2006", false},
	{"02/01/2006", false},
	{"02-01-2006", false},
	{"02.01.2006", false},
	{"Jan 2, 2006", false},
	{"January 2, 2006", false},
	{"2 Jan 2006", false},
	{"2 January 2006", false},
	{"Mon, 02 Jan 2006 15:04:05 MST", true},
	{"2006-01", false},
}

// DetectDateLayout returns the layout that parses the most values, with its
// match ratio. Ties keep the earlier layout.
func DetectDateLayout(values []string) (layout string, hasTime bool, ratio float64) {
	if len(values) == 0 {
		return "", false, 0
	}
	best := -1
	bestCount := 0
	for i, dl := range dateLayouts {
		count := 0
		for _, v := range values {
			if _, err := time.Parse(dl.layout, v); err == nil {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return "", false, 0
	}
	return dateLayouts[best].layout, dateLayouts[best].hasTime, float64(bestCount) / float64(len(values))
}

// ParseDate parses a value with a known layout, falling back to every
// supported layout when the layout is empty or does not match.
func ParseDate(v, layout string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if layout != "" {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	for _, dl := range dateLayouts {
		if t, err := time.Parse(dl.layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
