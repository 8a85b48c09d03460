package analysis

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneStrip        = regexp.MustCompile(`[\s\-\(\)]`)
	phoneNANP         = regexp.MustCompile(`^\+?1?\d{10}$`)
	phoneIntl         = regexp.MustCompile(`^\+?\d{1,3}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}$`)
	zipPattern        = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	cardPattern       = regexp.MustCompile(`^\d{13,19}$`)
	cardStrip         = strings.NewReplacer(" ", "", "-", "")
	timePattern       = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?(\s?[AaPp][Mm])?$`)
	hexOnly           = regexp.MustCompile(`^[0-9a-fA-F-]{32,36}$`)
	whitespacePattern = regexp.MustCompile(`\s`)
)

// IsEmail matches a conventional address shape
func IsEmail(v string) bool {
	return emailPattern.MatchString(v)
}

// IsURL accepts absolute http and https URLs with a host
func IsURL(v string) bool {
	if strings.ContainsAny(v, " \t") {
		return false
	}
	u, err := url.ParseRequestURI(v)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsPhone matches North American and loosely formatted international numbers
func IsPhone(v string) bool {
	if !strings.ContainsAny(v, "0123456789") {
		return false
	}
	cleaned := phoneStrip.ReplaceAllString(v, "")
	return phoneNANP.MatchString(cleaned) || phoneIntl.MatchString(cleaned)
}

// IsZip matches US ZIP and ZIP+4 codes
func IsZip(v string) bool {
	return zipPattern.MatchString(v)
}

// IsIP matches IPv4 and IPv6 addresses
func IsIP(v string) bool {
	_, err := netip.ParseAddr(v)
	return err == nil
}

// IsUUID matches canonical and compact UUID text
func IsUUID(v string) bool {
	if !hexOnly.MatchString(v) {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}

// IsCreditCard matches 13 to 19 digit numbers that pass the Luhn check
func IsCreditCard(v string) bool {
	digits := cardStrip.Replace(v)
	if !cardPattern.MatchString(digits) {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsTimeOfDay matches clock times such as 9:30, 17:45:10 and 5:15 PM
func IsTimeOfDay(v string) bool {
	return timePattern.MatchString(v)
}

// HasWhitespace reports whether the value contains any whitespace
func HasWhitespace(v string) bool {
	return whitespacePattern.MatchString(v)
}

// ratio returns the share of values accepted by match
func ratio(values []string, match func(string) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if match(v) {
			n++
		}
	}
	return float64(n) / float64(len(values))
}

// nameHas reports whether a lower-cased column name contains any keyword
func nameHas(name string, keywords ...string) bool {
	lower := strings.ToLower(name)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// nameHasToken matches keywords against the column name split on separators,
// so that "id" matches "user_id" but not "width".
func nameHasToken(name string, keywords ...string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for _, t := range tokens {
		for _, k := range keywords {
			if t == k {
				return true
			}
		}
	}
	lower := strings.ToLower(name)
	for _, k := range keywords {
		if strings.HasSuffix(name, strings.ToUpper(k[:1])+k[1:]) || lower == k {
			return true
		}
	}
	return false
}
