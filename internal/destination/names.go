package destination

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var codePattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// NormalizeCode validates a three-letter location code and uppercases it.
func NormalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return "", Validationf("location code %q must be exactly 3 letters", code)
	}
	return strings.ToUpper(code), nil
}

// DisplayName turns an upstream all-caps name such as "SAN FRANCISCO" into "San Francisco".
func DisplayName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}

// DurationLabel renders a trip length for display.
func DurationLabel(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
