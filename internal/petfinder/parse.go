// Package petfinder extracts pet records from petfinder.com pages served
// through the render service.
package petfinder

import (
	"regexp"
	"strings"
)

var trailingAsterisks = regexp.MustCompile(`\*+$`)

// cleanText trims whitespace and the trailing asterisks the site uses as
// footnote markers.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(trailingAsterisks.ReplaceAllString(s, ""))
}

// negativeIndicators are checked before positiveIndicators: a badge that
// reads ambiguously counts as no.
var (
	negativeIndicators = []string{"no", "false", "✗", "unchecked", "n"}
	positiveIndicators = []string{"yes", "true", "✓", "check", "checked", "y"}
)

// parseBoolean maps a free-text yes/no badge to a bool. Empty text is
// false; text matching no indicator at all counts as true, since the
// badge only renders when the attribute applies.
func parseBoolean(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return false
	}
	for _, neg := range negativeIndicators {
		if strings.Contains(t, neg) {
			return false
		}
	}
	for _, pos := range positiveIndicators {
		if strings.Contains(t, pos) {
			return true
		}
	}
	return true
}

// boolString renders a bool in the table's stored form.
func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// nameFromHeading strips the leading "About" from the detail page heading
// ("About Rex" -> "Rex").
func nameFromHeading(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 5 && strings.EqualFold(s[:5], "about") {
		return strings.TrimSpace(s[5:])
	}
	return s
}

// canonicalLink absolutizes site-relative hrefs.
func canonicalLink(href string) string {
	if strings.HasPrefix(href, "/") {
		return "https://www.petfinder.com" + href
	}
	return href
}
