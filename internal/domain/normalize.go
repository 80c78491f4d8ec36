package domain

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeName upper-cases an account or fund name and joins words with underscores.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRun.ReplaceAllString(strings.ToUpper(s), "_")
}

// NormalizeCode upper-cases a currency code or default value.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseLinkedUserID extracts the user id from "NAME (id)" or a bare "id" entry.
func ParseLinkedUserID(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}
	start := strings.LastIndex(entry, "(")
	end := strings.LastIndex(entry, ")")
	if start != -1 && end > start {
		return strings.TrimSpace(entry[start+1 : end])
	}
	return entry
}
