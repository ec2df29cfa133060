package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxTitleLen = 512

// NormalizeTitle trims and NFC-normalises a user supplied title. Empty and overlong
// titles are rejected.
func NormalizeTitle(s string) (string, error) {
	t := norm.NFC.String(strings.TrimSpace(s))
	if t == "" {
		return "", Invalid("title is required")
	}
	if len(t) > maxTitleLen {
		return "", Invalid("title exceeds %d bytes", maxTitleLen)
	}
	return t, nil
}

// NormalizeText trims and NFC-normalises free text. Empty text is allowed.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
