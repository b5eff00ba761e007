// SPDX-License-Identifier: MIT

package documents

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field limits shared between upload handling and session creation.
const (
	MaxNameLen     = 100
	MaxPositionLen = 200
	MaxTextLen     = 50000
	MaxEmailLen    = 254
)

var (
	emailRe        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
	filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

// stripMarks removes diacritics so accented filenames survive as ASCII.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename flattens a client-supplied filename to a safe ASCII name
// with no path components. An unusable name becomes "document".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if ascii, _, err := transform.String(stripMarks, name); err == nil {
		name = ascii
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = filenameUnsafe.ReplaceAllString(name, "")
	name = strings.Trim(name, "._-")
	if name == "" {
		return "document"
	}
	return name
}

// SanitizeText strips null bytes and markup from free-form input and
// enforces a maximum length.
func SanitizeText(value string, max int) (string, error) {
	value = strings.ReplaceAll(value, "\x00", "")
	value = strings.TrimSpace(value)
	value = htmlTagRe.ReplaceAllString(value, "")
	if len(value) > max {
		return "", fmt.Errorf("documents: value exceeds maximum length of %d characters", max)
	}
	return value, nil
}

// ValidateEmail sanitizes and normalizes an address, rejecting anything
// outside the usual mailbox shape.
func ValidateEmail(email string) (string, error) {
	email, err := SanitizeText(email, MaxEmailLen)
	if err != nil {
		return "", err
	}
	if !emailRe.MatchString(email) {
		return "", errors.New("documents: invalid email format")
	}
	return strings.ToLower(email), nil
}
