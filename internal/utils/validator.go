package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const gravatarBaseURL = "https://www.gravatar.com/avatar/"

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeEmail trims surrounding whitespace from an email address
func SanitizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// ContainsMarkup reports whether text holds HTML tags or entities.
// The strict policy leaves plain text unchanged apart from escaping it.
func ContainsMarkup(text string) bool {
	return strictPolicy.Sanitize(text) != html.EscapeString(text)
}

// GravatarURL returns the default Gravatar image for an email address
func GravatarURL(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", fmt.Errorf("empty email")
	}
	sum := md5.Sum([]byte(normalized))
	return gravatarBaseURL + hex.EncodeToString(sum[:]), nil
}
