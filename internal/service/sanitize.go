package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from free text typed at a terminal or the admin console.
func cleanText(value string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(value))
}
