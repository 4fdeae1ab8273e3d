package utils

import "strings"

var nbspReplacer = strings.NewReplacer("&nbsp;", " ", "\u00a0", " ")

// CleanText turns non-breaking space artifacts into plain spaces and trims the scraped cell text
func CleanText(text string) string {
	return strings.TrimSpace(nbspReplacer.Replace(text))
}
