package service

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

const (
	slugSuffixLen  = 6
	slugSuffixSpan = 36 * 36 * 36 * 36 * 36 * 36
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

// slugify lowercases title, drops characters that are not URL safe, joins
// the remaining words with dashes and appends a random base36 suffix.
func slugify(title string) string {
	words := make([]string, 0, 8)
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if w = slugInvalid.ReplaceAllString(w, ""); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return slugSuffix()
	}
	return strings.Join(words, "-") + "-" + slugSuffix()
}

func slugSuffix() string {
	s := strconv.FormatInt(rand.Int64N(slugSuffixSpan), 36)
	if len(s) < slugSuffixLen {
		s = strings.Repeat("0", slugSuffixLen-len(s)) + s
	}
	return s
}
