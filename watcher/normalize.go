package watcher

import (
	"regexp"
	"strings"
)

var (
	reParenthetical  = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	reApostrophe     = regexp.MustCompile("[`']")
	reNonAlnum       = regexp.MustCompile(`[^A-Za-z0-9]+`)
	reLeadingArticle = regexp.MustCompile(`^(?:the|an|a)\s+`)
)

// NormalizeName canonicalizes a free-text entity name for matching.
// Parenthetical suffixes and apostrophes are dropped, punctuation runs
// collapse to single spaces, one leading article is stripped, and each
// word goes through a naive suffix stemmer. Empty input yields "".
func NormalizeName(s string) string {
	t := reParenthetical.ReplaceAllString(s, " ")
	t = reApostrophe.ReplaceAllString(t, "")
	t = reNonAlnum.ReplaceAllString(t, " ")
	t = strings.ToLower(strings.TrimSpace(t))
	t = reLeadingArticle.ReplaceAllString(t, "")
	words := strings.Fields(t)
	for i, w := range words {
		words[i] = stemWord(w)
	}
	return strings.Join(words, " ")
}

// stemWord handles the common plural shapes only; words of 3 characters
// or fewer pass through unchanged.
func stemWord(w string) string {
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "es") && len(w) > 4:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	}
	return w
}
