// Package normalize canonicalizes user-supplied text before it is stored or
// compared: titles for prefix search, search terms, tags and usernames.
package normalize

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxTagLength bounds a single tag after normalization.
const MaxTagLength = 35

var (
	tagSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	tagInvalidRe   = regexp.MustCompile(`[^a-z0-9+#.-]`)
	multiDashRe    = regexp.MustCompile(`-+`)
	usernameRe     = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
	mentionRe      = regexp.MustCompile(`(?:^|[^\w@.])@(\w{3,30})\b`)
)

// MaxMentions caps how many users one body can mention.
const MaxMentions = 10

// Lower returns the NFC-normalized lowercase form of s. It is the single
// lowering function used for titleLowercase and for search terms, so both
// sides of a prefix comparison always agree.
func Lower(s string) string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// Term prepares a raw search query: trimmed, inner whitespace collapsed to
// single spaces, and lowered.
func Term(s string) string {
	return Lower(strings.Join(strings.Fields(s), " "))
}

// Title trims surrounding whitespace and collapses inner runs of spaces.
func Title(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Tag converts user input to a canonical tag name.
//
//	"Go Lang"  -> "go-lang"
//	"C#"       -> "c#"
//	"Node.JS"  -> "node.js"
//	"--x--"    -> "x"
func Tag(s string) string {
	s = norm.NFKD.String(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = strings.ToLower(s)
	s = tagSeparatorRe.ReplaceAllString(s, "-")
	s = tagInvalidRe.ReplaceAllString(s, "")
	s = multiDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxTagLength {
		s = strings.Trim(s[:MaxTagLength], "-")
	}
	return s
}

// Tags normalizes every tag, drops empties and removes duplicates while
// keeping first-seen order.
func Tags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		t := Tag(raw)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Username lowercases a username and reports whether it is acceptable.
func Username(s string) (string, bool) {
	u := strings.ToLower(strings.TrimSpace(s))
	return u, usernameRe.MatchString(u)
}

// Mentions returns the distinct usernames written as @name in body, lowered,
// in order of first appearance. Email addresses are not mentions.
func Mentions(body string) []string {
	var out []string
	for _, m := range mentionRe.FindAllStringSubmatch(body, -1) {
		u, ok := Username(m[1])
		if !ok || slices.Contains(out, u) {
			continue
		}
		out = append(out, u)
		if len(out) == MaxMentions {
			break
		}
	}
	return out
}
