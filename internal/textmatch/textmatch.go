// Package textmatch isolates the clinical-note heuristics behind a small
// interface so the keyword approach can be replaced by structured coding input.
package textmatch

import "strings"

// Matcher answers whether free text mentions any of a set of terms.
type Matcher interface {
	// ContainsAny reports whether text mentions at least one term.
	ContainsAny(text string, terms ...string) bool

	// Matches returns the terms that text mentions, in the order given.
	Matches(text string, terms ...string) []string
}

// Keyword is a case-insensitive substring Matcher.
// Synonyms and phrasing variations not listed in terms do not match.
// Text is matched with its whitespace collapsed to single spaces and a space
// added at each end, so a term padded with spaces also matches at the start
// or end of the text and across line breaks.
type Keyword struct{}

// NewKeyword returns the default keyword matcher.
func NewKeyword() Keyword {
	return Keyword{}
}

// ContainsAny implements Matcher.
func (Keyword) ContainsAny(text string, terms ...string) bool {
	if text == "" {
		return false
	}
	lower := normalize(text)
	for _, t := range terms {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// Matches implements Matcher.
func (Keyword) Matches(text string, terms ...string) []string {
	if text == "" {
		return nil
	}
	lower := normalize(text)
	var out []string
	for _, t := range terms {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			out = append(out, t)
		}
	}
	return out
}

func normalize(text string) string {
	return " " + strings.Join(strings.Fields(strings.ToLower(text)), " ") + " "
}

// Word expands an abbreviation into the substring terms that find it as a
// whole word, so "aki" matches "AKI;" and "(AKI)" but not "making".
func Word(abbr string) []string {
	abbr = strings.ToLower(abbr)
	var out []string
	for _, open := range []string{" ", "(", "/"} {
		for _, end := range []string{" ", ",", ".", ";", ":", ")", "/"} {
			out = append(out, open+abbr+end)
		}
	}
	return out
}

// Or returns m, or the keyword matcher when m is nil.
func Or(m Matcher) Matcher {
	if m == nil {
		return Keyword{}
	}
	return m
}
