package chat

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var (
	mentionPattern = regexp.MustCompile(`@([A-Z]{1,5}(?:\.[A-Z]{1,2})?)\b`)
	tokenPattern   = regexp.MustCompile(`\b[A-Z]{1,5}(?:\.[A-Z]{1,2})?\b`)
	overlapPattern = regexp.MustCompile(`(?i)@overlap\b`)
)

// stopWords are upper-case tokens that are never treated as tickers.
var stopWords = map[string]bool{
	"I": true, "A": true, "AN": true, "THE": true, "AND": true, "OR": true,
	"BUT": true, "IF": true, "THEN": true, "TO": true, "FOR": true,
	"OF": true, "IN": true, "ON": true, "IS": true, "IT": true, "VS": true,
	"ETF": true, "USA": true, "US": true, "SEC": true, "CUSIP": true,
}

// DetectTickers returns the tickers mentioned in text in order of first
// appearance. Explicit @TICKER mentions win; without any, bare upper-case
// tokens that are not stop words are returned.
func DetectTickers(text string) []string {
	if mentions := MentionedTickers(text); len(mentions) > 0 {
		return mentions
	}

	tokens := lo.Filter(tokenPattern.FindAllString(text, -1), func(t string, _ int) bool {
		return !stopWords[t]
	})
	return lo.Uniq(tokens)
}

// MentionedTickers returns the explicit @TICKER mentions of text in order of
// first appearance.
func MentionedTickers(text string) []string {
	return lo.Uniq(lo.FilterMap(mentionPattern.FindAllStringSubmatch(text, -1), func(m []string, _ int) (string, bool) {
		return m[1], m[1] != "OVERLAP"
	}))
}

// MentionsOverlap reports whether text asks for an overlap analysis.
func MentionsOverlap(text string) bool {
	return overlapPattern.MatchString(text)
}

func normalize(tickers []string) []string {
	return lo.Uniq(lo.FilterMap(tickers, func(t string, _ int) (string, bool) {
		t = strings.ToUpper(strings.TrimSpace(t))
		return t, t != ""
	}))
}
