// Package spam classifies contact form content and submission timing.
package spam

import (
	"regexp"
	"strings"
)

// Rules reported in a Verdict.
const (
	RuleKeyword    = "keyword"
	RuleLinks      = "links"
	RuleRepetition = "repetition"
)

// DefaultKeywords is the denylist used by the contact page.
var DefaultKeywords = []string{
	"viagra", "cialis", "casino", "poker", "loan", "credit",
	"crypto", "bitcoin", "investment", "money back", "guarantee",
	"free money", "make money", "earn money", "click here",
	"limited time", "act now", "urgent", "congratulations",
	"winner", "selected", "special offer", "bonus",
}

// DefaultMaxLinks is the number of URLs tolerated in one submission.
const DefaultMaxLinks = 2

const (
	// minUnit and minCopies define repetition: a unit of at least minUnit
	// characters, without line breaks, written minCopies times in a row.
	minUnit   = 3
	minCopies = 4
)

var linkPattern = regexp.MustCompile(`https?://`)

// Verdict is the result of a content check.
type Verdict struct {
	Spam bool
	Rule string
}

// Filter checks text against a keyword denylist, a link limit and a repetition pattern.
// A Filter is safe for concurrent use.
type Filter struct {
	keywords []string
	maxLinks int
}

// Option configures a Filter.
type Option func(*Filter)

// WithKeywords replaces the keyword denylist.
func WithKeywords(keywords []string) Option {
	return func(f *Filter) {
		f.keywords = make([]string, 0, len(keywords))
		for _, k := range keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				f.keywords = append(f.keywords, k)
			}
		}
	}
}

// WithMaxLinks sets how many URLs are tolerated before text is flagged.
func WithMaxLinks(n int) Option {
	return func(f *Filter) { f.maxLinks = n }
}

// NewFilter builds a Filter with the default rules.
func NewFilter(opts ...Option) *Filter {
	f := &Filter{
		keywords: DefaultKeywords,
		maxLinks: DefaultMaxLinks,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check classifies text. Rules run in order and the first match wins.
func (f *Filter) Check(text string) Verdict {
	text = strings.ToLower(text)

	for _, keyword := range f.keywords {
		if strings.Contains(text, keyword) {
			return Verdict{Spam: true, Rule: RuleKeyword}
		}
	}

	if len(linkPattern.FindAllStringIndex(text, -1)) > f.maxLinks {
		return Verdict{Spam: true, Rule: RuleLinks}
	}

	if hasRepeatedUnit([]rune(text)) {
		return Verdict{Spam: true, Rule: RuleRepetition}
	}

	return Verdict{}
}

var defaultFilter = NewFilter()

// IsSpamContent reports whether text is flagged by the default filter.
func IsSpamContent(text string) bool {
	return defaultFilter.Check(text).Spam
}

// hasRepeatedUnit reports whether r contains some unit of minUnit or more runes
// followed by at least minCopies-1 copies of itself, the language of
// `(.{3,})\1{3,}`. A unit of length p repeated minCopies times is a stretch of
// (minCopies-1)*p consecutive positions j with r[j] == r[j+p].
func hasRepeatedUnit(r []rune) bool {
	for p := minUnit; p*minCopies <= len(r); p++ {
		if hasPeriodicRun(r, p) {
			return true
		}
	}
	return false
}

// hasPeriodicRun looks for (minCopies-1)*p matching positions for period p. Any
// such stretch covers a multiple of p within its first p positions, so only those
// are probed and each probe extends at most p positions to the left. The cost is
// linear in len(r) for each p, plus the length of the stretches found.
func hasPeriodicRun(r []rune, p int) bool {
	need := (minCopies - 1) * p
	same := func(j int) bool {
		return r[j] == r[j+p] && r[j] != '\n'
	}

	for j := 0; j+p < len(r); j += p {
		if !same(j) {
			continue
		}
		start := j
		for start > 0 && j-start < p && same(start-1) {
			start--
		}
		end := j + 1
		for end+p < len(r) && end-start < need && same(end) {
			end++
		}
		if end-start >= need {
			return true
		}
		// end is a mismatch; resume at the first probe past it.
		j = end / p * p
	}
	return false
}
