// Package search implements the case-insensitive substring match used by list and report queries.
package search

import (
	"strings"

	"golang.org/x/text/cases"
)

// Term is a folded search term. The zero Term matches everything.
type Term struct {
	folded string
}

// New folds s for caseless comparison.
func New(s string) Term {
	return Term{folded: cases.Fold().String(strings.TrimSpace(s))}
}

func (t Term) Empty() bool { return t.folded == "" }

// Match reports whether any field contains the term, ignoring case.
func (t Term) Match(fields ...string) bool {
	if t.folded == "" {
		return true
	}
	f := cases.Fold()
	for _, s := range fields {
		if strings.Contains(f.String(s), t.folded) {
			return true
		}
	}
	return false
}

// String returns the folded term.
func (t Term) String() string { return t.folded }
