package domain

import (
	"strings"
	"time"
)

// Restriction is one free-text prohibition statement folded into every
// generation request. Text is unique.
type Restriction struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// RestrictionSet is an ordered, read-only snapshot of the active restrictions
// taken once per pipeline run.
type RestrictionSet struct {
	statements []string
}

// NewRestrictionSet builds a snapshot preserving order and dropping
// duplicates and blank statements.
func NewRestrictionSet(statements []string) RestrictionSet {
	seen := make(map[string]struct{}, len(statements))
	out := make([]string, 0, len(statements))
	for _, s := range statements {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return RestrictionSet{statements: out}
}

// Statements returns the ordered statements.
func (rs RestrictionSet) Statements() []string {
	return rs.statements
}

// Empty reports whether the set has no statements.
func (rs RestrictionSet) Empty() bool {
	return len(rs.statements) == 0
}

// AllowedDomain is one allow-listed host. A value of "*" allows every host.
type AllowedDomain struct {
	ID        string
	Host      string
	CreatedAt time.Time
}
