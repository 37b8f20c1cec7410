package core

import (
	"strings"
	"time"
)

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	Search string // substring of name, email, company or phone; case-insensitive
	Stage  Stage  // empty matches all
	Date   string // created date prefix, e.g. "2024-03" or "2024-03-15"
}

// Empty reports whether the filter keeps every lead.
func (f LeadFilter) Empty() bool {
	return strings.TrimSpace(f.Search) == "" && f.Stage == "" && strings.TrimSpace(f.Date) == ""
}

// Match reports whether l passes the filter.
func (f LeadFilter) Match(l Lead) bool {
	if f.Stage != "" && l.Stage != f.Stage {
		return false
	}
	if d := strings.TrimSpace(f.Date); d != "" {
		if !strings.HasPrefix(l.CreatedAt.UTC().Format(time.DateOnly), d) {
			return false
		}
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	for _, v := range []string{l.Name, l.Email, deref(l.Company), l.Phone} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// FilterLeads returns the leads that pass f, in their original order.
func FilterLeads(leads []Lead, f LeadFilter) []Lead {
	if f.Empty() {
		return leads
	}
	out := make([]Lead, 0, len(leads))
	for _, l := range leads {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
