package postgres

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized WHERE clause. Placeholders are
// numbered in the order conditions are added.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns a builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// newWhereBuilderAfter continues numbering after n arguments already bound
// by the statement (an UPDATE's SET list).
func newWhereBuilderAfter(n int) *WhereBuilder {
	return &WhereBuilder{argIndex: n + 1}
}

// Add appends "column = $n". Empty values are skipped.
func (w *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	w.AddArg(column, value)
}

// AddArg appends "column = $n" unconditionally.
func (w *WhereBuilder) AddArg(column string, value any) {
	w.conditions = append(w.conditions, fmt.Sprintf("%s = $%d", column, w.argIndex))
	w.args = append(w.args, value)
	w.argIndex++
}

// Build returns the clause with a leading space, or "" and nil args when no
// condition was added.
func (w *WhereBuilder) Build() (string, []any) {
	if len(w.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(w.conditions, " AND "), w.args
}

// setList assembles the SET list of an UPDATE.
type setList struct {
	assignments []string
	args        []any
}

func (s *setList) Set(column string, value any) {
	s.args = append(s.args, value)
	s.assignments = append(s.assignments, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

// Raw appends an assignment that binds no argument.
func (s *setList) Raw(assignment string) {
	s.assignments = append(s.assignments, assignment)
}

func (s *setList) String() string {
	return strings.Join(s.assignments, ", ")
}
