package core

import "strings"

// RawRow is one decoded source row keyed by its header cells. Keys are not
// under program control; values are scalars, and only non-empty strings are
// considered during normalization.
type RawRow map[string]any

// leadField names a LeadCandidate field that can be sourced from a row.
type leadField string

const (
	fieldName    leadField = "name"
	fieldEmail   leadField = "email"
	fieldPhone   leadField = "phone"
	fieldCompany leadField = "company"
	fieldStage   leadField = "stage"
	fieldSource  leadField = "source"
	fieldNotes   leadField = "notes"
)

// fieldAliases lists, per field and in lookup order, the header spellings a
// row may use. Each spelling appears as the literal key and one capitalized
// variant; the Portuguese names come from spreadsheets exported by the
// previous version of the board.
var fieldAliases = map[leadField][]string{
	fieldName:    {"name", "Name", "nome", "Nome"},
	fieldEmail:   {"email", "Email"},
	fieldPhone:   {"phone", "Phone", "telefone", "Telefone"},
	fieldCompany: {"company", "Company", "empresa", "Empresa"},
	fieldStage:   {"stage", "Stage", "status", "Status"},
	fieldSource:  {"source", "Source", "origem", "Origem"},
	fieldNotes:   {"notes", "Notes", "observacoes", "Observacoes"},
}

// Aliases returns the accepted header spellings for a lead field, or nil.
func Aliases(field string) []string {
	a := fieldAliases[leadField(field)]
	if a == nil {
		return nil
	}
	out := make([]string, len(a))
	copy(out, a)
	return out
}

// resolve returns the first alias of f holding a non-empty string value.
func (r RawRow) resolve(f leadField) (string, bool) {
	for _, key := range fieldAliases[f] {
		v, ok := r[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// Normalize maps row onto a LeadCandidate. The row is accepted iff both name
// and email resolve to non-empty strings; accepted candidates are stamped
// with op's owner id. Stage is lower-cased and defaults to "new" but is not
// checked against the stage set here.
func Normalize(row RawRow, op OperatorContext) (LeadCandidate, bool) {
	name, _ := row.resolve(fieldName)
	email, _ := row.resolve(fieldEmail)
	if name == "" || email == "" {
		return LeadCandidate{}, false
	}

	c := LeadCandidate{
		Name:    name,
		Email:   email,
		Stage:   string(StageNew),
		OwnerID: op.OwnerID,
	}
	c.Phone, _ = row.resolve(fieldPhone)
	if v, ok := row.resolve(fieldCompany); ok {
		c.Company = &v
	}
	if v, ok := row.resolve(fieldSource); ok {
		c.Source = &v
	}
	if v, ok := row.resolve(fieldNotes); ok {
		c.Notes = &v
	}
	if v, ok := row.resolve(fieldStage); ok {
		c.Stage = strings.ToLower(v)
	}
	return c, true
}

// rejectReason explains why Normalize refused row.
func rejectReason(row RawRow) string {
	_, hasName := row.resolve(fieldName)
	_, hasEmail := row.resolve(fieldEmail)
	switch {
	case !hasName && !hasEmail:
		return "name and email are required"
	case !hasName:
		return "name is required"
	default:
		return "email is required"
	}
}
