package core

// validation.go checks operator input from the lead and interaction forms.
// Import rows are not validated here; Normalize and the importer decide
// acceptance for those.

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ValidationError represents a single invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"` // the rejected value, if any
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one submission.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidation reports whether err is a ValidationError or ValidationErrors.
func IsValidation(err error) bool {
	var one ValidationError
	var many ValidationErrors
	return errors.As(err, &one) || errors.As(err, &many)
}

// LeadInput is a lead form submission.
type LeadInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Company *string `json:"company"`
	Source  *string `json:"source"`
	Notes   *string `json:"notes"`
	Stage   string  `json:"stage"`
}

// candidate validates the input and builds a candidate for op.
func (in LeadInput) candidate(op OperatorContext) (LeadCandidate, error) {
	var errs ValidationErrors
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "required field is empty"})
	}
	if email == "" {
		errs = append(errs, ValidationError{Field: "email", Message: "required field is empty"})
	} else if !strings.Contains(email, "@") {
		errs = append(errs, ValidationError{Field: "email", Value: email, Message: "invalid email address"})
	}

	stage := StageNew
	if strings.TrimSpace(in.Stage) != "" {
		st, err := ParseStage(in.Stage)
		if err != nil {
			errs = append(errs, ValidationError{Field: "stage", Value: in.Stage, Message: err.Error()})
		}
		stage = st
	}
	if err := errs.orNil(); err != nil {
		return LeadCandidate{}, err
	}

	return LeadCandidate{
		Name:    name,
		Email:   email,
		Phone:   FormatPhone(in.Phone),
		Company: optional(deref(in.Company)),
		Source:  optional(deref(in.Source)),
		Notes:   optional(deref(in.Notes)),
		Stage:   string(stage),
		OwnerID: op.OwnerID,
	}, nil
}

// LeadUpdate is a field-edit submission; nil fields are left alone.
type LeadUpdate struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
	Source  *string `json:"source"`
	Notes   *string `json:"notes"`
	Stage   *string `json:"stage"`
}

func (u LeadUpdate) patch() (LeadPatch, error) {
	var errs ValidationErrors
	p := LeadPatch{Company: u.Company, Source: u.Source, Notes: u.Notes}

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			errs = append(errs, ValidationError{Field: "name", Message: "required field is empty"})
		}
		p.Name = &name
	}
	if u.Email != nil {
		email := strings.TrimSpace(*u.Email)
		switch {
		case email == "":
			errs = append(errs, ValidationError{Field: "email", Message: "required field is empty"})
		case !strings.Contains(email, "@"):
			errs = append(errs, ValidationError{Field: "email", Value: email, Message: "invalid email address"})
		}
		p.Email = &email
	}
	if u.Phone != nil {
		phone := FormatPhone(*u.Phone)
		p.Phone = &phone
	}
	if u.Stage != nil {
		st, err := ParseStage(*u.Stage)
		if err != nil {
			errs = append(errs, ValidationError{Field: "stage", Value: *u.Stage, Message: err.Error()})
		}
		p.Stage = &st
	}
	if err := errs.orNil(); err != nil {
		return LeadPatch{}, err
	}
	if p.Empty() {
		return LeadPatch{}, ValidationError{Message: "no fields to update"}
	}
	return p, nil
}

// InteractionInput is an interaction form submission.
type InteractionInput struct {
	Kind        string     `json:"kind"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

func (in InteractionInput) interaction(op OperatorContext, leadID string, now time.Time) (Interaction, error) {
	var errs ValidationErrors
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		errs = append(errs, ValidationError{Field: "description", Message: "required field is empty"})
	}
	kind := KindOther
	if strings.TrimSpace(in.Kind) != "" {
		k, err := ParseInteractionKind(in.Kind)
		if err != nil {
			errs = append(errs, ValidationError{Field: "kind", Value: in.Kind, Message: err.Error()})
		}
		kind = k
	}
	if err := errs.orNil(); err != nil {
		return Interaction{}, err
	}

	occurred := now
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		occurred = *in.OccurredAt
	}
	return Interaction{
		LeadID:      leadID,
		Kind:        kind,
		Description: desc,
		OccurredAt:  occurred,
		OwnerID:     op.OwnerID,
	}, nil
}

// FormatPhone keeps the digits of s and punctuates Brazilian numbers:
// 10 digits become (dd) dddd-dddd and 11 digits (dd) ddddd-dddd. Any other
// length is returned as bare digits.
func FormatPhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	d := b.String()
	switch len(d) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:6], d[6:])
	case 11:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:7], d[7:])
	default:
		return d
	}
}
