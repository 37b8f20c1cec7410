package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func strp(s string) *string { return &s }

func TestNormalize(t *testing.T) {
	op := Operator("op-1")

	tests := []struct {
		name   string
		row    RawRow
		want   LeadCandidate
		accept bool
	}{
		{
			name:   "portuguese headers",
			row:    RawRow{"Nome": "Ana", "Email": "a@x.com"},
			want:   LeadCandidate{Name: "Ana", Email: "a@x.com", Stage: "new", OwnerID: "op-1"},
			accept: true,
		},
		{
			name:   "empty name rejected",
			row:    RawRow{"Nome": "", "Email": "a@x.com"},
			accept: false,
		},
		{
			name:   "whitespace name rejected",
			row:    RawRow{"name": "   ", "email": "a@x.com"},
			accept: false,
		},
		{
			name:   "missing email rejected",
			row:    RawRow{"name": "Ana"},
			accept: false,
		},
		{
			name: "lower case english headers with every field",
			row: RawRow{
				"name": "Ana", "email": "a@x.com", "phone": "11 98765-4321",
				"company": "Acme", "status": "QUALIFIED", "source": "site", "notes": "hot",
			},
			want: LeadCandidate{
				Name: "Ana", Email: "a@x.com", Phone: "11 98765-4321",
				Company: strp("Acme"), Source: strp("site"), Notes: strp("hot"),
				Stage: "qualified", OwnerID: "op-1",
			},
			accept: true,
		},
		{
			name:   "literal key wins over capitalized variant",
			row:    RawRow{"name": "lower", "Name": "Upper", "email": "a@x.com"},
			want:   LeadCandidate{Name: "lower", Email: "a@x.com", Stage: "new", OwnerID: "op-1"},
			accept: true,
		},
		{
			name:   "empty alias falls through to next",
			row:    RawRow{"name": "", "Nome": "Ana", "Email": "a@x.com"},
			want:   LeadCandidate{Name: "Ana", Email: "a@x.com", Stage: "new", OwnerID: "op-1"},
			accept: true,
		},
		{
			name:   "non string values ignored",
			row:    RawRow{"name": 42, "Name": "Ana", "email": "a@x.com", "phone": 11987654321.0},
			want:   LeadCandidate{Name: "Ana", Email: "a@x.com", Stage: "new", OwnerID: "op-1"},
			accept: true,
		},
		{
			name:   "unknown stage kept lower-cased",
			row:    RawRow{"name": "Ana", "email": "a@x.com", "Stage": "Pending"},
			want:   LeadCandidate{Name: "Ana", Email: "a@x.com", Stage: "pending", OwnerID: "op-1"},
			accept: true,
		},
		{
			name:   "upper case keys are not aliases",
			row:    RawRow{"NAME": "Ana", "EMAIL": "a@x.com"},
			accept: false,
		},
		{
			name:   "values trimmed",
			row:    RawRow{"name": "  Ana ", "email": " a@x.com", "company": "  "},
			want:   LeadCandidate{Name: "Ana", Email: "a@x.com", Stage: "new", OwnerID: "op-1"},
			accept: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.row, op)
			if ok != tt.accept {
				t.Fatalf("Normalize() accepted = %v, want %v", ok, tt.accept)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_StageDefaultsToNew(t *testing.T) {
	got, ok := Normalize(RawRow{"name": "Ana", "email": "a@x.com", "phone": "1"}, Operator("op"))
	if !ok {
		t.Fatal("row rejected")
	}
	if got.Stage != "new" {
		t.Errorf("Stage = %q, want %q", got.Stage, "new")
	}
}

func TestRejectReason(t *testing.T) {
	tests := []struct {
		row  RawRow
		want string
	}{
		{RawRow{}, "name and email are required"},
		{RawRow{"email": "a@x.com"}, "name is required"},
		{RawRow{"name": "Ana"}, "email is required"},
	}
	for _, tt := range tests {
		if got := rejectReason(tt.row); got != tt.want {
			t.Errorf("rejectReason(%v) = %q, want %q", tt.row, got, tt.want)
		}
	}
}

func TestAliases_ReturnsCopy(t *testing.T) {
	a := Aliases("name")
	if len(a) == 0 {
		t.Fatal("no aliases for name")
	}
	a[0] = "changed"
	if Aliases("name")[0] != "name" {
		t.Error("Aliases exposed the internal table")
	}
	if Aliases("nope") != nil {
		t.Error("Aliases(unknown) should be nil")
	}
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		in      string
		want    Stage
		wantErr bool
	}{
		{"new", StageNew, false},
		{"WON", StageWon, false},
		{" proposta ", StageProposal, false},
		{"fechado", StageWon, false},
		{"perdido", StageLost, false},
		{"pending", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStage(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
