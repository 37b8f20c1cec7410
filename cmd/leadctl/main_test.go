package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leadpipe/internal/auth"
	"github.com/JonMunkholm/leadpipe/internal/core"
	"github.com/JonMunkholm/leadpipe/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// execute runs leadctl with args and returns what it wrote.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("LEADCTL_OWNER", "")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImport_DryRun(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	path := writeFile(t, "leads.csv", "Nome,Email,Status\nAna,a@x.com,Proposta\n,b@x.com,\nCaio,c@x.com,\n")

	out, _, err := execute(t, "import", path, "--dry-run", "--owner", "op-1")
	require.NoError(t, err)
	assert.Contains(t, out, "leads.csv (csv): 3 rows read, would insert 2, rejected 1")
	assert.Contains(t, out, "line 3: name is required")
}

func TestImport_DryRunJSON(t *testing.T) {
	path := writeFile(t, "leads.csv", "name,email\nAna,a@x.com\n")

	out, _, err := execute(t, "import", path, "--dry-run", "--json", "--owner", "op-1")
	require.NoError(t, err)

	var res core.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, core.FormatCSV, res.Format)
	assert.Empty(t, res.Rejected)
}

func TestImport_Errors(t *testing.T) {
	csv := writeFile(t, "leads.csv", "name,email\nAna,a@x.com\n")
	txt := writeFile(t, "leads.txt", "name,email\n")

	_, _, err := execute(t, "import", csv, "--dry-run")
	assert.ErrorContains(t, err, "--owner is required")

	_, _, err = execute(t, "import", txt, "--dry-run", "--owner", "op-1")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, _, err = execute(t, "import", filepath.Join(t.TempDir(), "missing.csv"), "--dry-run", "--owner", "op-1")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = execute(t, "import", "--dry-run", "--owner", "op-1")
	assert.Error(t, err, "the file argument is required")
}

func TestImport_WithoutDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	path := writeFile(t, "leads.csv", "name,email\nAna,a@x.com\n")

	_, _, err := execute(t, "import", path, "--owner", "op-1")
	assert.ErrorContains(t, err, "DATABASE_URL is not set")
}

func TestExport_Validation(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	_, _, err := execute(t, "export", "--format", "pdf", "--owner", "op-1")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, _, err = execute(t, "export", "--output", "leads.json", "--owner", "op-1")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat, "the output extension selects the format")

	_, _, err = execute(t, "export", "--output", "leads.xlsx", "--owner", "op-1")
	assert.ErrorContains(t, err, "DATABASE_URL is not set")

	_, _, err = execute(t, "export")
	assert.ErrorContains(t, err, "--owner is required")
}

func TestMigrate_Args(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	_, _, err := execute(t, "migrate", "sideways")
	assert.Error(t, err)

	_, _, err = execute(t, "migrate")
	assert.Error(t, err)

	_, _, err = execute(t, "migrate", "up")
	assert.ErrorContains(t, err, "DATABASE_URL is not set")
}

func TestToken_IssuesVerifiableToken(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("AUTH_JWT_ISSUER", "")

	out, errOut, err := execute(t, "token", "op-7", "--ttl", "5m")
	require.NoError(t, err)
	assert.Contains(t, errOut, "token for op-7 expires")

	tokens, err := auth.NewTokenManager(testSecret, "leadpipe", 0)
	require.NoError(t, err)
	op, err := tokens.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "op-7", op.OwnerID)
}

func TestToken_Errors(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, _, err := execute(t, "token", "op-1")
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET is not set")

	t.Setenv("AUTH_JWT_SECRET", testSecret)
	_, _, err = execute(t, "token")
	assert.ErrorContains(t, err, "--owner is required")
}

func TestMoveLead(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	lead, err := store.InsertLead(ctx, core.LeadCandidate{Name: "Ana", Email: "a@x.com", Stage: "new", OwnerID: "op-1"})
	require.NoError(t, err)

	board := core.NewBoard(store, core.Operator("op-1"))
	require.NoError(t, board.Refresh(ctx))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&out)

	require.NoError(t, moveLead(cmd, board, lead.ID, "fechado"))
	assert.Equal(t, "Ana: new -> won\n", out.String())

	persisted, err := store.GetLead(ctx, "op-1", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StageWon, persisted.Stage)

	out.Reset()
	require.NoError(t, moveLead(cmd, board, lead.ID, "won"))
	assert.Equal(t, "Ana: already in won\n", out.String())

	assert.ErrorIs(t, moveLead(cmd, board, "missing", "won"), core.ErrLeadNotOnBoard)
	assert.ErrorIs(t, moveLead(cmd, board, lead.ID, "archived"), core.ErrUnknownStage)

	_, dragging := board.Dragging()
	assert.False(t, dragging, "every path leaves the board idle")
}
