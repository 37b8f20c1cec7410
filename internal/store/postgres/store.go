// Package postgres is the Record Store backed by PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/leadpipe/internal/config"
	"github.com/JonMunkholm/leadpipe/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

const leadColumns = "id, name, email, phone, company, source, notes, stage, created_at, updated_at, owner_id"

const interactionColumns = "id, lead_id, kind, description, occurred_at, created_at, owner_id"

// copyColumns are the columns written by the bulk insert; timestamps take
// their defaults.
var copyColumns = []string{"id", "name", "email", "phone", "company", "source", "notes", "stage", "owner_id"}

// Open creates a connection pool from cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store implements core.Store. Every statement filters by owner_id.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// New returns a Store using pool. The caller owns the pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) QueryLeads(ctx context.Context, q core.LeadQuery) ([]core.Lead, error) {
	if q.OwnerID == "" {
		return nil, errors.New("query leads: owner id is required")
	}
	wb := NewWhereBuilder()
	wb.Add("owner_id", q.OwnerID)
	wb.Add("stage", string(q.Stage))
	where, args := wb.Build()

	query := "SELECT " + leadColumns + " FROM leads" + where + orderClause(q.OrderBy)
	return queryLeads(ctx, s.pool, query, args...)
}

func orderClause(order core.LeadOrder) string {
	switch order {
	case core.OrderCreatedAsc:
		return " ORDER BY created_at ASC, id"
	case core.OrderUpdatedDesc:
		return " ORDER BY updated_at DESC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

func (s *Store) GetLead(ctx context.Context, ownerID, id string) (core.Lead, error) {
	pgID, ok := toPgUUID(id)
	if !ok {
		return core.Lead{}, core.ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE id = $1 AND owner_id = $2", pgID, ownerID)
	return scanLeadRow(row)
}

// InsertLeads copies the batch inside one transaction and reads the rows
// back in batch order.
func (s *Store) InsertLeads(ctx context.Context, batch []core.LeadCandidate) ([]core.Lead, error) {
	if len(batch) == 0 {
		return []core.Lead{}, nil
	}

	ids := make([]pgtype.UUID, len(batch))
	rows := make([][]any, len(batch))
	for i, c := range batch {
		ids[i] = newPgUUID()
		rows[i] = []any{
			ids[i], c.Name, c.Email, c.Phone,
			toPgText(c.Company), toPgText(c.Source), toPgText(c.Notes),
			candidateStage(c), c.OwnerID,
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"leads"}, copyColumns, pgx.CopyFromRows(rows)); err != nil {
		return nil, fmt.Errorf("copy leads: %w", err)
	}

	inserted, err := queryLeads(ctx, tx,
		"SELECT "+leadColumns+" FROM leads WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	byID := make(map[string]core.Lead, len(inserted))
	for _, l := range inserted {
		byID[l.ID] = l
	}
	out := make([]core.Lead, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[uuidToString(id)]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) InsertLead(ctx context.Context, c core.LeadCandidate) (core.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO leads (id, name, email, phone, company, source, notes, stage, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+leadColumns,
		newPgUUID(), c.Name, c.Email, c.Phone,
		toPgText(c.Company), toPgText(c.Source), toPgText(c.Notes),
		candidateStage(c), c.OwnerID)
	return scanLeadRow(row)
}

func candidateStage(c core.LeadCandidate) string {
	if c.Stage == "" {
		return string(core.StageNew)
	}
	return c.Stage
}

// UpdateLead writes only the patched columns. updated_at never moves
// backward even if the database clock does.
func (s *Store) UpdateLead(ctx context.Context, ownerID, id string, patch core.LeadPatch) (core.Lead, error) {
	pgID, ok := toPgUUID(id)
	if !ok {
		return core.Lead{}, core.ErrNotFound
	}

	var set setList
	if patch.Name != nil {
		set.Set("name", *patch.Name)
	}
	if patch.Email != nil {
		set.Set("email", *patch.Email)
	}
	if patch.Phone != nil {
		set.Set("phone", *patch.Phone)
	}
	if patch.Company != nil {
		set.Set("company", toPgText(patch.Company))
	}
	if patch.Source != nil {
		set.Set("source", toPgText(patch.Source))
	}
	if patch.Notes != nil {
		set.Set("notes", toPgText(patch.Notes))
	}
	if patch.Stage != nil {
		set.Set("stage", string(*patch.Stage))
	}
	set.Raw("updated_at = GREATEST(now(), updated_at)")

	wb := newWhereBuilderAfter(len(set.args))
	wb.AddArg("id", pgID)
	wb.AddArg("owner_id", ownerID)
	where, whereArgs := wb.Build()

	query := "UPDATE leads SET " + set.String() + where + " RETURNING " + leadColumns
	row := s.pool.QueryRow(ctx, query, append(set.args, whereArgs...)...)
	return scanLeadRow(row)
}

// DeleteLead removes the lead; interactions go with it through ON DELETE CASCADE.
func (s *Store) DeleteLead(ctx context.Context, ownerID, id string) error {
	pgID, ok := toPgUUID(id)
	if !ok {
		return core.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM leads WHERE id = $1 AND owner_id = $2", pgID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) QueryInteractions(ctx context.Context, ownerID, leadID string) ([]core.Interaction, error) {
	pgID, ok := toPgUUID(leadID)
	if !ok {
		return []core.Interaction{}, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+interactionColumns+" FROM interactions WHERE lead_id = $1 AND owner_id = $2 ORDER BY created_at DESC, id",
		pgID, ownerID)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Interaction, error) {
		return scanInteraction(row)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Interaction{}
	}
	return out, nil
}

// InsertInteraction attaches in to a lead of the same owner. A lead that does
// not exist for that owner is reported as a foreign key violation.
func (s *Store) InsertInteraction(ctx context.Context, in core.Interaction) (core.Interaction, error) {
	leadID, ok := toPgUUID(in.LeadID)
	if !ok {
		return core.Interaction{}, fmt.Errorf("insert interaction: violates foreign key on lead %q", in.LeadID)
	}
	var occurredAt pgtype.Timestamptz
	if !in.OccurredAt.IsZero() {
		occurredAt = pgtype.Timestamptz{Time: in.OccurredAt, Valid: true}
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO interactions (id, lead_id, kind, description, occurred_at, owner_id)
		 SELECT $1, l.id, $3, $4, COALESCE($5, now()), l.owner_id
		 FROM leads l WHERE l.id = $2 AND l.owner_id = $6
		 RETURNING `+interactionColumns,
		newPgUUID(), leadID, string(in.Kind), in.Description, occurredAt, in.OwnerID)

	out, err := scanInteraction(row)
	if errors.Is(err, core.ErrNotFound) {
		return core.Interaction{}, fmt.Errorf("insert interaction: violates foreign key on lead %q", in.LeadID)
	}
	return out, err
}

func queryLeads(ctx context.Context, db DBTX, query string, args ...any) ([]core.Lead, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	leads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Lead, error) {
		return scanLead(row)
	})
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []core.Lead{}
	}
	return leads, nil
}

// scanLeadRow scans a single-row result, mapping no rows to ErrNotFound.
func scanLeadRow(row pgx.Row) (core.Lead, error) {
	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Lead{}, core.ErrNotFound
	}
	return l, err
}

func scanLead(row pgx.Row) (core.Lead, error) {
	var (
		l                      core.Lead
		id                     pgtype.UUID
		company, source, notes pgtype.Text
		stage                  string
	)
	err := row.Scan(&id, &l.Name, &l.Email, &l.Phone, &company, &source, &notes,
		&stage, &l.CreatedAt, &l.UpdatedAt, &l.OwnerID)
	if err != nil {
		return core.Lead{}, err
	}
	l.ID = uuidToString(id)
	l.Company = fromPgText(company)
	l.Source = fromPgText(source)
	l.Notes = fromPgText(notes)
	l.Stage = core.Stage(stage)
	return l, nil
}

func scanInteraction(row pgx.Row) (core.Interaction, error) {
	var (
		in         core.Interaction
		id, leadID pgtype.UUID
		kind       string
	)
	err := row.Scan(&id, &leadID, &kind, &in.Description, &in.OccurredAt, &in.CreatedAt, &in.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Interaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Interaction{}, err
	}
	in.ID = uuidToString(id)
	in.LeadID = uuidToString(leadID)
	in.Kind = core.InteractionKind(kind)
	return in, nil
}
