package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"zac/internal/platform/outbox"
	"zac/internal/zaak/models"
	"zac/internal/zaak/ports"
	"zac/internal/zaak/relation"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
	txcontext "zac/pkg/platform/tx"
)

const uniqueViolation = "23505"

// parentTreeLock is the advisory lock key serializing parent-link writes.
const parentTreeLock = "case_parent_links"

// PostgresStore persists cases and relations in PostgreSQL. Every method joins
// the transaction carried by ctx when there is one.
type PostgresStore struct {
	db      *sql.DB
	outbox  *outbox.PostgresStore
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, outbox: outbox.NewPostgres(db)}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), ports.Stores{Cases: s, Relations: s, Outbox: s.outbox}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const caseColumns = `id, identification, case_type_version_id, status, start_date,
	planned_completion_date, ultimate_completion_date, suspension_start,
	suspension_expected_days, cumulative_suspended_days, assigned_group, assigned_user,
	result_type_ref, end_date, reopened, version, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c            models.Case
		caseID       uuid.UUID
		versionID    uuid.UUID
		status       string
		assignedUser sql.NullString
		resultType   uuid.NullUUID
	)
	err := row.Scan(&caseID, &c.Identification, &versionID, &status, &c.StartDate,
		&c.PlannedCompletionDate, &c.UltimateCompletionDate, &c.SuspensionStart,
		&c.SuspensionExpectedDays, &c.CumulativeSuspendedDays, &c.AssignedGroup, &assignedUser,
		&resultType, &c.EndDate, &c.Reopened, &c.Version, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ID = id.CaseID(caseID)
	c.CaseTypeVersionID = id.CaseTypeVersionID(versionID)
	c.Status = models.Status(status)
	c.AssignedUser = assignedUser.String
	if resultType.Valid {
		ref := id.ResultTypeRef(resultType.UUID)
		c.ResultTypeRef = &ref
	}
	return &c, nil
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.Case, error) {
	row := txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE `+where, arg)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	return s.findOne(ctx, "id = $1", uuid.UUID(caseID))
}

func (s *PostgresStore) FindByIdentification(ctx context.Context, identification string) (*models.Case, error) {
	return s.findOne(ctx, "identification = $1", identification)
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Case) error {
	if c.Version == 0 {
		c.Version = 1
	}
	_, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, caseArgs(c)...)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// Update writes c when the stored version still equals expectedVersion.
func (s *PostgresStore) Update(ctx context.Context, c *models.Case, expectedVersion int64) error {
	q := txcontext.QuerierFrom(ctx, s.db)
	args := caseArgs(c)
	args[15] = expectedVersion + 1
	args = append(args, expectedVersion)
	res, err := q.ExecContext(ctx, `
		UPDATE cases SET
			identification = $2, case_type_version_id = $3, status = $4, start_date = $5,
			planned_completion_date = $6, ultimate_completion_date = $7, suspension_start = $8,
			suspension_expected_days = $9, cumulative_suspended_days = $10, assigned_group = $11,
			assigned_user = $12, result_type_ref = $13, end_date = $14, reopened = $15,
			version = $16, updated_at = $17
		WHERE id = $1 AND version = $18
	`, args...)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, uuid.UUID(c.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check case: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStale
	}
	c.Version = expectedVersion + 1
	return nil
}

func caseArgs(c *models.Case) []any {
	var assignedUser sql.NullString
	if c.AssignedUser != "" {
		assignedUser = sql.NullString{String: c.AssignedUser, Valid: true}
	}
	var resultType uuid.NullUUID
	if c.ResultTypeRef != nil {
		resultType = uuid.NullUUID{UUID: uuid.UUID(*c.ResultTypeRef), Valid: true}
	}
	return []any{
		uuid.UUID(c.ID), c.Identification, uuid.UUID(c.CaseTypeVersionID), string(c.Status), c.StartDate,
		c.PlannedCompletionDate, c.UltimateCompletionDate, c.SuspensionStart,
		c.SuspensionExpectedDays, c.CumulativeSuspendedDays, c.AssignedGroup, assignedUser,
		resultType, c.EndDate, c.Reopened, c.Version, c.UpdatedAt,
	}
}

func (s *PostgresStore) AddRelation(ctx context.Context, r models.CaseRelation) (bool, error) {
	res, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO case_relations (source_id, target_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id, target_id, kind) DO NOTHING
	`, uuid.UUID(r.SourceID), uuid.UUID(r.TargetID), string(r.Kind))
	if err != nil {
		return false, fmt.Errorf("insert relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert relation: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) RemoveRelation(ctx context.Context, r models.CaseRelation) error {
	res, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		DELETE FROM case_relations WHERE source_id = $1 AND target_id = $2 AND kind = $3
	`, uuid.UUID(r.SourceID), uuid.UUID(r.TargetID), string(r.Kind))
	if err != nil {
		return fmt.Errorf("delete relation: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) ListRelations(ctx context.Context, source id.CaseID) ([]models.CaseRelation, error) {
	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, `
		SELECT source_id, target_id, kind FROM case_relations
		WHERE source_id = $1
		ORDER BY created_at, target_id, kind
	`, uuid.UUID(source))
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	out := []models.CaseRelation{}
	for rows.Next() {
		var src, dst uuid.UUID
		var kind string
		if err := rows.Scan(&src, &dst, &kind); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, models.CaseRelation{SourceID: id.CaseID(src), TargetID: id.CaseID(dst), Kind: models.RelationKind(kind)})
	}
	return out, rows.Err()
}

func (s *PostgresStore) ParentOf(ctx context.Context, child id.CaseID) (id.CaseID, error) {
	var parent uuid.UUID
	err := txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT parent_id FROM case_parent_links WHERE child_id = $1`, uuid.UUID(child)).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return id.CaseID{}, sentinel.ErrNotFound
	}
	if err != nil {
		return id.CaseID{}, fmt.Errorf("find parent: %w", err)
	}
	return id.CaseID(parent), nil
}

// SetParent serializes parent-link writes with a transaction-scoped advisory
// lock and re-checks for a cycle under that lock.
func (s *PostgresStore) SetParent(ctx context.Context, link models.ParentLink) error {
	q := txcontext.QuerierFrom(ctx, s.db)
	if _, ok := txcontext.From(ctx); ok {
		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, parentTreeLock); err != nil {
			return fmt.Errorf("lock parent tree: %w", err)
		}
	}

	var cycle bool
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors (id, depth) AS (
			SELECT $2::uuid, 0
			UNION ALL
			SELECT l.parent_id, a.depth + 1
			FROM case_parent_links l
			JOIN ancestors a ON l.child_id = a.id
			WHERE a.depth < $3
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $1)
	`, uuid.UUID(link.ChildID), uuid.UUID(link.ParentID), maxAncestors).Scan(&cycle)
	if err != nil {
		return fmt.Errorf("check parent cycle: %w", err)
	}
	if cycle {
		return relation.ErrCycle
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO case_parent_links (child_id, parent_id) VALUES ($1, $2)
	`, uuid.UUID(link.ChildID), uuid.UUID(link.ParentID))
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert parent link: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearParent(ctx context.Context, child id.CaseID) error {
	res, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM case_parent_links WHERE child_id = $1`, uuid.UUID(child))
	if err != nil {
		return fmt.Errorf("delete parent link: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) ChildrenOf(ctx context.Context, parent id.CaseID) ([]id.CaseID, error) {
	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT child_id FROM case_parent_links WHERE parent_id = $1 ORDER BY child_id`, uuid.UUID(parent))
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	out := []id.CaseID{}
	for rows.Next() {
		var child uuid.UUID
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		out = append(out, id.CaseID(child))
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
