package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"zac/internal/configuration/models"
	"zac/internal/configuration/resolver"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
	txcontext "zac/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists configurations in PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	q       txcontext.Querier
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed configuration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

const selectConfiguration = `
	SELECT case_type_version_id, case_type_description, human_task_definitions,
	       user_event_listener_definitions, completion_reasons, default_group, default_user,
	       allowed_senders, default_sender, may_link_citizen_registry, may_link_business_registry,
	       placeholder, created_at, updated_at
	FROM case_type_configurations`

func (s *PostgresStore) FindByVersionID(ctx context.Context, versionID id.CaseTypeVersionID) (*models.Configuration, error) {
	row := s.q.QueryRowContext(ctx, selectConfiguration+` WHERE case_type_version_id = $1`, uuid.UUID(versionID))
	cfg, err := scanConfiguration(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadBindings(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresStore) FindLatestByDescription(ctx context.Context, description string) (*models.Configuration, error) {
	row := s.q.QueryRowContext(ctx, selectConfiguration+`
		WHERE case_type_description = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, description)
	cfg, err := scanConfiguration(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadBindings(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresStore) Create(ctx context.Context, cfg *models.Configuration) error {
	reasons, err := json.Marshal(cfg.CompletionReasons)
	if err != nil {
		return fmt.Errorf("marshal completion reasons: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO case_type_configurations (
			case_type_version_id, case_type_description, human_task_definitions,
			user_event_listener_definitions, completion_reasons, default_group, default_user,
			allowed_senders, default_sender, may_link_citizen_registry, may_link_business_registry,
			placeholder, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(cfg.CaseTypeVersionID),
		cfg.CaseTypeDescription,
		pq.Array(nonNil(cfg.HumanTaskDefinitions)),
		pq.Array(nonNil(cfg.UserEventListenerDefinitions)),
		reasons,
		cfg.DefaultGroup,
		cfg.DefaultUser,
		pq.Array(nonNil(cfg.SenderPolicy.Allowed)),
		cfg.SenderPolicy.Default,
		cfg.LinkingPolicy.MayLinkCitizenRegistry,
		cfg.LinkingPolicy.MayLinkBusinessRegistry,
		cfg.Placeholder,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert configuration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, cfg *models.Configuration) error {
	reasons, err := json.Marshal(cfg.CompletionReasons)
	if err != nil {
		return fmt.Errorf("marshal completion reasons: %w", err)
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE case_type_configurations SET
			human_task_definitions = $2,
			user_event_listener_definitions = $3,
			completion_reasons = $4,
			default_group = $5,
			default_user = $6,
			allowed_senders = $7,
			default_sender = $8,
			may_link_citizen_registry = $9,
			may_link_business_registry = $10,
			placeholder = $11,
			updated_at = $12
		WHERE case_type_version_id = $1`,
		uuid.UUID(cfg.CaseTypeVersionID),
		pq.Array(nonNil(cfg.HumanTaskDefinitions)),
		pq.Array(nonNil(cfg.UserEventListenerDefinitions)),
		reasons,
		cfg.DefaultGroup,
		cfg.DefaultUser,
		pq.Array(nonNil(cfg.SenderPolicy.Allowed)),
		cfg.SenderPolicy.Default,
		cfg.LinkingPolicy.MayLinkCitizenRegistry,
		cfg.LinkingPolicy.MayLinkBusinessRegistry,
		cfg.Placeholder,
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CopyBindings(ctx context.Context, from, to id.CaseTypeVersionID) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO configuration_template_bindings (case_type_version_id, mail_kind, template_id)
		SELECT $2, mail_kind, template_id
		FROM configuration_template_bindings
		WHERE case_type_version_id = $1
		ON CONFLICT (case_type_version_id, mail_kind) DO NOTHING`,
		uuid.UUID(from), uuid.UUID(to))
	if err != nil {
		return fmt.Errorf("copy template bindings: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReplaceBindings(ctx context.Context, versionID id.CaseTypeVersionID, bindings map[string]string) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM configuration_template_bindings WHERE case_type_version_id = $1`,
		uuid.UUID(versionID)); err != nil {
		return fmt.Errorf("clear template bindings: %w", err)
	}
	for kind, tmpl := range bindings {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO configuration_template_bindings (case_type_version_id, mail_kind, template_id)
			VALUES ($1, $2, $3)`,
			uuid.UUID(versionID), kind, tmpl); err != nil {
			return fmt.Errorf("insert template binding: %w", err)
		}
	}
	return nil
}

// RunInTx runs fn in one database transaction holding an advisory lock on key,
// so migrations for the same case-type description never interleave.
func (s *PostgresStore) RunInTx(ctx context.Context, key string, fn func(store resolver.Store) error) error {
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
		return fmt.Errorf("begin configuration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("acquire configuration lock: %w", err)
	}
	if err := fn(&PostgresStore{db: s.db, q: tx, timeout: s.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("commit configuration tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadBindings(ctx context.Context, cfg *models.Configuration) error {
	rows, err := s.q.QueryContext(ctx, `
		SELECT mail_kind, template_id
		FROM configuration_template_bindings
		WHERE case_type_version_id = $1`, uuid.UUID(cfg.CaseTypeVersionID))
	if err != nil {
		return fmt.Errorf("query template bindings: %w", err)
	}
	defer rows.Close()

	cfg.MailTemplateBindings = map[string]string{}
	for rows.Next() {
		var kind, tmpl string
		if err := rows.Scan(&kind, &tmpl); err != nil {
			return fmt.Errorf("scan template binding: %w", err)
		}
		cfg.MailTemplateBindings[kind] = tmpl
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate template bindings: %w", err)
	}
	return nil
}

func scanConfiguration(row *sql.Row) (*models.Configuration, error) {
	var (
		cfg       models.Configuration
		versionID uuid.UUID
		reasons   []byte
	)
	err := row.Scan(
		&versionID,
		&cfg.CaseTypeDescription,
		pq.Array(&cfg.HumanTaskDefinitions),
		pq.Array(&cfg.UserEventListenerDefinitions),
		&reasons,
		&cfg.DefaultGroup,
		&cfg.DefaultUser,
		pq.Array(&cfg.SenderPolicy.Allowed),
		&cfg.SenderPolicy.Default,
		&cfg.LinkingPolicy.MayLinkCitizenRegistry,
		&cfg.LinkingPolicy.MayLinkBusinessRegistry,
		&cfg.Placeholder,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan configuration: %w", err)
	}
	cfg.CaseTypeVersionID = id.CaseTypeVersionID(versionID)
	cfg.CompletionReasons = map[id.EndingReasonID]models.CompletionReason{}
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &cfg.CompletionReasons); err != nil {
			return nil, fmt.Errorf("unmarshal completion reasons: %w", err)
		}
	}
	return &cfg, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
