package rulestore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/rulestore/migrations"
	"github.com/riffus/hyperswitch/ruleset"
)

// Postgres persists configuration records in the merchant_rule_sets table.
// Rules are stored as JSONB next to the record's fingerprint, so reads hand
// the cache a precomputed marker instead of re-canonicalizing content.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithPostgresLogger attaches a logger.
func WithPostgresLogger(l *slog.Logger) PostgresOption {
	return func(s *Postgres) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPostgres returns a store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool, opts ...PostgresOption) *Postgres {
	s := &Postgres{
		pool:   pool,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate brings the schema up to date from the embedded migration files.
func (s *Postgres) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: set migration dialect")
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: run migrations")
	}
	s.logger.DebugContext(ctx, "rule set migrations applied")
	return nil
}

func (s *Postgres) Configuration(ctx context.Context, id ruleset.Identity) (*ruleset.Configuration, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	var (
		raw         []byte
		fingerprint string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT rules, fingerprint
		FROM merchant_rule_sets
		WHERE merchant_id = $1 AND connector_id = $2 AND version = $3
	`, id.MerchantID, id.ConnectorID, id.Version).Scan(&raw, &fingerprint)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: query configuration")
	}

	var rules []ruleset.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: decode rules")
	}
	return &ruleset.Configuration{Identity: id, Rules: rules, Marker: fingerprint}, nil
}

func (s *Postgres) Upsert(ctx context.Context, cfg *ruleset.Configuration) error {
	if cfg == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "rulestore: nil configuration")
	}
	if err := cfg.Identity.Validate(); err != nil {
		return err
	}
	fp, err := cfg.Fingerprint()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: fingerprint configuration")
	}
	rules := cfg.Rules
	if rules == nil {
		rules = []ruleset.Rule{}
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: encode rules")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO merchant_rule_sets (merchant_id, connector_id, version, rules, fingerprint)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (merchant_id, connector_id, version)
		DO UPDATE SET rules = EXCLUDED.rules, fingerprint = EXCLUDED.fingerprint, updated_at = NOW()
	`, cfg.Identity.MerchantID, cfg.Identity.ConnectorID, cfg.Identity.Version, raw, fp)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: upsert configuration")
	}
	s.logger.DebugContext(ctx, "rule set stored",
		"identity", cfg.Identity.Key(),
		"fingerprint", fp,
		"rules", len(rules),
	)
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id ruleset.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM merchant_rule_sets
		WHERE merchant_id = $1 AND connector_id = $2 AND version = $3
	`, id.MerchantID, id.ConnectorID, id.Version)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rulestore: delete configuration")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
