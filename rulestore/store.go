// Package rulestore persists merchant rule configurations. The eligibility
// service reads through it on every check, so both backends implement
// eligibility.Source.
package rulestore

import (
	"context"

	"github.com/riffus/hyperswitch/eligibility"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/ruleset"
)

// ErrNotFound keeps storage 404s consistent across backends.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "configuration not found")

// Store reads and writes configuration records keyed by identity.
type Store interface {
	Configuration(ctx context.Context, id ruleset.Identity) (*ruleset.Configuration, error)
	Upsert(ctx context.Context, cfg *ruleset.Configuration) error
	Delete(ctx context.Context, id ruleset.Identity) error
}

var (
	_ Store              = (*Memory)(nil)
	_ Store              = (*Postgres)(nil)
	_ eligibility.Source = (*Memory)(nil)
	_ eligibility.Source = (*Postgres)(nil)
)
