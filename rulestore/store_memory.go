package rulestore

import (
	"context"
	"sync"

	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/ruleset"
)

// Memory is a mutex-guarded map store for tests and embedded use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*ruleset.Configuration
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*ruleset.Configuration)}
}

func (s *Memory) Configuration(_ context.Context, id ruleset.Identity) (*ruleset.Configuration, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.records[id.Key()]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConfiguration(cfg), nil
}

func (s *Memory) Upsert(_ context.Context, cfg *ruleset.Configuration) error {
	if cfg == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "rulestore: nil configuration")
	}
	if err := cfg.Identity.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[cfg.Identity.Key()] = cloneConfiguration(cfg)
	return nil
}

func (s *Memory) Delete(_ context.Context, id ruleset.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.Key()
	if _, ok := s.records[key]; !ok {
		return ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// cloneConfiguration detaches the rule slice so callers cannot mutate stored
// records through returned or retained pointers.
func cloneConfiguration(cfg *ruleset.Configuration) *ruleset.Configuration {
	out := *cfg
	out.Rules = make([]ruleset.Rule, len(cfg.Rules))
	copy(out.Rules, cfg.Rules)
	return &out
}
