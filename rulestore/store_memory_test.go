package rulestore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/riffus/hyperswitch/catalog"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
	"github.com/riffus/hyperswitch/ruleset"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Memory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
}

func storeIdentity(version int64) ruleset.Identity {
	return ruleset.Identity{MerchantID: "m_shoes", ConnectorID: "stripe", Version: version}
}

func storeConfig(version int64, marker string) *ruleset.Configuration {
	return &ruleset.Configuration{
		Identity: storeIdentity(version),
		Rules: []ruleset.Rule{{
			ID:           "wallet-us",
			Precondition: []ruleset.Value{{Pair: catalog.Pair{Category: "payment_method", Value: "wallet"}}},
			Consequence: ruleset.Consequence{
				Kind:   ruleset.Require,
				Values: []ruleset.Value{{Pair: catalog.Pair{Category: "country", Value: "US"}}},
			},
		}},
		Marker: marker,
	}
}

// === Round trips ===

func (s *MemoryStoreSuite) TestUpsertThenConfiguration() {
	cfg := storeConfig(1, "rev-1")
	s.Require().NoError(s.store.Upsert(s.ctx, cfg))

	got, err := s.store.Configuration(s.ctx, storeIdentity(1))
	s.Require().NoError(err)
	s.Equal(cfg.Identity, got.Identity)
	s.Equal(cfg.Rules, got.Rules)
	s.Equal("rev-1", got.Marker)
}

func (s *MemoryStoreSuite) TestUpsertReplaces() {
	s.Require().NoError(s.store.Upsert(s.ctx, storeConfig(1, "rev-1")))
	s.Require().NoError(s.store.Upsert(s.ctx, storeConfig(1, "rev-2")))

	got, err := s.store.Configuration(s.ctx, storeIdentity(1))
	s.Require().NoError(err)
	s.Equal("rev-2", got.Marker)
}

func (s *MemoryStoreSuite) TestVersionsAreDistinctRecords() {
	s.Require().NoError(s.store.Upsert(s.ctx, storeConfig(1, "rev-1")))
	s.Require().NoError(s.store.Upsert(s.ctx, storeConfig(2, "rev-2")))

	got, err := s.store.Configuration(s.ctx, storeIdentity(1))
	s.Require().NoError(err)
	s.Equal("rev-1", got.Marker)
	got, err = s.store.Configuration(s.ctx, storeIdentity(2))
	s.Require().NoError(err)
	s.Equal("rev-2", got.Marker)
}

func (s *MemoryStoreSuite) TestReturnedRecordIsDetached() {
	s.Require().NoError(s.store.Upsert(s.ctx, storeConfig(1, "rev-1")))

	got, err := s.store.Configuration(s.ctx, storeIdentity(1))
	s.Require().NoError(err)
	got.Rules[0].ID = "tampered"
	got.Marker = "tampered"

	fresh, err := s.store.Configuration(s.ctx, storeIdentity(1))
	s.Require().NoError(err)
	s.Equal("wallet-us", fresh.Rules[0].ID)
	s.Equal("rev-1", fresh.Marker)
}

// === Absence and validation ===

func (s *MemoryStoreSuite) TestMissingConfigurationIsNotFound() {
	_, err := s.store.Configuration(s.ctx, storeIdentity(9))
	s.Require().ErrorIs(err, ErrNotFound)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestInvalidIdentityRejected() {
	_, err := s.store.Configuration(s.ctx, ruleset.Identity{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	s.Require().Error(s.store.Upsert(s.ctx, &ruleset.Configuration{}))
	s.Require().Error(s.store.Delete(s.ctx, ruleset.Identity{}))
}

func (s *MemoryStoreSuite) TestNilConfigurationRejected() {
	err := s.store.Upsert(s.ctx, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// === Deletion ===

func (s *MemoryStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Upsert(s.ctx, storeConfig(1, "rev-1")))
	s.Require().NoError(s.store.Delete(s.ctx, storeIdentity(1)))

	_, err := s.store.Configuration(s.ctx, storeIdentity(1))
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *MemoryStoreSuite) TestDeleteMissingIsNotFound() {
	s.Require().ErrorIs(s.store.Delete(s.ctx, storeIdentity(1)), ErrNotFound)
}

// === Concurrency ===

func (s *MemoryStoreSuite) TestConcurrentReadersAndWriters() {
	s.Require().NoError(s.store.Upsert(s.ctx, storeConfig(1, "rev-0")))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.store.Upsert(s.ctx, storeConfig(1, "rev-x"))
			_ = s.store.Upsert(s.ctx, storeConfig(int64(i+2), "rev-y"))
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = s.store.Configuration(s.ctx, storeIdentity(1))
			}
		}()
	}
	wg.Wait()

	got, err := s.store.Configuration(s.ctx, storeIdentity(1))
	s.Require().NoError(err)
	s.NotEmpty(got.Marker)
}
