package ruleset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffus/hyperswitch/catalog"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
)

func pair(category, value string) Value {
	return Value{Pair: catalog.Pair{Category: category, Value: value}}
}

func TestIdentity(t *testing.T) {
	t.Run("key is merchant, connector, version", func(t *testing.T) {
		id := Identity{MerchantID: "m_shoes", ConnectorID: "stripe", Version: 7}
		assert.Equal(t, "m_shoes/stripe/7", id.Key())
		assert.Equal(t, id.Key(), id.String())
	})

	t.Run("validate rejects incomplete identities", func(t *testing.T) {
		for _, id := range []Identity{
			{ConnectorID: "stripe", Version: 1},
			{MerchantID: "m_shoes", Version: 1},
			{MerchantID: "m_shoes", ConnectorID: "stripe", Version: -1},
			{MerchantID: "m/shoes", ConnectorID: "stripe", Version: 1},
			{MerchantID: "m_shoes", ConnectorID: "str/ipe", Version: 1},
		} {
			err := id.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
		require.NoError(t, Identity{MerchantID: "m", ConnectorID: "adyen", Version: 0}.Validate())
	})

	t.Run("parse key inverts key", func(t *testing.T) {
		want := Identity{MerchantID: "m_shoes", ConnectorID: "stripe", Version: 7}
		got, err := ParseKey(want.Key())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("parse key rejects malformed keys", func(t *testing.T) {
		for _, key := range []string{"", "m_shoes", "m_shoes/stripe", "m_shoes/stripe/x", "m_shoes/stripe/7/extra", "//0"} {
			_, err := ParseKey(key)
			require.Error(t, err, "key %q", key)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestRule_Unconditional(t *testing.T) {
	// The record distinguishes an absent precondition (malformed) from an
	// explicitly empty one (applies always). JSON keeps that distinction:
	// a missing field decodes to a nil slice, [] to an empty one.
	t.Run("absent field decodes to nil", func(t *testing.T) {
		var r Rule
		require.NoError(t, json.Unmarshal([]byte(`{"consequence":{"kind":"require","values":[]}}`), &r))
		assert.Nil(t, r.Precondition)
		assert.False(t, r.Unconditional())
	})

	t.Run("explicit empty list means always", func(t *testing.T) {
		var r Rule
		require.NoError(t, json.Unmarshal([]byte(`{"precondition":[],"consequence":{"kind":"require","values":[]}}`), &r))
		require.NotNil(t, r.Precondition)
		assert.True(t, r.Unconditional())
	})

	t.Run("populated precondition is conditional", func(t *testing.T) {
		r := Rule{Precondition: []Value{pair("payment_method", "wallet")}}
		assert.False(t, r.Unconditional())
	})
}

func TestConsequenceKind_Valid(t *testing.T) {
	assert.True(t, Require.Valid())
	assert.True(t, Exclude.Valid())
	assert.True(t, OneOf.Valid())
	assert.False(t, ConsequenceKind("reroute").Valid())
	assert.False(t, ConsequenceKind("").Valid())
}

func TestParseConfiguration(t *testing.T) {
	t.Run("round trips a full record", func(t *testing.T) {
		raw := []byte(`{
			"identity": {"merchant_id": "m_shoes", "connector_id": "stripe", "version": 3},
			"rules": [
				{
					"id": "wallet-us-only",
					"precondition": [{"category": "payment_method", "value": "wallet"}],
					"consequence": {"kind": "require", "values": [{"category": "country", "value": "US"}]}
				}
			],
			"fingerprint": "abc123"
		}`)
		cfg, err := ParseConfiguration(raw)
		require.NoError(t, err)
		assert.Equal(t, "m_shoes/stripe/3", cfg.Identity.Key())
		assert.Equal(t, "abc123", cfg.Marker)
		require.Len(t, cfg.Rules, 1)
		assert.Equal(t, "wallet-us-only", cfg.Rules[0].ID)
		assert.Equal(t, Require, cfg.Rules[0].Consequence.Kind)
		assert.Equal(t, "country=US", cfg.Rules[0].Consequence.Values[0].Display())
	})

	t.Run("sensitive flag survives the wire", func(t *testing.T) {
		raw := []byte(`{
			"identity": {"merchant_id": "m", "connector_id": "adyen", "version": 1},
			"rules": [{
				"precondition": [],
				"consequence": {"kind": "exclude", "values": [
					{"category": "card_network", "value": "amex", "sensitive": true}
				]}
			}]
		}`)
		cfg, err := ParseConfiguration(raw)
		require.NoError(t, err)
		assert.True(t, cfg.Rules[0].Consequence.Values[0].Sensitive)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := ParseConfiguration([]byte(`{"identity":`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid identity", func(t *testing.T) {
		_, err := ParseConfiguration([]byte(`{"identity": {"merchant_id": "m"}, "rules": []}`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestValue_JSONShape(t *testing.T) {
	// The embedded pair flattens: the schema's wire shape is
	// {"category": ..., "value": ..., "sensitive": ...}.
	out, err := json.Marshal(Value{
		Pair:      catalog.Pair{Category: "currency", Value: "USD"},
		Sensitive: false,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"currency","value":"USD"}`, string(out))
}
