// Package ruleset models merchant/connector configuration records: the rules a
// merchant declares for a connector, addressed by identity and fingerprinted
// for cache staleness checks. The record shape is owned by the configuration
// schema; this package consumes it and stays agnostic of rule meaning.
package ruleset

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/riffus/hyperswitch/catalog"
	dErrors "github.com/riffus/hyperswitch/pkg/domain-errors"
)

// Identity addresses one configuration: a merchant, one of its connectors,
// and the configuration version active for that pair.
type Identity struct {
	MerchantID  string `json:"merchant_id"`
	ConnectorID string `json:"connector_id"`
	Version     int64  `json:"version"`
}

// Key returns the canonical cache key for this identity.
func (id Identity) Key() string {
	return id.MerchantID + "/" + id.ConnectorID + "/" + strconv.FormatInt(id.Version, 10)
}

func (id Identity) String() string { return id.Key() }

// Validate rejects identities that cannot address a configuration. The slash
// is reserved as the Key separator, so neither component may contain one.
func (id Identity) Validate() error {
	if id.MerchantID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identity: empty merchant id")
	}
	if id.ConnectorID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identity: empty connector id")
	}
	if strings.ContainsRune(id.MerchantID, '/') || strings.ContainsRune(id.ConnectorID, '/') {
		return dErrors.New(dErrors.CodeInvalidInput, "identity: id components must not contain '/'")
	}
	if id.Version < 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "identity: negative version %d", id.Version)
	}
	return nil
}

// ParseKey decodes a key produced by Identity.Key.
func ParseKey(key string) (Identity, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return Identity{}, dErrors.Newf(dErrors.CodeInvalidInput, "identity: malformed key %q", key)
	}
	version, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Identity{}, dErrors.Newf(dErrors.CodeInvalidInput, "identity: malformed version in key %q", key)
	}
	id := Identity{MerchantID: parts[0], ConnectorID: parts[1], Version: version}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Value is a domain pair as it appears in a rule. Sensitive values never
// surface in explanations or audit reasons.
type Value struct {
	catalog.Pair `yaml:",inline"`
	Sensitive    bool `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
}

// Display returns the pair rendered for humans, with sensitive values masked
// by the caller's masking helper at the point of use.
func (v Value) Display() string { return v.Pair.String() }

// ConsequenceKind states what a rule demands once its precondition holds.
type ConsequenceKind string

const (
	// Require demands every consequence value hold.
	Require ConsequenceKind = "require"
	// Exclude forbids every consequence value from being asserted.
	Exclude ConsequenceKind = "exclude"
	// OneOf demands at least one consequence value hold.
	OneOf ConsequenceKind = "one_of"
)

// Valid reports whether k is a recognized kind.
func (k ConsequenceKind) Valid() bool {
	switch k {
	case Require, Exclude, OneOf:
		return true
	}
	return false
}

// Consequence is the demand side of a rule.
type Consequence struct {
	Kind   ConsequenceKind `json:"kind"`
	Values []Value         `json:"values"`
}

// Rule states: when every precondition value is asserted, the consequence
// must hold. An empty (non-nil) precondition means the rule is unconditional;
// a nil precondition means the field was absent from the record, which is
// malformed and rejected by the compiler.
type Rule struct {
	ID           string      `json:"id,omitempty"`
	Precondition []Value     `json:"precondition"`
	Consequence  Consequence `json:"consequence"`
}

// Unconditional reports whether the rule applies to every candidate.
func (r Rule) Unconditional() bool {
	return r.Precondition != nil && len(r.Precondition) == 0
}

// Configuration is one merchant/connector rule record. Marker, when present,
// is the fingerprint precomputed by the schema component; Fingerprint falls
// back to computing one from content.
type Configuration struct {
	Identity Identity `json:"identity"`
	Rules    []Rule   `json:"rules"`
	Marker   string   `json:"fingerprint,omitempty"`
}

// ParseConfiguration decodes a serialized record and validates its identity.
// Rule shape problems are left to the compiler, which reports them per rule.
func ParseConfiguration(raw []byte) (*Configuration, error) {
	var cfg Configuration
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse configuration")
	}
	if err := cfg.Identity.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
