package ruleset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Fingerprint returns the content fingerprint used for cache staleness
// checks. A record carrying a precomputed marker returns it verbatim;
// otherwise the fingerprint is the SHA-256 of the RFC 8785 canonical JSON of
// identity and rules, so two records with identical content fingerprint
// identically regardless of key ordering in intermediate encodings.
func (c *Configuration) Fingerprint() (string, error) {
	if c.Marker != "" {
		return c.Marker, nil
	}
	doc := struct {
		Identity Identity `json:"identity"`
		Rules    []Rule   `json:"rules"`
	}{Identity: c.Identity, Rules: c.Rules}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint configuration %s: %w", c.Identity, err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize configuration %s: %w", c.Identity, err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
