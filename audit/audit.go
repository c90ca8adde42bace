// Package audit captures eligibility decisions and graph lifecycle events.
// Events are emitted from domain logic and stay transport-agnostic so stores
// and sinks can fan out.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies events by their primary purpose, which drives
// retention and routing.
type Category string

const (
	// CategoryDecision covers eligibility outcomes. These back merchant
	// disputes and compliance review, so they get long retention.
	CategoryDecision Category = "decision"

	// CategoryLifecycle covers graph compilation and invalidation. Useful
	// for debugging stale-configuration incidents; can be sampled.
	CategoryLifecycle Category = "lifecycle"
)

// Action names the thing that happened.
type Action string

const (
	ActionEligibilityChecked Action = "eligibility_checked"
	ActionGraphCompiled      Action = "graph_compiled"
	ActionGraphInvalidated   Action = "graph_invalidated"
)

var actionCategories = map[Action]Category{
	ActionEligibilityChecked: CategoryDecision,
	ActionGraphCompiled:      CategoryLifecycle,
	ActionGraphInvalidated:   CategoryLifecycle,
}

// Category returns the category for the action. Unknown actions default to
// CategoryLifecycle.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryLifecycle
}

// Event is one audit record. Reasons arrive already rendered and masked;
// nothing in this package re-inspects sensitivity.
type Event struct {
	ID          uuid.UUID     `json:"id"`
	Category    Category      `json:"category"`
	Action      Action        `json:"action"`
	Timestamp   time.Time     `json:"timestamp"`
	MerchantID  string        `json:"merchant_id"`
	ConnectorID string        `json:"connector_id,omitempty"`
	Version     int64         `json:"version,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Candidate   string        `json:"candidate,omitempty"`
	Eligible    *bool         `json:"eligible,omitempty"`
	Reasons     []string      `json:"reasons,omitempty"`
	Latency     time.Duration `json:"latency_ns,omitempty"`
	RequestID   string        `json:"request_id,omitempty"`
}
