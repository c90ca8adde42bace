// Package masking keeps sensitive values out of logs, explanations, and
// serialized output. A Secret can only reveal its value through an explicit
// Expose call; every printing and marshaling path emits the redaction token.
package masking

import (
	"encoding/json"
	"log/slog"
)

// Redacted is the token substituted for sensitive values in any
// human-readable or serialized output.
const Redacted = "***"

// Secret wraps a sensitive value. The zero value wraps T's zero value.
type Secret[T any] struct {
	inner T
}

// NewSecret wraps v.
func NewSecret[T any](v T) Secret[T] {
	return Secret[T]{inner: v}
}

// Expose returns the wrapped value. Call sites are the audit trail for
// secret access; keep them few.
func (s Secret[T]) Expose() T { return s.inner }

func (s Secret[T]) String() string   { return Redacted }
func (s Secret[T]) GoString() string { return Redacted }

// LogValue implements slog.LogValuer so a Secret passed as a log attribute
// never reaches a handler in the clear.
func (s Secret[T]) LogValue() slog.Value { return slog.StringValue(Redacted) }

// MarshalJSON always emits the redaction token.
func (s Secret[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(Redacted)
}

// UnmarshalJSON accepts a plaintext value inbound. Records arrive with real
// values; they become opaque once wrapped.
func (s *Secret[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &s.inner)
}

// Mask returns value unchanged, or the redaction token when sensitive.
func Mask(value string, sensitive bool) string {
	if sensitive {
		return Redacted
	}
	return value
}
