package audit

import (
	"context"
	"log/slog"

	"github.com/riffus/hyperswitch/pkg/attrs"
)

// Log writes a lifecycle event to the structured logger and, when an emitter
// is wired, to the audit trail. Identity fields are extracted from the
// attribute list so call sites state them once and both outputs agree.
func Log(ctx context.Context, logger *slog.Logger, emitter Emitter, action Action, attrList ...any) {
	if logger != nil {
		args := append(attrList, "event", string(action), "log_type", "audit")
		logger.InfoContext(ctx, string(action), args...)
	}
	if emitter == nil {
		return
	}
	err := emitter.Emit(ctx, Event{
		Action:      action,
		MerchantID:  attrs.ExtractString(attrList, "merchant_id"),
		ConnectorID: attrs.ExtractString(attrList, "connector_id"),
		Version:     attrs.ExtractInt64(attrList, "version"),
		Fingerprint: attrs.ExtractString(attrList, "fingerprint"),
		RequestID:   attrs.ExtractString(attrList, "request_id"),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emission failed", "event", string(action), "error", err)
	}
}
