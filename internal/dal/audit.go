package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/metrics"
)

// AuditModel handles the append-only audit log. Entries are never
// updated or removed.
type AuditModel struct {
	store Store
}

// NewAuditModel creates a new audit model instance
func NewAuditModel(store Store) *AuditModel {
	return &AuditModel{store: store}
}

// Append records one mutating action. Action, entity, entity id and
// actor are required; details are opaque.
func (am *AuditModel) Append(ctx context.Context, action, entity, entityID, performedBy string, details map[string]interface{}) error {
	if action == "" || entity == "" || entityID == "" || performedBy == "" {
		return fmt.Errorf("%w: audit entry requires action, entity, entityId and performedBy", ErrValidation)
	}

	entry := AuditEntry{
		ID:          uuid.NewString(),
		Action:      action,
		Entity:      entity,
		EntityID:    entityID,
		PerformedBy: performedBy,
		Timestamp:   time.Now().UTC(),
		Details:     details,
	}

	if err := am.store.Insert(ctx, KindAuditLog, entry.ID, &entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	metrics.RecordAuditEntry(action)
	log.Info().
		Str("action", action).
		Str("entity", entity).
		Str("entityId", entityID).
		Str("performedBy", performedBy).
		Msg("Audit entry appended")
	return nil
}

// ListByEntity retrieves all entries for an entity id, oldest first
func (am *AuditModel) ListByEntity(ctx context.Context, entityID string) ([]AuditEntry, error) {
	docs, err := am.store.Find(ctx, KindAuditLog, Query{
		Filter: Filter{All: []Cond{{Field: "entityId", Op: OpEq, Value: entityID}}},
		Sort:   Sort{Field: "timestamp"},
	})
	if err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(docs))
	for _, doc := range docs {
		var e AuditEntry
		if err := json.Unmarshal(doc.Body, &e); err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("Failed to decode audit entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
