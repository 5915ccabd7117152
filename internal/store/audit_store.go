package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditEntry struct {
	ID         string          `db:"id" json:"id"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Data       json.RawMessage `db:"data" json:"data"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log records an audit entry inside tx. data is marshalled to JSON.
func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), actorID, action, entityType, entityID, string(payload))
	return err
}

// List returns audit entries newest first, optionally for one entity.
func (s *AuditStore) List(ctx context.Context, entityType, entityID string, page Page) ([]AuditEntry, error) {
	page = page.Normalize()
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, data, created_at
		FROM audit_logs`
	args := []any{}
	if entityType != "" {
		query += ` WHERE entity_type = $1`
		args = append(args, entityType)
		if entityID != "" {
			query += ` AND entity_id = $2`
			args = append(args, entityID)
		}
	}
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, page.Limit, page.Offset)

	rows := []AuditEntry{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
