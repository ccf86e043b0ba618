package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const insertEntry = `
INSERT INTO audit_logs (
	id, actor, role, action, resource_type, resource_id,
	metadata, payload_digest, ip, user_agent, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

// Repository stores entries in the audit_logs table.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a Postgres audit log.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Log fills the ID, timestamp and digest when unset, then inserts the entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	entry = complete(entry, time.Now().UTC())

	var metadata []byte
	if len(entry.Metadata) > 0 {
		metadata = entry.Metadata
	}
	_, err := r.db.ExecContext(ctx, insertEntry,
		entry.ID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID,
		metadata, entry.PayloadDigest, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

func complete(entry Entry, now time.Time) Entry {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}
	return entry
}
