package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	settlement "delivery-settlement/internal/settlement/domain"
)

type fakeTx struct {
	rolledBack bool
}

func (tx *fakeTx) Rollback() error {
	tx.rolledBack = true
	return nil
}

func TestAbortCreate_ClearsAssignedID(t *testing.T) {
	lineFailed := errors.New("line insert failed")
	tx := &fakeTx{}
	s := &settlement.Settlement{ID: 42}

	err := abortCreate(tx, s, lineFailed)

	assert.ErrorIs(t, err, lineFailed)
	assert.True(t, tx.rolledBack)
	assert.Zero(t, s.ID)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: uniqueViolation}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
