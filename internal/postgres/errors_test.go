package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestViolation(t *testing.T) {
	check := &pgconn.PgError{Code: "23514", ConstraintName: "transactions_amount_check"}
	name, ok := Violation(fmt.Errorf("insert: %w", check))
	assert.True(t, ok)
	assert.Equal(t, "transactions_amount_check", name)

	_, ok = Violation(&pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"})
	assert.True(t, ok)

	_, ok = Violation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = Violation(errors.New("boom"))
	assert.False(t, ok)
}
