package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/docflow/internal/database"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, database.IsUniqueViolation(unique))
	assert.True(t, database.IsUniqueViolation(fmt.Errorf("creating record: %w", unique)))
	assert.False(t, database.IsUniqueViolation(fk))
	assert.False(t, database.IsUniqueViolation(errors.New("23505")))
	assert.False(t, database.IsUniqueViolation(nil))
}
