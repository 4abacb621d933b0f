package pkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorCodes(t *testing.T) {
	fkErr := fmt.Errorf("insert set: %w", &pgconn.PgError{Code: "23503"})
	uniqueErr := fmt.Errorf("insert completed exercise: %w", &pgconn.PgError{Code: "23505"})
	checkErr := fmt.Errorf("insert exercise template: %w", &pgconn.PgError{Code: "23514"})
	notNullErr := &pgconn.PgError{Code: "23502"}

	assert.True(t, IsForeignKeyViolationError(fkErr))
	assert.False(t, IsUniqueViolationError(fkErr))
	assert.True(t, IsUniqueViolationError(uniqueErr))
	assert.False(t, IsForeignKeyViolationError(uniqueErr))
	assert.True(t, IsCheckViolationError(checkErr))
	assert.False(t, IsForeignKeyViolationError(errors.New("boom")))
	assert.False(t, IsUniqueViolationError(nil))

	for _, err := range []error{fkErr, uniqueErr, checkErr} {
		assert.True(t, IsConstraintViolationError(err), err.Error())
	}
	assert.False(t, IsConstraintViolationError(notNullErr))
	assert.False(t, IsConstraintViolationError(errors.New("boom")))
}
