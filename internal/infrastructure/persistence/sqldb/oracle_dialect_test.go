package sqldb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOracleDialect_Rebind(t *testing.T) {
	d := &OracleDialect{}

	cases := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"WHERE id = $1", "WHERE id = :1"},
		{"VALUES ($1, $2, $3)", "VALUES (:1, :2, :3)"},
		// Two-digit placeholders must not be clobbered by one-digit rewrites.
		{"VALUES ($1, $10, $11)", "VALUES (:1, :10, :11)"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, d.Rebind(tc.in))
	}
}

func TestOracleDialect_IsUniqueViolation(t *testing.T) {
	d := &OracleDialect{}

	assert.True(t, d.IsUniqueViolation(errors.New("ORA-00001: unique constraint (X.UQ) violated")))
	assert.False(t, d.IsUniqueViolation(errors.New("ORA-00955: name is already used")))
	assert.False(t, d.IsUniqueViolation(nil))
}

func TestPostgresDialect_Rebind(t *testing.T) {
	d := &PostgresDialect{}
	assert.Equal(t, "WHERE id = $1", d.Rebind("WHERE id = $1"))
}

func TestPostgresDialect_IsUniqueViolation(t *testing.T) {
	d := &PostgresDialect{}

	assert.False(t, d.IsUniqueViolation(errors.New("some other error")))
	assert.False(t, d.IsUniqueViolation(nil))
}
