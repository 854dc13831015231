package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in   string
		want Dialect
		ok   bool
	}{
		{"mysql", MySQL, true},
		{" MySQL ", MySQL, true},
		{"postgres", Postgres, true},
		{"postgresql", Postgres, true},
		{"pgx", Postgres, true},
		{"sqlite", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, err := ParseDialect(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestDialect_DriverName(t *testing.T) {
	assert.Equal(t, "mysql", MySQL.DriverName())
	assert.Equal(t, "pgx", Postgres.DriverName())
}

func TestDialect_Rebind(t *testing.T) {
	q := "UPDATE users SET username = ?, email = ? WHERE id = ?"

	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, "UPDATE users SET username = $1, email = $2 WHERE id = $3", Postgres.Rebind(q))
	assert.Equal(t, "SELECT 1", Postgres.Rebind("SELECT 1"))
}

func TestNormalizeMySQLDSN(t *testing.T) {
	out, err := normalizeMySQLDSN("app:secret@tcp(db:3306)/products")
	require.NoError(t, err)

	assert.Contains(t, out, "parseTime=true")
	assert.Contains(t, out, "clientFoundRows=true")
	assert.Contains(t, out, "charset=utf8mb4")
	assert.Contains(t, out, "app:secret@tcp(db:3306)/products")

	_, err = normalizeMySQLDSN("::not a dsn::")
	assert.Error(t, err)
}
