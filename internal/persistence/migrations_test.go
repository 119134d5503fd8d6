package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrateURL(t *testing.T) {
	got, err := migrateURL("postgres://u:p@localhost:5432/eservice?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://u:p@localhost:5432/eservice?sslmode=disable", got)

	got, err = migrateURL("postgresql://localhost/db")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://localhost/db", got)

	got, err = migrateURL("pgx5://localhost/db")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://localhost/db", got)

	_, err = migrateURL("host=localhost dbname=db")
	assert.Error(t, err)
}

func TestMigrateWithoutDSNIsNoop(t *testing.T) {
	assert.NoError(t, MigrateUp("", zap.NewNop()))
	assert.NoError(t, MigrateDown("", zap.NewNop()))
}
