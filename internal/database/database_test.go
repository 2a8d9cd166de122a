package database

import (
	"io"
	"testing"

	"github.com/dundie/backend/internal/config"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrations_AreSequential(t *testing.T) {
	source, err := iofs.New(migrationFiles, "migrations")
	require.NoError(t, err)
	defer source.Close()

	version, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	for _, want := range []uint{2, 3} {
		next, err := source.Next(version)
		require.NoError(t, err)
		assert.Equal(t, want, next)

		up, _, err := source.ReadUp(next)
		require.NoError(t, err)
		body, err := io.ReadAll(up)
		up.Close()
		require.NoError(t, err)
		assert.NotEmpty(t, body)

		down, _, err := source.ReadDown(next)
		if assert.NoError(t, err, "migration %d needs a down file", next) {
			down.Close()
		}
		version = next
	}
}

func TestInitRedis_Unreachable(t *testing.T) {
	client := InitRedis(config.RedisConfig{Host: "127.0.0.1", Port: "1"}, zap.NewNop())
	assert.Nil(t, client)
}
