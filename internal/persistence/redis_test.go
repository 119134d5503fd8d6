package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/eservice/internal/config"
)

func TestNewRedisWithoutAddr(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}

func TestNewRedisPings(t *testing.T) {
	srv := miniredis.RunT(t)
	r := NewRedis(context.Background(), config.RedisConfig{Addr: srv.Addr(), PoolSize: 2}, zap.NewNop())
	t.Cleanup(r.Close)

	require.True(t, r.Enabled())
	assert.NoError(t, r.Ping(context.Background()))

	srv.Close()
	assert.Error(t, r.Ping(context.Background()))
}

func TestPostgresDisabledWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()
}

func TestApplyPoolLimits(t *testing.T) {
	poolCfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/eservice")
	require.NoError(t, err)
	defaults := *poolCfg

	applyPoolLimits(poolCfg, config.PostgresConfig{})
	assert.Equal(t, defaults.MaxConns, poolCfg.MaxConns)
	assert.Equal(t, defaults.MaxConnLifetime, poolCfg.MaxConnLifetime)

	applyPoolLimits(poolCfg, config.PostgresConfig{MaxConns: 7, MinConns: 1, ConnMaxIdleSec: 15, ConnMaxLifeSec: 90})
	assert.EqualValues(t, 7, poolCfg.MaxConns)
	assert.EqualValues(t, 1, poolCfg.MinConns)
	assert.Equal(t, 15*time.Second, poolCfg.MaxConnIdleTime)
	assert.Equal(t, 90*time.Second, poolCfg.MaxConnLifetime)
}
