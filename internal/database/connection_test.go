package database

import (
	"testing"
	"time"

	"github.com/BradenHooton/kontakt/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:              "db.internal",
		Port:              5433,
		User:              "kontakt",
		Password:          "secret",
		Name:              "kontakt",
		SSLMode:           "disable",
		MaxConns:          8,
		MinConns:          1,
		MaxConnLifetime:   5 * time.Minute,
		MaxConnIdleTime:   time.Minute,
		HealthCheckPeriod: 30 * time.Second,
	}
}

func TestPoolConfig(t *testing.T) {
	cfg := testDatabaseConfig()

	pc, err := PoolConfig(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "kontakt", pc.ConnConfig.Database)
	assert.Equal(t, "kontakt", pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "5000", pc.ConnConfig.RuntimeParams["statement_timeout"])
	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, 5*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, 30*time.Second, pc.HealthCheckPeriod)
}

func TestPoolConfig_RejectsBadSizes(t *testing.T) {
	tests := []struct {
		name     string
		min, max int32
	}{
		{"no connections", 0, 0},
		{"min above max", 4, 2},
		{"negative min", -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testDatabaseConfig()
			cfg.MinConns, cfg.MaxConns = tt.min, tt.max

			_, err := PoolConfig(&cfg)
			assert.Error(t, err)
		})
	}
}
