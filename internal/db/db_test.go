package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voltfox-backend/config"
)

func TestInit_SqliteMigratesAllModels(t *testing.T) {
	gormDB, err := Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	for _, table := range []string{"users", "devices", "batteries", "history_snapshots",
		"notification_preferences", "push_subscriptions", "notification_logs"} {
		assert.True(t, gormDB.Migrator().HasTable(table), "expected table %s", table)
	}
}
