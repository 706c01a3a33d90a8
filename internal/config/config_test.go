package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, int64(20<<20), cfg.Import.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.Import.ParseTimeout)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, 7, cfg.Audit.RejectedDays)
	assert.Equal(t, "30 3 * * *", cfg.Audit.CleanupSchedule)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("IMPORT_MAX_FILE_SIZE", "1048576")
	t.Setenv("IMPORT_PARSE_TIMEOUT", "5s")
	t.Setenv("AUDIT_ENABLED", "false")
	t.Setenv("PORT", "9000")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.False(t, cfg.Audit.Enabled)

	limits := cfg.Import.Limits()
	assert.Equal(t, int64(1<<20), limits.MaxFileSize)
	assert.Equal(t, 5*time.Second, limits.ParseTimeout)
	assert.Equal(t, 10000, limits.MaxArchiveEntries)
}
