package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/mrlokans/knowledgehub/internal/importers"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Import
		Audit
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	// Import bounds every preview request.
	Import struct {
		MaxFileSize          int64
		ParseTimeout         time.Duration
		MaxExpansionRatio    int // Notion: decompressed/compressed
		MaxDecompressedBytes int64
		MaxNotionEntries     int
		MaxResourceBytes     int64 // Evernote attachment cap
	}

	Audit struct {
		Enabled         bool
		RetentionDays   int    // Days to keep import audit events (default: 30)
		RejectedDays    int    // Days to keep previews rejected before parsing (default: 7)
		CleanupSchedule string // Cron format: "30 3 * * *" = daily at 03:30
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("import_max_file_size", DefaultMaxFileSize)
	v.SetDefault("import_parse_timeout", DefaultParseTimeout)
	v.SetDefault("import_max_expansion_ratio", 100)
	v.SetDefault("import_max_decompressed_bytes", 200<<20)
	v.SetDefault("import_max_notion_entries", 10000)
	v.SetDefault("import_max_resource_bytes", 5<<20)

	v.SetDefault("audit_enabled", true)
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_rejected_retention_days", 7)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")

	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Import: Import{
			MaxFileSize:          v.GetInt64("IMPORT_MAX_FILE_SIZE"),
			ParseTimeout:         v.GetDuration("IMPORT_PARSE_TIMEOUT"),
			MaxExpansionRatio:    v.GetInt("IMPORT_MAX_EXPANSION_RATIO"),
			MaxDecompressedBytes: v.GetInt64("IMPORT_MAX_DECOMPRESSED_BYTES"),
			MaxNotionEntries:     v.GetInt("IMPORT_MAX_NOTION_ENTRIES"),
			MaxResourceBytes:     v.GetInt64("IMPORT_MAX_RESOURCE_BYTES"),
		},
		Audit: Audit{
			Enabled:         v.GetBool("AUDIT_ENABLED"),
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			RejectedDays:    v.GetInt("AUDIT_REJECTED_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}

// Limits converts the import settings into the preview service bounds.
func (i Import) Limits() importers.Limits {
	return importers.Limits{
		MaxFileSize:          i.MaxFileSize,
		ParseTimeout:         i.ParseTimeout,
		MaxExpansionRatio:    i.MaxExpansionRatio,
		MaxDecompressedBytes: i.MaxDecompressedBytes,
		MaxArchiveEntries:    i.MaxNotionEntries,
		MaxResourceBytes:     i.MaxResourceBytes,
	}
}
