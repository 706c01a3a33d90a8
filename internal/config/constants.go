package config

import "time"

const (
	// DefaultDatabasePath is the default path for the audit database
	DefaultDatabasePath = "./knowledgehub.db"

	// DefaultMaxFileSize is the largest upload accepted for preview
	DefaultMaxFileSize = 20 << 20

	// DefaultParseTimeout bounds a single parse
	DefaultParseTimeout = 30 * time.Second
)
