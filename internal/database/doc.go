// Package database owns the SQLite connection used for the import audit
// trail.
//
//	database/
//	├── database.go   # Connection setup and migrations
//	└── audit/        # Import audit event repository
//
// Uploaded files and parsed items are never written here; the preview
// pipeline is stateless. Only request metadata and counts are persisted:
//
//	db, err := database.NewDatabase("./knowledgehub.db")
//	repo := audit.NewRepository(db.DB)
//	events, total, err := repo.GetEvents(audit.Filter{Source: "notion"}, 25, 0)
package database
