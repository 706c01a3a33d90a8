package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/knowledgehub/internal/audit"
	"github.com/mrlokans/knowledgehub/internal/config"
	"github.com/mrlokans/knowledgehub/internal/database"
	auditRepo "github.com/mrlokans/knowledgehub/internal/database/audit"
	"github.com/mrlokans/knowledgehub/internal/entities"
	"github.com/mrlokans/knowledgehub/internal/importers"
)

type ImportPreviewCommand struct {
	Source       string
	File         string
	Format       string
	Timeout      time.Duration
	Record       bool
	DatabasePath string
	Verbose      bool

	Out    io.Writer
	Limits importers.Limits
}

// PreviewReport is what import-preview prints.
type PreviewReport struct {
	RequestID    string               `json:"request_id" yaml:"request_id"`
	Source       string               `json:"source" yaml:"source"`
	File         string               `json:"file" yaml:"file"`
	SizeBytes    int64                `json:"size_bytes" yaml:"size_bytes"`
	DetectedMIME string               `json:"detected_mime" yaml:"detected_mime"`
	Fingerprint  string               `json:"fingerprint" yaml:"fingerprint"`
	State        importers.State      `json:"state" yaml:"state"`
	DurationMs   int64                `json:"duration_ms" yaml:"duration_ms"`
	Result       entities.ParseResult `json:"result" yaml:"result"`
}

func NewImportPreviewCommand() *ImportPreviewCommand {
	return &ImportPreviewCommand{
		Out:    os.Stdout,
		Limits: config.NewConfig().Import.Limits(),
	}
}

func (cmd *ImportPreviewCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-preview", flag.ContinueOnError)

	fs.StringVar(&cmd.Source, "source", "", "Import source: bookmarks, pocket, notion, evernote, twitter (required)")
	fs.StringVar(&cmd.File, "file", "", "Path to the export file (required)")
	fs.StringVar(&cmd.Format, "format", "json", "Output format: json or yaml")
	fs.DurationVar(&cmd.Timeout, "timeout", 0, "Override the parse timeout (e.g. 10s)")
	fs.BoolVar(&cmd.Record, "record", false, "Record the preview in the audit database")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the audit database (with -record)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-preview [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Parse an export file and print the items it would import. Nothing is saved.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-preview -source pocket -file ril_export.html\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import-preview -source notion -file Export.zip -format yaml\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Source == "" || cmd.File == "" {
		fs.Usage()
		return fmt.Errorf("source and file are required")
	}
	if cmd.Format != "json" && cmd.Format != "yaml" {
		return fmt.Errorf("unknown output format %q (use json or yaml)", cmd.Format)
	}
	if cmd.Timeout > 0 {
		cmd.Limits.ParseTimeout = cmd.Timeout
	}

	return nil
}

func (cmd *ImportPreviewCommand) Run() error {
	if cmd.Verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	svc := importers.NewService(cmd.Limits)
	filename := filepath.Base(cmd.File)

	info, err := os.Stat(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to stat export file: %w", err)
	}

	var content []byte
	var outcome importers.Outcome
	if cfg, err := svc.Check(cmd.Source, info.Size()); err != nil {
		outcome = importers.Rejected(cfg.ID, err)
	} else {
		content, err = os.ReadFile(cmd.File)
		if err != nil {
			return fmt.Errorf("failed to read export file: %w", err)
		}
		if cmd.Verbose {
			log.Printf("[IMPORT] Read %d bytes from %s", len(content), cmd.File)
		}
		outcome = svc.Preview(context.Background(), importers.Upload{
			Filename: filename,
			Source:   cmd.Source,
			Content:  content,
		})
	}

	report := PreviewReport{
		RequestID:  audit.NewRequestID(),
		Source:     cmd.Source,
		File:       filename,
		SizeBytes:  info.Size(),
		State:      outcome.State,
		DurationMs: outcome.Duration.Milliseconds(),
		Result:     outcome.Result,
	}
	if content != nil {
		report.DetectedMIME = audit.DetectMIME(content)
		report.Fingerprint = audit.Fingerprint(content)
	}

	if cmd.Record {
		if err := cmd.record(report, content, outcome); err != nil {
			return err
		}
	}

	if err := cmd.write(report); err != nil {
		return err
	}

	if outcome.State != importers.StateCompleted {
		return fmt.Errorf("preview %s: %s", outcome.State, importers.UserMessage(outcome.Err))
	}
	return nil
}

func (cmd *ImportPreviewCommand) record(report PreviewReport, content []byte, outcome importers.Outcome) error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open audit database: %w", err)
	}
	defer db.Close()

	event, err := audit.NewService(auditRepo.NewRepository(db.DB)).RecordPreview(audit.Preview{
		RequestID: report.RequestID,
		Source:    report.Source,
		Filename:  report.File,
		SizeBytes: report.SizeBytes,
		Content:   content,
		Outcome:   outcome,
	})
	if err != nil {
		return fmt.Errorf("failed to record preview: %w", err)
	}
	if cmd.Verbose {
		log.Printf("[AUDIT] Recorded preview %s (event %d)", event.RequestID, event.ID)
	}
	return nil
}

func (cmd *ImportPreviewCommand) write(report PreviewReport) error {
	if cmd.Format == "yaml" {
		enc := yaml.NewEncoder(cmd.Out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(cmd.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
