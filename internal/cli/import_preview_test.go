package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrlokans/knowledgehub/internal/database"
	auditRepo "github.com/mrlokans/knowledgehub/internal/database/audit"
	"github.com/mrlokans/knowledgehub/internal/importers"
)

const pocketExport = `<!DOCTYPE html>
<html><head><title>Pocket Export</title></head><body>
<h1>Unread</h1>
<ul>
<li><a href="https://go.dev/blog" time_added="1700000000" tags="golang">The Go Blog</a></li>
</ul>
</body></html>`

func writeExport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestCommand(t *testing.T, args ...string) (*ImportPreviewCommand, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := &ImportPreviewCommand{Out: out, Limits: importers.DefaultLimits()}
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, out
}

func TestImportPreviewCommand_JSON(t *testing.T) {
	path := writeExport(t, "ril_export.html", pocketExport)
	cmd, out := newTestCommand(t, "-source", "pocket", "-file", path)

	require.NoError(t, cmd.Run())

	var report PreviewReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, importers.StateCompleted, report.State)
	assert.Equal(t, "ril_export.html", report.File)
	assert.Equal(t, int64(len(pocketExport)), report.SizeBytes)
	assert.Contains(t, report.DetectedMIME, "text/html")
	assert.Len(t, report.Fingerprint, 64)
	require.Len(t, report.Result.Items, 1)
	assert.Equal(t, "The Go Blog", report.Result.Items[0].Title)
}

func TestImportPreviewCommand_YAML(t *testing.T) {
	path := writeExport(t, "ril_export.html", pocketExport)
	cmd, out := newTestCommand(t, "-source", "pocket", "-file", path, "-format", "yaml")

	require.NoError(t, cmd.Run())

	var report map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "completed", report["state"])
	result := report["result"].(map[string]any)
	assert.Equal(t, true, result["success"])
}

func TestImportPreviewCommand_FailurePrintsResultAndErrors(t *testing.T) {
	path := writeExport(t, "notes.enex", pocketExport)
	cmd, out := newTestCommand(t, "-source", "evernote", "-file", path)

	err := cmd.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected_invalid_format")

	var report PreviewReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.Result.Success)
	assert.Equal(t, "This does not appear to be a valid Evernote ENEX file.", report.Result.Errors[0].Message)
}

func TestImportPreviewCommand_OversizedFileIsNotRead(t *testing.T) {
	path := writeExport(t, "bookmarks.html", string(bytes.Repeat([]byte("a"), 4096)))
	out := &bytes.Buffer{}
	cmd := &ImportPreviewCommand{Out: out, Limits: importers.Limits{MaxFileSize: 1024, ParseTimeout: time.Second}}
	require.NoError(t, cmd.ParseFlags([]string{"-source", "bookmarks", "-file", path}))

	require.Error(t, cmd.Run())

	var report PreviewReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, importers.StateRejected, report.State)
	assert.Empty(t, report.Fingerprint)
}

func TestImportPreviewCommand_Record(t *testing.T) {
	path := writeExport(t, "ril_export.html", pocketExport)
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	cmd, out := newTestCommand(t, "-source", "pocket", "-file", path, "-record", "-db", dbPath)

	require.NoError(t, cmd.Run())

	var report PreviewReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	event, err := auditRepo.NewRepository(db.DB).GetEventByRequestID(report.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "pocket", event.Source)
	assert.Equal(t, report.Fingerprint, event.Fingerprint)
}

func TestImportPreviewCommand_ParseFlags(t *testing.T) {
	t.Run("requires source and file", func(t *testing.T) {
		cmd := &ImportPreviewCommand{}
		assert.Error(t, cmd.ParseFlags([]string{"-source", "pocket"}))
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		cmd := &ImportPreviewCommand{}
		assert.Error(t, cmd.ParseFlags([]string{"-source", "pocket", "-file", "x", "-format", "xml"}))
	})

	t.Run("timeout overrides limits", func(t *testing.T) {
		cmd := &ImportPreviewCommand{Limits: importers.DefaultLimits()}
		require.NoError(t, cmd.ParseFlags([]string{"-source", "pocket", "-file", "x", "-timeout", "3s"}))
		assert.Equal(t, 3*time.Second, cmd.Limits.ParseTimeout)
	})
}
