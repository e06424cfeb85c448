package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arena-sheets/internal/chrono"
	"arena-sheets/internal/report"
	"arena-sheets/internal/store"
	"arena-sheets/internal/telemetry"
	"arena-sheets/services/sync"

	"github.com/stretchr/testify/require"
)

const testConfig = `{
	// credentials are overridden in config.local.json5
	arena: {
		base_url: "https://arena.example.org",
		username: "leader",
	},
	google: {
		client_id: "client",
		template_spreadsheet_id: "template",
	},
	include_inactive: true,
	class_settings: {
		"2177": {
			notify: ["leader@example.com"],
			contact_queue_items: [
				{reason: "Absent", filter: {isMember: true, lastPresentWeeksAgo: 2}},
			],
		},
		"55": {skip: true},
	},
}`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{arena: {password: "hunter2"}}`),
		0600,
	))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "leader", cfg.Arena.Username)
	require.Equal(t, "hunter2", cfg.Arena.Password)
	require.Equal(t, "client", cfg.Google.ClientID)
	require.Equal(t, "template", cfg.Google.TemplateSpreadsheetID)
	require.True(t, cfg.IncludeInactive)

	// defaults
	require.Equal(t, store.DefaultFile, cfg.Database.File)
	require.Equal(t, chrono.DefaultLocation, cfg.Timezone)
	require.Equal(t, 587, cfg.Smtp.Port)

	require.True(t, cfg.ClassSettings.Skip("55"))
	settings, err := cfg.ClassSettings.For("2177")
	require.NoError(t, err)
	require.Equal(t, []string{"leader@example.com"}, settings.Notify)
	require.Len(t, settings.ContactQueueItems, 1)
	require.Equal(t, "Absent", settings.ContactQueueItems[0].Reason)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRenderReports(t *testing.T) {
	var out strings.Builder
	renderReports(&out, store.Class{ID: "1", Name: "Young Adults"}, sync.Reports{
		Members: report.Table{
			{"Last Name", "First Name"},
			{"Smith", "John"},
		},
	})

	rendered := out.String()
	require.Contains(t, rendered, "Young Adults: Members")
	require.Contains(t, rendered, "Smith")
	require.NotContains(t, rendered, sync.WorksheetVisitors)
}

type failingCloser struct{}

func (failingCloser) Close() error {
	return errors.New("database is locked")
}

func TestCloseDBReportsError(t *testing.T) {
	tel := &telemetry.MemoryAPI{}
	closeDB(tel, failingCloser{})
	broken := tel.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, report_close_db, broken[0].ID)
}
