package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"arena-sheets/internal/chrono"
	"arena-sheets/internal/report"
	"arena-sheets/internal/scrapers/arena"
	"arena-sheets/internal/store"
	"arena-sheets/internal/telemetry"
	"arena-sheets/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const exportPage = `<html><body><table><tr><td>last_name</td><td>first_name</td></tr><tr><td>Smith</td><td>John</td></tr></table></body></html>`

type fakeScraper struct {
	loginErr   error
	classes    []arena.Class
	failExport map[string]bool
	skipped    []string
	exported   []string
}

func (f *fakeScraper) Login(ctx context.Context, username, password string) error {
	return f.loginErr
}

func (f *fakeScraper) Classes(ctx context.Context, skip func(id string) bool) ([]arena.Class, error) {
	var out []arena.Class
	for _, c := range f.classes {
		if skip(c.ID) {
			f.skipped = append(f.skipped, c.ID)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeScraper) RosterExport(ctx context.Context, classID string) ([]byte, error) {
	if f.failExport[classID] {
		return nil, errors.New("export button missing")
	}
	f.exported = append(f.exported, classID)
	return []byte(exportPage), nil
}

func (f *fakeScraper) AttendanceExport(ctx context.Context, classID string) ([]byte, error) {
	return []byte(exportPage), nil
}

func setup(t testing.TB, scraper *fakeScraper, settings report.SettingsTable) (Service, store.Store, *telemetry.MemoryAPI) {
	data := store.NewStore(testutil.MemoryDB(t, store.Migrate))

	tel := &telemetry.MemoryAPI{}
	now := chrono.FixedTime(time.Date(2024, 8, 27, 12, 0, 0, 0, time.UTC))
	service := NewService(scraper, data, now, tel, Options{
		Credentials:   Credentials{Username: "leader", Password: "secret"},
		ClassSettings: settings,
	})
	return service, data, tel
}

func TestScrapeAll(t *testing.T) {
	ctx := context.Background()
	scraper := &fakeScraper{
		classes: []arena.Class{
			{ID: "1", Name: "Young Adults (201)"},
			{ID: "2", Name: "Seniors"},
			{ID: "3", Name: "Choir"},
		},
		failExport: map[string]bool{"2": true},
	}
	service, data, tel := setup(t, scraper, report.SettingsTable{"3": {Skip: true}})

	summary, err := service.ScrapeAll(ctx, "")
	require.NoError(t, err)
	require.Equal(t, Summary{Classes: 2, Exported: 1, Failed: 1}, summary)
	require.Equal(t, []string{"3"}, scraper.skipped)

	classes, err := data.Classes(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 2)

	roster, attendance, err := data.LatestTables(ctx, "1")
	require.NoError(t, err)
	expected := [][]string{{"last_name", "first_name"}, {"Smith", "John"}}
	if diff := cmp.Diff(expected, [][]string(roster)); diff != "" {
		t.Fatal(diff)
	}
	require.Len(t, attendance, 2)

	_, _, err = data.LatestTables(ctx, "2")
	require.ErrorIs(t, err, store.ErrNoSnapshot)

	broken := tel.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "scrape: "+report_export_class, broken[0].ID)
}

func TestScrapeOnlyClass(t *testing.T) {
	scraper := &fakeScraper{
		classes: []arena.Class{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}},
	}
	service, _, _ := setup(t, scraper, nil)

	summary, err := service.ScrapeAll(context.Background(), "2")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Exported)
	require.Equal(t, []string{"2"}, scraper.exported)
}

func TestScrapeLoginFailure(t *testing.T) {
	scraper := &fakeScraper{loginErr: arena.LoginFailed}
	service, _, tel := setup(t, scraper, nil)

	_, err := service.ScrapeAll(context.Background(), "")
	require.ErrorIs(t, err, arena.LoginFailed)
	require.Len(t, tel.Reports("broken"), 1)
}
