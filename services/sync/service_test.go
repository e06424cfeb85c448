package sync

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"testing"
	"time"

	"arena-sheets/internal/chrono"
	"arena-sheets/internal/report"
	"arena-sheets/internal/sheets"
	"arena-sheets/internal/store"
	"arena-sheets/internal/telemetry"
	"arena-sheets/lib/testutil"

	"github.com/stretchr/testify/require"
)

type write struct {
	Sheet     string
	Worksheet string
	Table     [][]string
	Prepend   bool
}

type fakeSheets struct {
	writes    []write
	prepared  []string
	failOn    string
	prependOk bool
}

func (f *fakeSheets) PrepSheet(ctx context.Context, name, templateID string, worksheets []sheets.Worksheet) (sheets.Spreadsheet, error) {
	f.prepared = append(f.prepared, name)
	if f.failOn == name {
		return sheets.Spreadsheet{}, fmt.Errorf("drive is down")
	}
	return sheets.Spreadsheet{ID: "id-" + name, Name: name}, nil
}

func (f *fakeSheets) Overwrite(ctx context.Context, sheet sheets.Spreadsheet, worksheet string, table [][]string) (bool, error) {
	if f.failOn == worksheet {
		return false, fmt.Errorf("quota exceeded")
	}
	f.writes = append(f.writes, write{Sheet: sheet.Name, Worksheet: worksheet, Table: table})
	return true, nil
}

func (f *fakeSheets) Prepend(ctx context.Context, sheet sheets.Spreadsheet, worksheet string, table [][]string, opts sheets.PrependOptions) (bool, error) {
	if !f.prependOk {
		return false, nil
	}
	f.writes = append(f.writes, write{Sheet: sheet.Name, Worksheet: worksheet, Table: table, Prepend: true})
	return true, nil
}

func (f *fakeSheets) worksheets(sheet string) []string {
	var out []string
	for _, w := range f.writes {
		if w.Sheet == sheet {
			out = append(out, w.Worksheet)
		}
	}
	return out
}

type notification struct {
	Class      string
	Rows       int
	Recipients []string
}

type fakeNotifier struct {
	sent []notification
}

func (f *fakeNotifier) ContactQueue(ctx context.Context, className string, table [][]string, recipients []string) error {
	f.sent = append(f.sent, notification{Class: className, Rows: len(table), Recipients: recipients})
	return nil
}

func htmlTable(rows [][]string) []byte {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table></body></html>")
	return []byte(b.String())
}

var rosterRows = [][]string{
	{"member_role", "last_name", "first_name", "gender", "person_email", "record_status", "date_inactive", "date_added"},
	{"Member", "Smith", "John", "0", "john@example.com", "Active", "", "1/7/2024"},
	{"Member", "Smith", "Jane", "1", "jane@example.com", "Active", "", "6/2/2024"},
	{"Visitor", "Doe", "Visitor", "0", "", "Active", "", "8/25/2024"},
}

var attendanceRows = [][]string{
	{"Name", "", "", "", "", "First", "Last", "", "8/4/2024", "8/11/2024", "8/18/2024", "8/25/2024", "9/1/2024", "Total"},
	{"Smith, John", "", "", "", "", "1/7/2024", "8/4/2024", "", "X", "", "", "", "", "1"},
	{"Smith, Jane", "", "", "", "", "6/2/2024", "8/25/2024", "", "", "X", "", "X", "", "2"},
	{"Doe, Visitor", "", "", "", "", "8/25/2024", "8/25/2024", "", "", "", "", "X", "", "1"},
}

type fixture struct {
	service  Service
	store    store.Store
	sheets   *fakeSheets
	notifier *fakeNotifier
	tel      *telemetry.MemoryAPI
}

func setup(t testing.TB, now time.Time, options Options, classes ...store.Class) fixture {
	ctx := context.Background()

	data := store.NewStore(testutil.MemoryDB(t, store.Migrate))

	require.NoError(t, data.PutClasses(ctx, classes, now))
	for _, class := range classes {
		if class.ID == "empty" {
			continue
		}
		require.NoError(t, data.PutSnapshot(ctx, store.Snapshot{
			ClassID: class.ID, Kind: store.KindRoster, Format: store.FormatHTML,
			Contents: htmlTable(rosterRows), ScrapedAt: now,
		}))
		require.NoError(t, data.PutSnapshot(ctx, store.Snapshot{
			ClassID: class.ID, Kind: store.KindAttendance, Format: store.FormatHTML,
			Contents: htmlTable(attendanceRows), ScrapedAt: now,
		}))
	}

	f := fixture{
		store:    data,
		sheets:   &fakeSheets{prependOk: true},
		notifier: &fakeNotifier{},
		tel:      &telemetry.MemoryAPI{},
	}
	options.Location = time.UTC
	f.service = NewService(data, f.sheets, f.notifier, chrono.FixedTime(now), f.tel, options)
	return f
}

// a tuesday, the current week starts on 8/25
var tuesday = time.Date(2024, 8, 27, 15, 0, 0, 0, time.UTC)

func TestUpdateAll(t *testing.T) {
	ctx := context.Background()
	f := setup(t, tuesday, Options{
		ClassSettings: report.SettingsTable{
			"1": {Notify: []string{"leader@example.com"}},
		},
	}, store.Class{ID: "1", Name: "Young Adults"})

	summary, err := f.service.UpdateAll(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)
	require.Empty(t, f.tel.Reports("broken"))

	require.Equal(t, []string{
		WorksheetContactQueue,
		WorksheetMembers,
		WorksheetVisitors,
		WorksheetAttendance,
		WorksheetEmailLists,
	}, f.sheets.worksheets("Young Adults"))

	queue := f.sheets.writes[0]
	require.True(t, queue.Prepend)
	require.Equal(t, report.ContactQueueHeader, queue.Table[0])
	require.Equal(t, "8/25/2024", queue.Table[1][0])

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, []string{"leader@example.com"}, f.notifier.sent[0].Recipients)

	results, err := f.store.RunResults(ctx, summary.RunID)
	require.NoError(t, err)
	require.Equal(t, []store.ClassResult{{ClassID: "1", Status: store.RunUpdated}}, results)
}

func TestUpdateAllNoNotifyWhenNothingWritten(t *testing.T) {
	f := setup(t, tuesday, Options{}, store.Class{ID: "1", Name: "Young Adults"})
	f.sheets.prependOk = false

	_, err := f.service.UpdateAll(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, f.notifier.sent)
}

func TestUpdateAllIsolatesClasses(t *testing.T) {
	ctx := context.Background()
	f := setup(t, tuesday, Options{
		ClassSettings: report.SettingsTable{"3": {Skip: true}},
	},
		store.Class{ID: "1", Name: "Broken"},
		store.Class{ID: "2", Name: "Healthy"},
		store.Class{ID: "3", Name: "Skipped"},
		store.Class{ID: "empty", Name: "Never Scraped"},
	)
	f.sheets.failOn = "Broken"

	summary, err := f.service.UpdateAll(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, 1, summary.Failed)

	require.NotEmpty(t, f.sheets.worksheets("Healthy"))
	require.NotContains(t, f.sheets.prepared, "Skipped")
	require.NotContains(t, f.sheets.prepared, "Never Scraped")

	broken := f.tel.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "sync: "+report_update_class, broken[0].ID)

	results, err := f.store.RunResults(ctx, summary.RunID)
	require.NoError(t, err)
	statuses := map[string]store.RunStatus{}
	for _, r := range results {
		statuses[r.ClassID] = r.Status
	}
	require.Equal(t, map[string]store.RunStatus{
		"1":     store.RunFailed,
		"2":     store.RunUpdated,
		"3":     store.RunSkipped,
		"empty": store.RunSkipped,
	}, statuses)
}

func TestUpdateAllOnlyClass(t *testing.T) {
	f := setup(t, tuesday, Options{},
		store.Class{ID: "1", Name: "One"},
		store.Class{ID: "2", Name: "Two"},
	)

	summary, err := f.service.UpdateAll(context.Background(), "2")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)
	require.Empty(t, f.sheets.worksheets("One"))
	require.NotEmpty(t, f.sheets.worksheets("Two"))

	_, err = f.service.UpdateAll(context.Background(), "404")
	require.Error(t, err)
}

func TestUpdateClassWorksheetFailure(t *testing.T) {
	f := setup(t, tuesday, Options{}, store.Class{ID: "1", Name: "Young Adults"})
	f.sheets.failOn = WorksheetMembers

	err := f.service.UpdateClass(context.Background(), store.Class{ID: "1", Name: "Young Adults"})
	require.ErrorContains(t, err, WorksheetMembers)
	// the other worksheets are still written
	require.Contains(t, f.sheets.worksheets("Young Adults"), WorksheetEmailLists)
}

func TestRequireCurrentWeek(t *testing.T) {
	// the 9/1 column is empty, so the current week is missing
	nextTuesday := tuesday.AddDate(0, 0, 7)
	f := setup(t, nextTuesday, Options{RequireCurrentWeek: true}, store.Class{ID: "1", Name: "Young Adults"})

	err := f.service.UpdateClass(context.Background(), store.Class{ID: "1", Name: "Young Adults"})
	require.True(t, errors.Is(err, ErrNotCurrent))
	require.Empty(t, f.sheets.prepared)

	f = setup(t, tuesday, Options{RequireCurrentWeek: true}, store.Class{ID: "1", Name: "Young Adults"})
	err = f.service.UpdateClass(context.Background(), store.Class{ID: "1", Name: "Young Adults"})
	require.NoError(t, err)
}

func TestClassReports(t *testing.T) {
	f := setup(t, tuesday, Options{}, store.Class{ID: "1", Name: "Young Adults"})

	reports, settings, err := f.service.ClassReports(context.Background(), store.Class{ID: "1", Name: "Young Adults"})
	require.NoError(t, err)
	require.Equal(t, "8/25/2024", reports.AsOf)
	require.Len(t, settings.ContactQueueItems, 3)
	require.Nil(t, reports.Inactive)
	// header plus both Smiths
	require.Len(t, reports.Members, 3)
	require.Len(t, reports.Visitors, 2)
	require.Empty(t, f.sheets.writes)
}
