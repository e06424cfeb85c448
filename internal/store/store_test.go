package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arena-sheets/lib/htmlutil"
	"arena-sheets/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) Store {
	return NewStore(testutil.MemoryDB(t, Migrate))
}

func TestClasses(t *testing.T) {
	ctx := context.Background()
	store := setup(t)
	now := time.Unix(1724600000, 0)

	err := store.PutClasses(ctx, []Class{
		{ID: "2177", Name: "Young Adults (201)"},
		{ID: "101", Name: "Adults"},
	}, now)
	require.NoError(t, err)
	err = store.PutClasses(ctx, []Class{{ID: "101", Name: "Adults (105)"}}, now)
	require.NoError(t, err)

	classes, err := store.Classes(ctx)
	require.NoError(t, err)
	expected := []Class{
		{ID: "101", Name: "Adults (105)"},
		{ID: "2177", Name: "Young Adults (201)"},
	}
	diff := cmp.Diff(expected, classes)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	store := setup(t)

	_, err := store.LatestSnapshot(ctx, "101", KindRoster)
	require.True(t, errors.Is(err, ErrNoSnapshot))

	for i, contents := range []string{"first", "second", "third"} {
		err := store.PutSnapshot(ctx, Snapshot{
			ClassID:   "101",
			Kind:      KindRoster,
			Format:    FormatHTML,
			Contents:  []byte(contents),
			ScrapedAt: time.Unix(int64(1000+i), 0),
		})
		require.NoError(t, err)
	}
	err = store.PutSnapshot(ctx, Snapshot{
		ClassID: "101", Kind: KindAttendance, Format: FormatHTML,
		Contents: []byte("attendance"), ScrapedAt: time.Unix(500, 0),
	})
	require.NoError(t, err)

	latest, err := store.LatestSnapshot(ctx, "101", KindRoster)
	require.NoError(t, err)
	require.Equal(t, "third", string(latest.Contents))
	require.Equal(t, int64(1002), latest.ScrapedAt.Unix())

	deleted, err := store.PruneSnapshots(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	latest, err = store.LatestSnapshot(ctx, "101", KindRoster)
	require.NoError(t, err)
	require.Equal(t, "third", string(latest.Contents))
	attendance, err := store.LatestSnapshot(ctx, "101", KindAttendance)
	require.NoError(t, err)
	require.Equal(t, "attendance", string(attendance.Contents))
}

func TestPutSnapshotsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := setup(t)

	err := store.PutSnapshots(ctx,
		Snapshot{ClassID: "101", Kind: KindRoster, Format: FormatHTML, Contents: []byte("roster"), ScrapedAt: time.Unix(1000, 0)},
		Snapshot{ClassID: "101", Kind: Kind("grades"), Format: FormatHTML, Contents: []byte("bad"), ScrapedAt: time.Unix(1000, 0)},
	)
	require.Error(t, err)
	_, err = store.LatestSnapshot(ctx, "101", KindRoster)
	require.ErrorIs(t, err, ErrNoSnapshot)

	err = store.PutSnapshots(ctx,
		Snapshot{ClassID: "101", Kind: KindRoster, Format: FormatHTML, Contents: []byte("roster"), ScrapedAt: time.Unix(1000, 0)},
		Snapshot{ClassID: "101", Kind: KindAttendance, Format: FormatHTML, Contents: []byte("attendance"), ScrapedAt: time.Unix(1000, 0)},
	)
	require.NoError(t, err)
	latest, err := store.LatestSnapshot(ctx, "101", KindAttendance)
	require.NoError(t, err)
	require.Equal(t, "attendance", string(latest.Contents))
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	store := setup(t)

	runID, err := store.StartRun(ctx, time.Unix(1000, 0))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.NoError(t, store.RecordClassResult(ctx, runID, ClassResult{ClassID: "2", Status: RunFailed, Message: "boom"}))
	require.NoError(t, store.RecordClassResult(ctx, runID, ClassResult{ClassID: "1", Status: RunSkipped, Message: "no data"}))
	require.NoError(t, store.RecordClassResult(ctx, runID, ClassResult{ClassID: "2", Status: RunUpdated}))
	require.NoError(t, store.FinishRun(ctx, runID, time.Unix(1010, 0)))

	results, err := store.RunResults(ctx, runID)
	require.NoError(t, err)
	expected := []ClassResult{
		{ClassID: "1", Status: RunSkipped, Message: "no data"},
		{ClassID: "2", Status: RunUpdated},
	}
	diff := cmp.Diff(expected, results)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestImportDirectory(t *testing.T) {
	ctx := context.Background()
	store := setup(t)
	dir := t.TempDir()

	files := map[string]string{
		"classes.json":        `[{"id": "101", "name": "Adults"}, {"id": "102", "name": "Empty"}]`,
		"101_roster.html":     `<table><tr><td>last_name</td><td>first_name</td></tr><tr><td>Smith</td><td>John</td></tr></table>`,
		"101_attendance.json": `[{"0": "Name", "1": "8/25/2024"}, {"0": "Smith, John", "1": "X"}]`,
	}
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
	}

	count, err := store.ImportDirectory(ctx, dir, time.Unix(1000, 0))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	roster, attendance, err := store.LatestTables(ctx, "101")
	require.NoError(t, err)
	require.Equal(t, htmlutil.Table{{"last_name", "first_name"}, {"Smith", "John"}}, roster)
	require.Equal(t, htmlutil.Table{{"Name", "8/25/2024"}, {"Smith, John", "X"}}, attendance)

	_, _, err = store.LatestTables(ctx, "102")
	require.True(t, errors.Is(err, ErrNoSnapshot))

	_, err = store.ImportDirectory(ctx, t.TempDir(), time.Unix(1000, 0))
	require.Error(t, err)
}
