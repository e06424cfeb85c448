package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arena-sheets/internal/arena"
	"arena-sheets/internal/assert"
	"arena-sheets/lib/htmlutil"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRoster     Kind = "roster"
	KindAttendance Kind = "attendance"
)

type Format string

const (
	FormatHTML Format = "html"
	// FormatJSON is a table converted with tabletojson.
	FormatJSON Format = "json"
)

type RunStatus string

const (
	RunUpdated RunStatus = "updated"
	RunSkipped RunStatus = "skipped"
	RunFailed  RunStatus = "failed"
)

// ErrNoSnapshot is returned when a class has never been scraped.
var ErrNoSnapshot = errors.New("no snapshot stored")

type Class struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Snapshot struct {
	ClassID   string
	Kind      Kind
	Format    Format
	Contents  []byte
	ScrapedAt time.Time
}

// Table parses the snapshot contents.
func (s Snapshot) Table(ctx context.Context) (htmlutil.Table, error) {
	switch s.Format {
	case FormatJSON:
		return arena.TableFromJSON(s.Contents)
	case FormatHTML:
		return htmlutil.ExtractTable(ctx, bytes.NewReader(s.Contents))
	}
	return nil, fmt.Errorf("unknown snapshot format %q", s.Format)
}

type ClassResult struct {
	ClassID string
	Status  RunStatus
	Message string
}

// Store persists scraped exports and run bookkeeping between the scrape
// and update steps.
type Store struct {
	qry    *Queries
	makeTx MakeTx
}

func NewStore(db *sql.DB) Store {
	assert.NotNil(db)
	return Store{
		qry:    New(db),
		makeTx: NewMakeTx(db),
	}
}

// PutClasses upserts the class list.
func (s Store) PutClasses(ctx context.Context, classes []Class, at time.Time) error {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	for _, c := range classes {
		err = tx.UpsertClass(ctx, ClassRow{ID: c.ID, Name: c.Name, UpdatedAt: at.Unix()})
		if err != nil {
			return fmt.Errorf("upsert class %s: %w", c.ID, err)
		}
	}
	return commit()
}

func (s Store) Classes(ctx context.Context) ([]Class, error) {
	rows, err := s.qry.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Class, len(rows))
	for i, r := range rows {
		out[i] = Class{ID: r.ID, Name: r.Name}
	}
	return out, nil
}

func snapshotRow(snapshot Snapshot) SnapshotRow {
	return SnapshotRow{
		ClassID:   snapshot.ClassID,
		Kind:      string(snapshot.Kind),
		Format:    string(snapshot.Format),
		Contents:  snapshot.Contents,
		ScrapedAt: snapshot.ScrapedAt.Unix(),
	}
}

func (s Store) PutSnapshot(ctx context.Context, snapshot Snapshot) error {
	return s.qry.InsertSnapshot(ctx, snapshotRow(snapshot))
}

// PutSnapshots stores every snapshot or none of them.
func (s Store) PutSnapshots(ctx context.Context, snapshots ...Snapshot) error {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	for _, snapshot := range snapshots {
		err = tx.InsertSnapshot(ctx, snapshotRow(snapshot))
		if err != nil {
			return fmt.Errorf("save %s of class %s: %w", snapshot.Kind, snapshot.ClassID, err)
		}
	}
	return commit()
}

// LatestSnapshot returns the most recently scraped export of a class,
// ErrNoSnapshot if there is none.
func (s Store) LatestSnapshot(ctx context.Context, classID string, kind Kind) (Snapshot, error) {
	row, err := s.qry.GetLatestSnapshot(ctx, classID, string(kind))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%s of class %s: %w", kind, classID, ErrNoSnapshot)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ClassID:   row.ClassID,
		Kind:      Kind(row.Kind),
		Format:    Format(row.Format),
		Contents:  row.Contents,
		ScrapedAt: time.Unix(row.ScrapedAt, 0),
	}, nil
}

// LatestTables returns the parsed roster and attendance exports of a class.
func (s Store) LatestTables(ctx context.Context, classID string) (roster, attendance htmlutil.Table, err error) {
	for _, target := range []struct {
		kind Kind
		out  *htmlutil.Table
	}{
		{kind: KindRoster, out: &roster},
		{kind: KindAttendance, out: &attendance},
	} {
		snapshot, err := s.LatestSnapshot(ctx, classID, target.kind)
		if err != nil {
			return nil, nil, err
		}
		table, err := snapshot.Table(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("parse %s of class %s: %w", target.kind, classID, err)
		}
		*target.out = table
	}
	return roster, attendance, nil
}

// PruneSnapshots keeps the latest keep snapshots per class and kind.
func (s Store) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	return s.qry.DeleteOldSnapshots(ctx, int64(keep))
}

func (s Store) StartRun(ctx context.Context, at time.Time) (string, error) {
	id := uuid.NewString()
	err := s.qry.InsertRun(ctx, id, at.Unix())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s Store) RecordClassResult(ctx context.Context, runID string, result ClassResult) error {
	return s.qry.UpsertRunClass(ctx, RunClassRow{
		RunID:   runID,
		ClassID: result.ClassID,
		Status:  string(result.Status),
		Message: result.Message,
	})
}

func (s Store) FinishRun(ctx context.Context, runID string, at time.Time) error {
	return s.qry.FinishRun(ctx, runID, at.Unix())
}

func (s Store) RunResults(ctx context.Context, runID string) ([]ClassResult, error) {
	rows, err := s.qry.ListRunClasses(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]ClassResult, len(rows))
	for i, r := range rows {
		out[i] = ClassResult{ClassID: r.ClassID, Status: RunStatus(r.Status), Message: r.Message}
	}
	return out, nil
}
