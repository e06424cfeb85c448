package store

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type ClassRow struct {
	ID        string
	Name      string
	UpdatedAt int64
}

const upsertClass = `
insert into class (id, name, updated_at) values (?, ?, ?)
on conflict (id) do update set name = excluded.name, updated_at = excluded.updated_at
`

func (q *Queries) UpsertClass(ctx context.Context, arg ClassRow) error {
	_, err := q.db.ExecContext(ctx, upsertClass, arg.ID, arg.Name, arg.UpdatedAt)
	return err
}

const listClasses = `select id, name, updated_at from class order by name, id`

func (q *Queries) ListClasses(ctx context.Context) ([]ClassRow, error) {
	rows, err := q.db.QueryContext(ctx, listClasses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ClassRow
	for rows.Next() {
		var i ClassRow
		err := rows.Scan(&i.ID, &i.Name, &i.UpdatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type SnapshotRow struct {
	ID        int64
	ClassID   string
	Kind      string
	Format    string
	Contents  []byte
	ScrapedAt int64
}

const insertSnapshot = `
insert into snapshot (class_id, kind, format, contents, scraped_at) values (?, ?, ?, ?, ?)
`

func (q *Queries) InsertSnapshot(ctx context.Context, arg SnapshotRow) error {
	_, err := q.db.ExecContext(ctx, insertSnapshot, arg.ClassID, arg.Kind, arg.Format, arg.Contents, arg.ScrapedAt)
	return err
}

const getLatestSnapshot = `
select id, class_id, kind, format, contents, scraped_at from snapshot
where class_id = ? and kind = ?
order by scraped_at desc, id desc
limit 1
`

func (q *Queries) GetLatestSnapshot(ctx context.Context, classID, kind string) (SnapshotRow, error) {
	row := q.db.QueryRowContext(ctx, getLatestSnapshot, classID, kind)
	var i SnapshotRow
	err := row.Scan(&i.ID, &i.ClassID, &i.Kind, &i.Format, &i.Contents, &i.ScrapedAt)
	return i, err
}

const deleteOldSnapshots = `
delete from snapshot where id in (
    select id from (
        select id, row_number() over (
            partition by class_id, kind order by scraped_at desc, id desc
        ) as n from snapshot
    ) where n > ?
)
`

func (q *Queries) DeleteOldSnapshots(ctx context.Context, keep int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOldSnapshots, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertRun = `insert into run (id, started_at) values (?, ?)`

func (q *Queries) InsertRun(ctx context.Context, id string, startedAt int64) error {
	_, err := q.db.ExecContext(ctx, insertRun, id, startedAt)
	return err
}

const finishRun = `update run set finished_at = ? where id = ?`

func (q *Queries) FinishRun(ctx context.Context, id string, finishedAt int64) error {
	_, err := q.db.ExecContext(ctx, finishRun, finishedAt, id)
	return err
}

type RunClassRow struct {
	RunID   string
	ClassID string
	Status  string
	Message string
}

const upsertRunClass = `
insert into run_class (run_id, class_id, status, message) values (?, ?, ?, ?)
on conflict (run_id, class_id) do update set status = excluded.status, message = excluded.message
`

func (q *Queries) UpsertRunClass(ctx context.Context, arg RunClassRow) error {
	_, err := q.db.ExecContext(ctx, upsertRunClass, arg.RunID, arg.ClassID, arg.Status, arg.Message)
	return err
}

const listRunClasses = `
select run_id, class_id, status, message from run_class where run_id = ? order by class_id
`

func (q *Queries) ListRunClasses(ctx context.Context, runID string) ([]RunClassRow, error) {
	rows, err := q.db.QueryContext(ctx, listRunClasses, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RunClassRow
	for rows.Next() {
		var i RunClassRow
		err := rows.Scan(&i.RunID, &i.ClassID, &i.Status, &i.Message)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
