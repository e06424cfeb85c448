package fuzzing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"arena-sheets/internal/chrono"
	"arena-sheets/internal/report"
	"arena-sheets/internal/sheets"
	"arena-sheets/internal/telemetry"

	"github.com/google/go-cmp/cmp"
)

// steps:
// - NewWeek: a new sunday with 1-5 contact queue entries is prepended
// - Rerun: the last week is prepended again
// - EmptyWeek: a week without entries is prepended
// - AnnotateEntry: a person fills "Contacted By" on a random entry
// - OverwriteMembers: a members table of random length replaces the old one

// properties of the system:
// - the contact queue always equals the model built by prepending weeks
// - prepending a week that is already on top writes nothing
// - notes written by people are never lost, unless shifted past the row cap
// - the contact queue never grows past the row cap
// - an overwritten worksheet holds exactly the new table

const (
	sheetsTargetMaxRows = 25
	worksheetQueue      = "Contact Queue"
	worksheetMembers    = "Members"
)

type sheetsTarget struct {
	rndm    *rand.Rand
	api     *sheets.MemoryAPI
	manager *sheets.Manager
	sheet   sheets.Spreadsheet

	week      time.Time
	lastTable [][]string
	// queue is what the contact queue worksheet should hold
	queue   [][]string
	members [][]string

	entryCount func(*rand.Rand) int
}

type SheetsProvider struct{}

func (SheetsProvider) CreateTarget(tel telemetry.API, rndm *rand.Rand) (Target, error) {
	api := sheets.NewMemoryAPI()
	api.AddSpreadsheet("Class", worksheetQueue)

	manager := sheets.NewManager(api, tel)
	sheet, err := manager.PrepSheet(context.Background(), "Class", "", []sheets.Worksheet{
		{Name: worksheetQueue, Rows: 100, Cols: 15},
		{Name: worksheetMembers, Rows: 100, Cols: 15},
	})
	if err != nil {
		return nil, err
	}

	return &sheetsTarget{
		rndm:    rndm,
		api:     api,
		manager: manager,
		sheet:   sheet,
		week:    time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
		// mostly small weeks, sometimes large ones
		entryCount: RandomSwitch(5, 3, 1),
	}, nil
}

func options(asOf string) sheets.PrependOptions {
	return sheets.PrependOptions{
		HasHeader:             true,
		SkipIfFirstCellEquals: asOf,
		MaxRows:               sheetsTargetMaxRows,
	}
}

func (t *sheetsTarget) randomWeek() [][]string {
	asOf := chrono.FormatDate(t.week)
	count := 1 + t.entryCount(t.rndm)*2 + t.rndm.Intn(2)

	table := [][]string{report.ContactQueueHeader}
	for range count {
		table = append(table, []string{
			asOf, RandomName(t.rndm), RandomString(t.rndm, 5), "", "", "", "First Time Visitor", "", "",
		})
	}
	return append(table, []string{report.ContactQueueSeparator})
}

// prependModel applies the upsert policy to the model independently of
// sheets.Prepend.
func (t *sheetsTarget) prependModel(table [][]string) {
	next := append([][]string{}, table...)
	if len(t.queue) > 1 {
		next = append(next, t.queue[1:]...)
	}
	if len(next) > sheetsTargetMaxRows {
		next = next[:sheetsTargetMaxRows]
	}
	t.queue = next
}

// trim drops trailing blank cells and rows the way the sheets api does.
func trim(rows [][]string) [][]string {
	var out [][]string
	for _, row := range rows {
		end := len(row)
		for end > 0 && row[end-1] == "" {
			end--
		}
		out = append(out, append([]string(nil), row[:end]...))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func (t *sheetsTarget) check(ctx context.Context, res *Results, worksheet string, expected [][]string) error {
	values, err := t.api.ReadValues(ctx, t.sheet.ID, worksheet)
	if err != nil {
		return err
	}
	if diff := cmp.Diff(trim(expected), values); diff != "" {
		res.Fail(fmt.Errorf("%s differs from the model (-want +got):\n%s", worksheet, diff))
	}
	return nil
}

func (t *sheetsTarget) StepNewWeek(ctx context.Context, res *Results) error {
	t.week = t.week.AddDate(0, 0, 7)
	table := t.randomWeek()

	wrote, err := t.manager.Prepend(ctx, t.sheet, worksheetQueue, table, options(chrono.FormatDate(t.week)))
	if err != nil {
		return err
	}
	if !wrote {
		res.Fail(fmt.Errorf("week of %s was not written", chrono.FormatDate(t.week)))
	}
	t.lastTable = table
	t.prependModel(table)
	return t.check(ctx, res, worksheetQueue, t.queue)
}

func (t *sheetsTarget) StepRerun(ctx context.Context, res *Results) error {
	if t.lastTable == nil {
		return nil
	}
	before := t.api.WriteCalls
	asOf := t.lastTable[1][0]

	wrote, err := t.manager.Prepend(ctx, t.sheet, worksheetQueue, t.lastTable, options(asOf))
	if err != nil {
		return err
	}
	if wrote || t.api.WriteCalls != before {
		res.Fail(fmt.Errorf("rerun of week %s wrote to the worksheet", asOf))
	}
	return t.check(ctx, res, worksheetQueue, t.queue)
}

func (t *sheetsTarget) StepEmptyWeek(ctx context.Context, res *Results) error {
	t.week = t.week.AddDate(0, 0, 7)
	wrote, err := t.manager.Prepend(ctx, t.sheet, worksheetQueue, [][]string{report.ContactQueueHeader}, options(chrono.FormatDate(t.week)))
	if err != nil {
		return err
	}
	if wrote {
		res.Fail(fmt.Errorf("empty week %s was written", chrono.FormatDate(t.week)))
	}
	return t.check(ctx, res, worksheetQueue, t.queue)
}

func (t *sheetsTarget) StepAnnotateEntry(ctx context.Context, res *Results) error {
	if len(t.queue) <= 1 {
		return nil
	}
	row := 1 + t.rndm.Intn(len(t.queue)-1)
	if len(t.queue[row]) < len(report.ContactQueueHeader) {
		// separator
		return nil
	}

	values, err := t.api.ReadValues(ctx, t.sheet.ID, worksheetQueue)
	if err != nil {
		return err
	}
	if row >= len(values) {
		return nil
	}
	note := RandomString(t.rndm, 8)
	edited := make([][]string, len(values))
	for i, v := range values {
		edited[i] = append([]string(nil), v...)
	}
	for len(edited[row]) < 8 {
		edited[row] = append(edited[row], "")
	}
	edited[row][7] = note
	err = t.api.SetValues(t.sheet.ID, worksheetQueue, edited)
	if err != nil {
		return err
	}

	updated := append([]string(nil), t.queue[row]...)
	updated[7] = note
	t.queue[row] = updated
	return t.check(ctx, res, worksheetQueue, t.queue)
}

func (t *sheetsTarget) StepOverwriteMembers(ctx context.Context, res *Results) error {
	table := [][]string{{"Last Name", "First Name", "Email"}}
	for range t.rndm.Intn(30) {
		table = append(table, []string{RandomName(t.rndm), RandomString(t.rndm, 4), RandomString(t.rndm, 6) + "@example.com"})
	}

	wrote, err := t.manager.Overwrite(ctx, t.sheet, worksheetMembers, table)
	if err != nil {
		return err
	}
	if len(table) <= 1 {
		if wrote {
			res.Fail(fmt.Errorf("a members table without rows was written"))
		}
		return t.check(ctx, res, worksheetMembers, t.members)
	}
	t.members = table
	return t.check(ctx, res, worksheetMembers, t.members)
}

func (t *sheetsTarget) OnEnd(ctx context.Context, res *Results) {
	values, err := t.api.ReadValues(ctx, t.sheet.ID, worksheetQueue)
	if err != nil {
		res.Fail(err)
		return
	}
	if len(values) > sheetsTargetMaxRows {
		res.Fail(fmt.Errorf("contact queue has %d rows, the cap is %d", len(values), sheetsTargetMaxRows))
	}
	if len(values) > 0 && !cmp.Equal(values[0], report.ContactQueueHeader) {
		res.Fail(fmt.Errorf("contact queue header was replaced: %v", values[0]))
	}
}
