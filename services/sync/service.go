package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arena-sheets/internal/arena"
	"arena-sheets/internal/assert"
	"arena-sheets/internal/chrono"
	"arena-sheets/internal/report"
	"arena-sheets/internal/sheets"
	"arena-sheets/internal/store"
	"arena-sheets/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("arena-sheets/services/sync")

const (
	report_update_all       = "update-all"
	report_update_class     = "update-class"
	report_skip_class       = "skip-class"
	report_join_suggestion  = "join-suggestion"
	report_notify           = "notify"
	report_classes_updated  = "classes-updated"
	report_record_run_class = "record-run-class"
)

// ErrSkipped is returned for a class whose settings mark it as skipped.
var ErrSkipped = errors.New("class is skipped")

// ErrNotCurrent is returned for a class whose attendance does not include
// the current week yet.
var ErrNotCurrent = errors.New("attendance for the current week is not available")

// Spreadsheets is the subset of sheets.Manager the service writes through.
type Spreadsheets interface {
	PrepSheet(ctx context.Context, name, templateID string, worksheets []sheets.Worksheet) (sheets.Spreadsheet, error)
	Overwrite(ctx context.Context, sheet sheets.Spreadsheet, worksheet string, table [][]string) (bool, error)
	Prepend(ctx context.Context, sheet sheets.Spreadsheet, worksheet string, table [][]string, opts sheets.PrependOptions) (bool, error)
}

// Notifier is told about contact queue entries that were actually written.
type Notifier interface {
	ContactQueue(ctx context.Context, className string, table [][]string, recipients []string) error
}

type Options struct {
	TemplateSpreadsheetID string
	// IncludeInactive adds the Inactive worksheet.
	IncludeInactive bool
	// RequireCurrentWeek skips classes whose attendance does not contain
	// the Sunday of the current week.
	RequireCurrentWeek bool
	ClassSettings      report.SettingsTable
	Location           *time.Location
}

type Service struct {
	store    store.Store
	sheets   Spreadsheets
	notifier Notifier
	time     chrono.TimeAPI
	tel      telemetry.API
	options  Options
}

func NewService(
	data store.Store,
	spreadsheets Spreadsheets,
	notifier Notifier,
	timeAPI chrono.TimeAPI,
	tel telemetry.API,
	options Options,
) Service {
	assert.NotNil(spreadsheets)
	assert.NotNil(notifier)
	assert.NotNil(timeAPI)
	assert.NotNil(tel)
	if options.Location == nil {
		options.Location = time.UTC
	}
	return Service{
		store:    data,
		sheets:   spreadsheets,
		notifier: notifier,
		time:     timeAPI,
		tel:      telemetry.NewScopedAPI("sync", tel),
		options:  options,
	}
}

type Summary struct {
	RunID   string
	Updated int
	Skipped int
	Failed  int
}

// isSkippable is missing or stale data, the class is skipped instead of failed.
func isSkippable(err error) bool {
	return errors.Is(err, ErrSkipped) ||
		errors.Is(err, arena.ErrMissingData) ||
		errors.Is(err, arena.ErrNoAttendanceDates) ||
		errors.Is(err, store.ErrNoSnapshot) ||
		errors.Is(err, ErrNotCurrent)
}

// UpdateAll updates the spreadsheet of every stored class, or only of
// onlyClassID when it is set. Classes are processed one at a time and a
// class failing never stops the others.
func (s Service) UpdateAll(ctx context.Context, onlyClassID string) (Summary, error) {
	ctx, span := tracer.Start(ctx, "UpdateAll")
	defer span.End()

	classes, err := s.store.Classes(ctx)
	if err != nil {
		s.tel.ReportBroken(report_update_all, fmt.Errorf("list classes: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list classes")
		return Summary{}, err
	}
	if onlyClassID != "" {
		var filtered []store.Class
		for _, c := range classes {
			if c.ID == onlyClassID {
				filtered = append(filtered, c)
			}
		}
		classes = filtered
	}
	if len(classes) == 0 {
		return Summary{}, fmt.Errorf("no classes to update, scrape first")
	}

	runID, err := s.store.StartRun(ctx, s.time.Now())
	if err != nil {
		s.tel.ReportBroken(report_update_all, fmt.Errorf("start run: %w", err))
		return Summary{}, err
	}
	summary := Summary{RunID: runID}

	for _, class := range classes {
		result := store.ClassResult{ClassID: class.ID, Status: store.RunUpdated}

		err := s.UpdateClass(ctx, class)
		switch {
		case err == nil:
			summary.Updated++
		case errors.Is(err, ErrSkipped):
			summary.Skipped++
			result.Status = store.RunSkipped
			result.Message = err.Error()
			s.tel.ReportDebug("skipping class", telemetry.KV{Key: "class_id", Value: class.ID})
		case isSkippable(err):
			summary.Skipped++
			result.Status = store.RunSkipped
			result.Message = err.Error()
			s.tel.ReportWarning(
				report_skip_class, err,
				telemetry.KV{Key: "class_id", Value: class.ID},
				telemetry.KV{Key: "class", Value: class.Name},
			)
		default:
			summary.Failed++
			result.Status = store.RunFailed
			result.Message = err.Error()
			s.tel.ReportBroken(
				report_update_class, err,
				telemetry.KV{Key: "class_id", Value: class.ID},
				telemetry.KV{Key: "class", Value: class.Name},
			)
		}

		err = s.store.RecordClassResult(ctx, runID, result)
		if err != nil {
			s.tel.ReportBroken(report_record_run_class, err, telemetry.KV{Key: "class_id", Value: class.ID})
		}
	}

	err = s.store.FinishRun(ctx, runID, s.time.Now())
	if err != nil {
		s.tel.ReportBroken(report_update_all, fmt.Errorf("finish run: %w", err))
	}
	s.tel.ReportCount(report_classes_updated, int64(summary.Updated))
	span.SetAttributes(
		attribute.Int("updated", summary.Updated),
		attribute.Int("skipped", summary.Skipped),
		attribute.Int("failed", summary.Failed),
	)
	return summary, nil
}

// ClassReports parses the latest stored exports of a class and computes its
// reports without writing anything.
func (s Service) ClassReports(ctx context.Context, class store.Class) (Reports, report.ClassSettings, error) {
	settings, err := s.options.ClassSettings.For(class.ID)
	if err != nil {
		return Reports{}, report.ClassSettings{}, err
	}
	if settings.Skip {
		return Reports{}, settings, ErrSkipped
	}

	roster, attendance, err := s.store.LatestTables(ctx, class.ID)
	if err != nil {
		return Reports{}, settings, err
	}
	data, err := arena.Parse(roster, attendance, s.options.Location)
	if err != nil {
		return Reports{}, settings, err
	}

	for _, suggestion := range arena.SuggestJoins(data) {
		s.tel.ReportWarning(
			report_join_suggestion,
			telemetry.KV{Key: "class_id", Value: class.ID},
			telemetry.KV{Key: "roster", Value: suggestion.RosterName},
			telemetry.KV{Key: "attendance", Value: suggestion.AttendanceName},
			telemetry.KV{Key: "similarity", Value: suggestion.Similarity},
		)
	}

	lastSunday := chrono.LastSunday(s.time.Now().In(s.options.Location))
	if s.options.RequireCurrentWeek && !data.Attendance.Contains(lastSunday) {
		return Reports{}, settings, fmt.Errorf("%s: %w", chrono.FormatDate(lastSunday), ErrNotCurrent)
	}

	return BuildReports(data, settings, chrono.FormatDate(lastSunday), s.options.IncludeInactive), settings, nil
}

// UpdateClass writes the reports of one class to its spreadsheet. Each
// worksheet is written independently, a failed write does not stop the
// others.
func (s Service) UpdateClass(ctx context.Context, class store.Class) error {
	ctx, span := tracer.Start(ctx, "UpdateClass")
	defer span.End()
	span.SetAttributes(attribute.String("class_id", class.ID))

	reports, settings, err := s.ClassReports(ctx, class)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute reports")
		return err
	}

	sheet, err := s.sheets.PrepSheet(ctx, class.Name, s.options.TemplateSpreadsheetID, Worksheets(s.options.IncludeInactive))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to prepare spreadsheet")
		return err
	}

	var errs []error
	for _, named := range reports.Named() {
		if named.Worksheet == WorksheetContactQueue {
			wrote, err := s.sheets.Prepend(ctx, sheet, named.Worksheet, named.Table, sheets.PrependOptions{
				HasHeader:             true,
				SkipIfFirstCellEquals: reports.AsOf,
				MaxRows:               ContactQueueMaxRows,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", named.Worksheet, err))
				continue
			}
			if wrote {
				err = s.notifier.ContactQueue(ctx, class.Name, named.Table, settings.Notify)
				if err != nil {
					s.tel.ReportWarning(report_notify, err, telemetry.KV{Key: "class_id", Value: class.ID})
				}
			}
			continue
		}

		_, err := s.sheets.Overwrite(ctx, sheet, named.Worksheet, named.Table)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", named.Worksheet, err))
		}
	}

	err = errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write worksheets")
	}
	return err
}
