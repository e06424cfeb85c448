package scrape

import (
	"context"
	"fmt"

	"arena-sheets/internal/assert"
	"arena-sheets/internal/chrono"
	"arena-sheets/internal/report"
	"arena-sheets/internal/scrapers/arena"
	"arena-sheets/internal/store"
	"arena-sheets/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("arena-sheets/services/scrape")

const (
	report_scrape_all    = "scrape-all"
	report_export_class  = "export-class"
	report_prune         = "prune-snapshots"
	report_classes_found = "classes-found"
)

// DefaultKeepSnapshots is how many exports of each kind are kept per class.
const DefaultKeepSnapshots = 8

// Scraper is the subset of the arena client the service drives.
type Scraper interface {
	Login(ctx context.Context, username, password string) error
	Classes(ctx context.Context, skip func(id string) bool) ([]arena.Class, error)
	RosterExport(ctx context.Context, classID string) ([]byte, error)
	AttendanceExport(ctx context.Context, classID string) ([]byte, error)
}

type Credentials struct {
	Username string
	Password string
}

type Options struct {
	Credentials   Credentials
	ClassSettings report.SettingsTable
	// KeepSnapshots defaults to DefaultKeepSnapshots.
	KeepSnapshots int
}

type Service struct {
	scraper Scraper
	store   store.Store
	time    chrono.TimeAPI
	tel     telemetry.API
	options Options
}

func NewService(scraper Scraper, data store.Store, timeAPI chrono.TimeAPI, tel telemetry.API, options Options) Service {
	assert.NotNil(scraper)
	assert.NotNil(timeAPI)
	assert.NotNil(tel)
	assert.NotEmptyStr(options.Credentials.Username)
	assert.True(options.KeepSnapshots >= 0, "keep snapshots cannot be negative")
	if options.KeepSnapshots == 0 {
		options.KeepSnapshots = DefaultKeepSnapshots
	}
	return Service{
		scraper: scraper,
		store:   data,
		time:    timeAPI,
		tel:     telemetry.NewScopedAPI("scrape", tel),
		options: options,
	}
}

type Summary struct {
	Classes  int
	Exported int
	Failed   int
}

// ScrapeAll logs in, refreshes the class list and stores the roster and
// attendance exports of every class that is not skipped. When onlyClassID is
// set only that class is exported. A class whose export fails is reported
// and left with its previous snapshots.
func (s Service) ScrapeAll(ctx context.Context, onlyClassID string) (Summary, error) {
	ctx, span := tracer.Start(ctx, "ScrapeAll")
	defer span.End()

	err := s.scraper.Login(ctx, s.options.Credentials.Username, s.options.Credentials.Password)
	if err != nil {
		s.tel.ReportBroken(report_scrape_all, fmt.Errorf("login: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to login")
		return Summary{}, err
	}

	found, err := s.scraper.Classes(ctx, s.options.ClassSettings.Skip)
	if err != nil {
		s.tel.ReportBroken(report_scrape_all, fmt.Errorf("list classes: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list classes")
		return Summary{}, err
	}
	s.tel.ReportCount(report_classes_found, int64(len(found)))

	classes := make([]store.Class, len(found))
	for i, c := range found {
		classes[i] = store.Class{ID: c.ID, Name: c.Name}
	}
	now := s.time.Now()
	err = s.store.PutClasses(ctx, classes, now)
	if err != nil {
		s.tel.ReportBroken(report_scrape_all, fmt.Errorf("save classes: %w", err))
		return Summary{}, err
	}

	summary := Summary{Classes: len(classes)}
	for _, class := range classes {
		if onlyClassID != "" && class.ID != onlyClassID {
			continue
		}
		err := s.exportClass(ctx, class.ID)
		if err != nil {
			summary.Failed++
			s.tel.ReportBroken(
				report_export_class, err,
				telemetry.KV{Key: "class_id", Value: class.ID},
				telemetry.KV{Key: "class", Value: class.Name},
			)
			continue
		}
		summary.Exported++
	}

	pruned, err := s.store.PruneSnapshots(ctx, s.options.KeepSnapshots)
	if err != nil {
		s.tel.ReportWarning(report_prune, err)
	} else if pruned > 0 {
		s.tel.ReportDebug("pruned snapshots", telemetry.KV{Key: "count", Value: pruned})
	}

	span.SetAttributes(
		attribute.Int("exported", summary.Exported),
		attribute.Int("failed", summary.Failed),
	)
	return summary, nil
}

// exportClass downloads both exports and stores them in one transaction, so
// a class never ends up with a roster newer than its attendance.
func (s Service) exportClass(ctx context.Context, classID string) error {
	ctx, span := tracer.Start(ctx, "exportClass")
	defer span.End()
	span.SetAttributes(attribute.String("class_id", classID))

	roster, err := s.scraper.RosterExport(ctx, classID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to export roster")
		return fmt.Errorf("roster export: %w", err)
	}
	attendance, err := s.scraper.AttendanceExport(ctx, classID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to export attendance")
		return fmt.Errorf("attendance export: %w", err)
	}

	now := s.time.Now()
	err = s.store.PutSnapshots(ctx,
		store.Snapshot{ClassID: classID, Kind: store.KindRoster, Format: store.FormatHTML, Contents: roster, ScrapedAt: now},
		store.Snapshot{ClassID: classID, Kind: store.KindAttendance, Format: store.FormatHTML, Contents: attendance, ScrapedAt: now},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save snapshots")
		return err
	}
	return nil
}
