package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"arena-sheets/internal/chrono"
	"arena-sheets/internal/notify"
	"arena-sheets/internal/scrapers/arena"
	"arena-sheets/internal/sheets"
	"arena-sheets/internal/store"
	"arena-sheets/internal/telemetry"
	"arena-sheets/lib/restyutil"
	"arena-sheets/lib/serviceutil"
	"arena-sheets/services/scrape"
	"arena-sheets/services/sync"
)

// app holds what every command needs, the remote clients are created by
// the commands that use them.
type app struct {
	cfg      Config
	db       *sql.DB
	store    store.Store
	time     chrono.StandardTime
	location *time.Location
	tel      telemetry.API
}

func newApp(ctx context.Context) app {
	cfg, err := loadConfig(configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}
	timeAPI, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}

	return app{
		cfg:      cfg,
		db:       db,
		store:    store.NewStore(db),
		time:     timeAPI,
		location: location,
		tel:      telemetry.SlogAPI{},
	}
}

const report_close_db = "close-db"

func (a app) Close() {
	closeDB(a.tel, a.db)
}

func closeDB(tel telemetry.API, db io.Closer) {
	err := db.Close()
	if err != nil {
		tel.ReportBroken(report_close_db, err)
	}
}

func (a app) scrapeService(ctx context.Context) (scrape.Service, error) {
	if a.cfg.Arena.BaseUrl == "" || a.cfg.Arena.Username == "" {
		return scrape.Service{}, fmt.Errorf("arena.base_url and arena.username must be configured")
	}

	var dump restyutil.Output
	if dumpHttp != "" {
		output, err := restyutil.NewDirectoryOutput(dumpHttp)
		if err != nil {
			return scrape.Service{}, err
		}
		dump = output
	}

	client, err := arena.NewClient(ctx, arena.ClientOptions{
		BaseUrl:           a.cfg.Arena.BaseUrl,
		CloudflareBypass:  a.cfg.Arena.CloudflareBypass,
		RequestsPerSecond: a.cfg.Arena.RequestsPerSecond,
		Dump:              dump,
	})
	if err != nil {
		return scrape.Service{}, err
	}

	return scrape.NewService(client, a.store, a.time, a.tel, scrape.Options{
		Credentials: scrape.Credentials{
			Username: a.cfg.Arena.Username,
			Password: a.cfg.Arena.Password,
		},
		ClassSettings: a.cfg.ClassSettings,
		KeepSnapshots: a.cfg.KeepSnapshots,
	}), nil
}

func (a app) notifier() notify.Notifier {
	if !a.cfg.Smtp.Configured() {
		return notify.NewNotifier(notify.LogSender{Tel: a.tel}, "", a.tel)
	}
	return notify.NewNotifier(notify.SmtpSender{Config: a.cfg.Smtp}, a.cfg.Smtp.EmailAddress, a.tel)
}

func (a app) syncOptions() sync.Options {
	return sync.Options{
		TemplateSpreadsheetID: a.cfg.Google.TemplateSpreadsheetID,
		IncludeInactive:       a.cfg.IncludeInactive,
		RequireCurrentWeek:    a.cfg.RequireCurrentWeek,
		ClassSettings:         a.cfg.ClassSettings,
		Location:              a.location,
	}
}

// syncService connects to google, a refresh token that does not work is
// fatal for the whole run.
func (a app) syncService(ctx context.Context) (sync.Service, error) {
	tokens, err := sheets.TokenSource(ctx, a.cfg.Google.Credentials)
	if err != nil {
		return sync.Service{}, err
	}
	api, err := sheets.NewGoogleAPI(ctx, tokens, sheets.GoogleOptions{
		RequestsPerSecond: a.cfg.Google.RequestsPerSecond,
	})
	if err != nil {
		return sync.Service{}, err
	}
	manager := sheets.NewManager(api, a.tel)
	return sync.NewService(a.store, manager, a.notifier(), a.time, a.tel, a.syncOptions()), nil
}

// previewService computes reports without any remote client.
func (a app) previewService() sync.Service {
	return sync.NewService(a.store, discardSheets{}, a.notifier(), a.time, a.tel, a.syncOptions())
}

// discardSheets satisfies sync.Spreadsheets for services that never write.
type discardSheets struct{}

func (discardSheets) PrepSheet(ctx context.Context, name, templateID string, worksheets []sheets.Worksheet) (sheets.Spreadsheet, error) {
	return sheets.Spreadsheet{}, fmt.Errorf("spreadsheets are disabled")
}

func (discardSheets) Overwrite(ctx context.Context, sheet sheets.Spreadsheet, worksheet string, table [][]string) (bool, error) {
	return false, nil
}

func (discardSheets) Prepend(ctx context.Context, sheet sheets.Spreadsheet, worksheet string, table [][]string, opts sheets.PrependOptions) (bool, error) {
	return false, nil
}
