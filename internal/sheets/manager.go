package sheets

import (
	"context"
	"fmt"
	"sync"

	"arena-sheets/internal/assert"
	"arena-sheets/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("arena-sheets/internal/sheets")

const (
	report_manager_inventory   = "manager.inventory"
	report_manager_prep_sheet  = "manager.prep-sheet"
	report_manager_overwrite   = "manager.overwrite"
	report_manager_prepend     = "manager.prepend"
	report_manager_copy        = "manager.copy-template"
	report_manager_worksheets  = "manager.worksheets"
	report_manager_write_count = "manager.rows-written"
)

// Spreadsheet is a prepared class spreadsheet.
type Spreadsheet struct {
	ID         string
	Name       string
	Worksheets map[string]int64
}

// Manager keeps one spreadsheet per class in sync.
type Manager struct {
	api API
	tel telemetry.API

	mutex sync.Mutex
	// inventory maps spreadsheet names to ids, fetched once and written
	// through on every copy.
	inventory map[string]string
}

func NewManager(api API, tel telemetry.API) *Manager {
	assert.NotNil(api)
	assert.NotNil(tel)
	return &Manager{
		api: api,
		tel: telemetry.NewScopedAPI("sheets", tel),
	}
}

func (m *Manager) spreadsheetID(ctx context.Context, name, templateID string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.inventory == nil {
		inventory, err := m.api.ListSpreadsheets(ctx)
		if err != nil {
			m.tel.ReportBroken(report_manager_inventory, err)
			return "", fmt.Errorf("list spreadsheets: %w", err)
		}
		m.inventory = inventory
		m.tel.ReportDebug("fetched spreadsheet inventory", telemetry.KV{Key: "count", Value: len(inventory)})
	}

	id, ok := m.inventory[name]
	if ok {
		return id, nil
	}

	if templateID == "" {
		return "", fmt.Errorf("spreadsheet %q does not exist and no template is configured", name)
	}
	id, err := m.api.CopySpreadsheet(ctx, templateID, name)
	if err != nil {
		m.tel.ReportBroken(report_manager_copy, err, telemetry.KV{Key: "name", Value: name})
		return "", fmt.Errorf("copy template for %q: %w", name, err)
	}
	m.inventory[name] = id
	m.tel.ReportDebug("created spreadsheet from template", telemetry.KV{Key: "name", Value: name})
	return id, nil
}

// PrepSheet resolves the spreadsheet called name, copying it from the
// template when it does not exist yet, then creates any missing worksheets.
func (m *Manager) PrepSheet(ctx context.Context, name, templateID string, worksheets []Worksheet) (Spreadsheet, error) {
	ctx, span := tracer.Start(ctx, "PrepSheet")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	id, err := m.spreadsheetID(ctx, name, templateID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve spreadsheet")
		return Spreadsheet{}, err
	}

	existing, err := m.api.Worksheets(ctx, id)
	if err != nil {
		m.tel.ReportBroken(report_manager_worksheets, err, telemetry.KV{Key: "spreadsheet", Value: id})
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list worksheets")
		return Spreadsheet{}, err
	}

	for _, ws := range worksheets {
		if _, ok := existing[ws.Name]; ok {
			continue
		}
		sheetID, err := m.api.AddWorksheet(ctx, id, ws)
		if err != nil {
			m.tel.ReportBroken(report_manager_prep_sheet, err, telemetry.KV{Key: "worksheet", Value: ws.Name})
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to add worksheet")
			return Spreadsheet{}, fmt.Errorf("add worksheet %q: %w", ws.Name, err)
		}
		existing[ws.Name] = sheetID
	}

	return Spreadsheet{ID: id, Name: name, Worksheets: existing}, nil
}

func (m *Manager) apply(ctx context.Context, sheet Spreadsheet, worksheet string, update Update) error {
	sheetID, ok := sheet.Worksheets[worksheet]
	if !ok {
		return fmt.Errorf("spreadsheet %q has no worksheet %q", sheet.Name, worksheet)
	}
	err := m.api.ResizeWorksheet(ctx, sheet.ID, sheetID, update.RowCount, update.ColCount)
	if err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	err = m.api.WriteValues(ctx, sheet.ID, worksheet, update.Rows)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	m.tel.ReportCount(report_manager_write_count, int64(len(update.Rows)))
	return nil
}

// Overwrite replaces a worksheet with table, it reports whether anything
// was written.
func (m *Manager) Overwrite(ctx context.Context, sheet Spreadsheet, worksheet string, table [][]string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Overwrite")
	defer span.End()
	span.SetAttributes(attribute.String("worksheet", worksheet))

	update, ok := Overwrite(table)
	if !ok {
		return false, nil
	}
	err := m.apply(ctx, sheet, worksheet, update)
	if err != nil {
		m.tel.ReportBroken(
			report_manager_overwrite, err,
			telemetry.KV{Key: "spreadsheet", Value: sheet.Name},
			telemetry.KV{Key: "worksheet", Value: worksheet},
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to overwrite")
		return false, err
	}
	return true, nil
}

// Prepend reads the worksheet back and writes table above the existing
// rows, it reports whether anything was written.
func (m *Manager) Prepend(ctx context.Context, sheet Spreadsheet, worksheet string, table [][]string, opts PrependOptions) (bool, error) {
	ctx, span := tracer.Start(ctx, "Prepend")
	defer span.End()
	span.SetAttributes(attribute.String("worksheet", worksheet))

	if len(table) <= 1 {
		return false, nil
	}

	fail := func(err error) (bool, error) {
		m.tel.ReportBroken(
			report_manager_prepend, err,
			telemetry.KV{Key: "spreadsheet", Value: sheet.Name},
			telemetry.KV{Key: "worksheet", Value: worksheet},
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to prepend")
		return false, err
	}

	existing, err := m.api.ReadValues(ctx, sheet.ID, worksheet)
	if err != nil {
		return fail(fmt.Errorf("read: %w", err))
	}
	update, ok := Prepend(existing, table, opts)
	if !ok {
		m.tel.ReportDebug(
			"worksheet already up to date",
			telemetry.KV{Key: "spreadsheet", Value: sheet.Name},
			telemetry.KV{Key: "worksheet", Value: worksheet},
		)
		return false, nil
	}
	err = m.apply(ctx, sheet, worksheet, update)
	if err != nil {
		return fail(err)
	}
	return true, nil
}
