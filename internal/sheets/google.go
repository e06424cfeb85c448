package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// GoogleAPI implements API with the Drive v3 and Sheets v4 REST clients.
type GoogleAPI struct {
	drive   *drive.Service
	sheets  *sheets.Service
	limiter *rate.Limiter
}

type GoogleOptions struct {
	// RequestsPerSecond bounds the request rate across both services,
	// 0 means 1 request per second.
	RequestsPerSecond float64
	// ClientOptions are passed to both services after the token source.
	ClientOptions []option.ClientOption
}

func NewGoogleAPI(ctx context.Context, tokens oauth2.TokenSource, opts GoogleOptions) (GoogleAPI, error) {
	clientOpts := append([]option.ClientOption{option.WithTokenSource(tokens)}, opts.ClientOptions...)

	driveService, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return GoogleAPI{}, fmt.Errorf("create drive service: %w", err)
	}
	sheetsService, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return GoogleAPI{}, fmt.Errorf("create sheets service: %w", err)
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return GoogleAPI{
		drive:   driveService,
		sheets:  sheetsService,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (g GoogleAPI) wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// a1Range addresses a whole worksheet by title.
func a1Range(worksheet string) string {
	return "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
}

func (g GoogleAPI) ListSpreadsheets(ctx context.Context) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "ListSpreadsheets")
	defer span.End()

	out := map[string]string{}
	query := fmt.Sprintf("mimeType='%s' and trashed=false", spreadsheetMimeType)
	call := g.drive.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name)").
		PageSize(1000)
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			if _, exists := out[f.Name]; exists {
				continue
			}
			out[f.Name] = f.Id
		}
		return g.wait(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list spreadsheets")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(out)))
	return out, nil
}

func (g GoogleAPI) CopySpreadsheet(ctx context.Context, templateID, name string) (string, error) {
	ctx, span := tracer.Start(ctx, "CopySpreadsheet")
	defer span.End()

	err := g.wait(ctx)
	if err != nil {
		return "", err
	}
	file, err := g.drive.Files.Copy(templateID, &drive.File{Name: name}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy template")
		return "", err
	}
	if file.Id == "" {
		return "", fmt.Errorf("copy of %s has no id", templateID)
	}
	return file.Id, nil
}

func (g GoogleAPI) Worksheets(ctx context.Context, spreadsheetID string) (map[string]int64, error) {
	err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	res, err := g.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(res.Sheets))
	for _, sheet := range res.Sheets {
		if sheet.Properties == nil {
			continue
		}
		out[sheet.Properties.Title] = sheet.Properties.SheetId
	}
	return out, nil
}

func (g GoogleAPI) batchUpdate(ctx context.Context, spreadsheetID string, req *sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	return g.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{req},
	}).Context(ctx).Do()
}

func (g GoogleAPI) AddWorksheet(ctx context.Context, spreadsheetID string, worksheet Worksheet) (int64, error) {
	res, err := g.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: worksheet.Name,
				GridProperties: &sheets.GridProperties{
					RowCount:    int64(worksheet.Rows),
					ColumnCount: int64(worksheet.Cols),
				},
			},
		},
	})
	if err != nil {
		return 0, err
	}
	if len(res.Replies) == 0 || res.Replies[0].AddSheet == nil || res.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add worksheet %q: empty reply", worksheet.Name)
	}
	return res.Replies[0].AddSheet.Properties.SheetId, nil
}

func (g GoogleAPI) ResizeWorksheet(ctx context.Context, spreadsheetID string, sheetID int64, rows, cols int) error {
	_, err := g.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId: sheetID,
				GridProperties: &sheets.GridProperties{
					RowCount:    int64(rows),
					ColumnCount: int64(cols),
				},
			},
			Fields: "gridProperties.rowCount,gridProperties.columnCount",
		},
	})
	return err
}

func (g GoogleAPI) ReadValues(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error) {
	err := g.wait(ctx)
	if err != nil {
		return nil, err
	}
	res, err := g.sheets.Spreadsheets.Values.Get(spreadsheetID, a1Range(worksheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	out := make([][]string, len(res.Values))
	for i, row := range res.Values {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			out[i][j] = fmt.Sprint(cell)
		}
	}
	return out, nil
}

func (g GoogleAPI) WriteValues(ctx context.Context, spreadsheetID, worksheet string, rows [][]string) error {
	err := g.wait(ctx)
	if err != nil {
		return err
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	_, err = g.sheets.Spreadsheets.Values.Update(spreadsheetID, a1Range(worksheet), &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}
