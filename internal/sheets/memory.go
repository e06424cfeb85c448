package sheets

import (
	"context"
	"fmt"
	"sync"
)

type memoryWorksheet struct {
	id         int64
	rows, cols int
	values     [][]string
}

type memorySpreadsheet struct {
	name       string
	worksheets map[string]*memoryWorksheet
}

// MemoryAPI is an in-memory drive, it counts the calls that matter for
// quota so callers can assert on them.
//
// note: fault injection point
type MemoryAPI struct {
	mutex        sync.Mutex
	spreadsheets map[string]*memorySpreadsheet
	nextID       int

	ListCalls  int
	CopyCalls  int
	WriteCalls int
	// FailWrites makes every WriteValues fail.
	FailWrites bool
}

func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{spreadsheets: map[string]*memorySpreadsheet{}}
}

func (m *MemoryAPI) addSpreadsheet(name string, worksheets ...string) string {
	m.nextID++
	id := fmt.Sprintf("sheet-%d", m.nextID)
	s := &memorySpreadsheet{name: name, worksheets: map[string]*memoryWorksheet{}}
	for i, ws := range worksheets {
		s.worksheets[ws] = &memoryWorksheet{id: int64(i), rows: 100, cols: 26}
	}
	m.spreadsheets[id] = s
	return id
}

// AddSpreadsheet creates a spreadsheet with 100x26 worksheets and returns its id.
func (m *MemoryAPI) AddSpreadsheet(name string, worksheets ...string) string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.addSpreadsheet(name, worksheets...)
}

func (m *MemoryAPI) worksheet(spreadsheetID, worksheet string) (*memoryWorksheet, error) {
	s, ok := m.spreadsheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	ws, ok := s.worksheets[worksheet]
	if !ok {
		return nil, fmt.Errorf("worksheet %s not found in %s", worksheet, spreadsheetID)
	}
	return ws, nil
}

// SetValues replaces the contents of a worksheet, as a person editing the
// spreadsheet would.
func (m *MemoryAPI) SetValues(spreadsheetID, worksheet string, values [][]string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ws, err := m.worksheet(spreadsheetID, worksheet)
	if err != nil {
		return err
	}
	ws.values = values
	return nil
}

// Dimensions returns the grid size of a worksheet.
func (m *MemoryAPI) Dimensions(spreadsheetID, worksheet string) (rows, cols int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ws, err := m.worksheet(spreadsheetID, worksheet)
	if err != nil {
		return 0, 0, err
	}
	return ws.rows, ws.cols, nil
}

func (m *MemoryAPI) ListSpreadsheets(ctx context.Context) (map[string]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.ListCalls++
	out := map[string]string{}
	for id, s := range m.spreadsheets {
		out[s.name] = id
	}
	return out, nil
}

func (m *MemoryAPI) CopySpreadsheet(ctx context.Context, templateID, name string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.CopyCalls++
	template, ok := m.spreadsheets[templateID]
	if !ok {
		return "", fmt.Errorf("template %s not found", templateID)
	}
	var names []string
	for ws := range template.worksheets {
		names = append(names, ws)
	}
	return m.addSpreadsheet(name, names...), nil
}

func (m *MemoryAPI) Worksheets(ctx context.Context, spreadsheetID string) (map[string]int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.spreadsheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	out := map[string]int64{}
	for name, ws := range s.worksheets {
		out[name] = ws.id
	}
	return out, nil
}

func (m *MemoryAPI) AddWorksheet(ctx context.Context, spreadsheetID string, worksheet Worksheet) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.spreadsheets[spreadsheetID]
	if !ok {
		return 0, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	id := int64(len(s.worksheets) + 100)
	s.worksheets[worksheet.Name] = &memoryWorksheet{id: id, rows: worksheet.Rows, cols: worksheet.Cols}
	return id, nil
}

func (m *MemoryAPI) ResizeWorksheet(ctx context.Context, spreadsheetID string, sheetID int64, rows, cols int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.spreadsheets[spreadsheetID]
	if !ok {
		return fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	for _, ws := range s.worksheets {
		if ws.id != sheetID {
			continue
		}
		ws.rows = rows
		ws.cols = cols
		// shrinking a worksheet deletes the cells outside of it
		if len(ws.values) > rows {
			ws.values = ws.values[:rows]
		}
		for i, row := range ws.values {
			if len(row) > cols {
				ws.values[i] = row[:cols]
			}
		}
		return nil
	}
	return fmt.Errorf("worksheet %d not found", sheetID)
}

func (m *MemoryAPI) ReadValues(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ws, err := m.worksheet(spreadsheetID, worksheet)
	if err != nil {
		return nil, err
	}

	var out [][]string
	for _, row := range ws.values {
		// the sheets api leaves out trailing blank cells
		end := len(row)
		for end > 0 && row[end-1] == "" {
			end--
		}
		out = append(out, append([]string(nil), row[:end]...))
	}
	// and trailing blank rows
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *MemoryAPI) WriteValues(ctx context.Context, spreadsheetID, worksheet string, rows [][]string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.FailWrites {
		return fmt.Errorf("quota exceeded")
	}
	ws, err := m.worksheet(spreadsheetID, worksheet)
	if err != nil {
		return err
	}
	m.WriteCalls++
	for i, row := range rows {
		for len(ws.values) <= i {
			ws.values = append(ws.values, nil)
		}
		merged := append([]string(nil), ws.values[i]...)
		for len(merged) < len(row) {
			merged = append(merged, "")
		}
		copy(merged, row)
		ws.values[i] = merged
	}
	return nil
}
