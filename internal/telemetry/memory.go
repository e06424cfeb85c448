package telemetry

import "sync"

// Report is a single call recorded by MemoryAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
	Count  int64
}

// MemoryAPI records every report in memory, it is meant to be injected in
// tests that assert on what a component reported.
type MemoryAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (m *MemoryAPI) record(r Report) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reports = append(m.reports, r)
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.record(Report{Kind: "broken", ID: id, Params: params})
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.record(Report{Kind: "warning", ID: id, Params: params})
}

func (m *MemoryAPI) ReportDebug(msg string, params ...any) {
	m.record(Report{Kind: "debug", ID: msg, Params: params})
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.record(Report{Kind: "count", ID: id, Count: count})
}

// Reports returns the recorded reports of the given kind, all of them if kind is empty.
func (m *MemoryAPI) Reports(kind string) []Report {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var out []Report
	for _, r := range m.reports {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// NoopAPI drops every report.
type NoopAPI struct{}

func (NoopAPI) ReportBroken(id string, params ...any)  {}
func (NoopAPI) ReportWarning(id string, params ...any) {}
func (NoopAPI) ReportDebug(msg string, params ...any)  {}
func (NoopAPI) ReportCount(id string, count int64)     {}
