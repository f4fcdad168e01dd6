package telemetry

import "fmt"

// Report is a single call recorded by RecordingAPI.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.Id, r.Params)
}

// RecordingAPI is an API that keeps every report in memory so tests can
// assert on which components reported breakage.
type RecordingAPI struct {
	Reports *[]Report
}

func NewRecordingAPI() RecordingAPI {
	return RecordingAPI{Reports: &[]Report{}}
}

func (r RecordingAPI) record(kind, id string, params []any) {
	*r.Reports = append(*r.Reports, Report{Kind: kind, Id: id, Params: params})
}

func (r RecordingAPI) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r RecordingAPI) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r RecordingAPI) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r RecordingAPI) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
}

// Broken returns the ids of every ReportBroken call.
func (r RecordingAPI) Broken() []string {
	var ids []string
	for _, rep := range *r.Reports {
		if rep.Kind == "broken" {
			ids = append(ids, rep.Id)
		}
	}
	return ids
}
