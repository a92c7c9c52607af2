package telemetry

import (
	"strings"
	"sync"
)

// Severity is the kind of report a Recorder captured.
type Severity int

const (
	SEVERITY_DEBUG Severity = iota
	SEVERITY_WARNING
	SEVERITY_BROKEN
	SEVERITY_COUNT
)

// Report is a single call made against a Recorder.
type Report struct {
	Severity Severity
	Id       string
	Params   []any
}

// Recorder is an API that keeps every report in memory, it is meant for tests
// asserting that components report what they should.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) push(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push(Report{Severity: SEVERITY_BROKEN, Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push(Report{Severity: SEVERITY_WARNING, Id: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push(Report{Severity: SEVERITY_DEBUG, Id: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push(Report{Severity: SEVERITY_COUNT, Id: id, Params: []any{count}})
}

// Reports returns a copy of all reports of the given severity whose id ends with `suffix`.
// An empty suffix matches everything.
func (r *Recorder) Reports(severity Severity, suffix string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Severity != severity {
			continue
		}
		if !strings.HasSuffix(report.Id, suffix) {
			continue
		}
		out = append(out, report)
	}
	return out
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = nil
}
