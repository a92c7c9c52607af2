package telemetry

// API is how components report what happens to them, it exists so tests can
// assert on logging and metrics the same way they assert on return values.
//
// note: fault injection point
type API interface {
	// ReportBroken reports that a component stopped working and someone should look at it.
	//
	// `id` names the component, not the line that failed. A zwiftpower profile
	// whose power-profile script cannot be decoded reports `profile.power-profile`,
	// the url and the decode error go into params.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) dots separate a component from the part of it that broke
	// 3) dashes join words within a part
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that the component recovered from,
	// such as a missing field on a scraped page. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is only useful while debugging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a counter. Values are points over
	// time and must not be summed. Ids follow ReportBroken.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, "<namespace>: <id>".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return s.namespace + ": " + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
