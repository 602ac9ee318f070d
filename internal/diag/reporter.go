package diag

import "github.com/stride3d/stride-sub014/internal/source"

// Reporter receives diagnostics from the pipeline passes.
// Реализации: BagReporter (кладёт в Bag), DedupReporter, NopReporter.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// BagReporter writes into a *Bag.
type BagReporter struct {
	Bag *Bag
	// Fragment is stamped on every diagnostic that passes through.
	Fragment string
}

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Primary: primary, Fragment: r.Fragment, Notes: notes,
	})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}

// Errorf is a shortcut for the common one-line error.
func Errorf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	ReportError(r, code, primary, sprintf(format, args...)).Emit()
}

// Warnf is a shortcut for the common one-line warning.
func Warnf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	ReportWarning(r, code, primary, sprintf(format, args...)).Emit()
}
