package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/source"
)

type palette struct {
	sev      map[diag.Severity]func(a ...any) string
	location func(a ...any) string
	gutter   func(a ...any) string
	marker   func(a ...any) string
	note     func(a ...any) string
}

func paint(on bool, attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func newPalette(on bool) palette {
	return palette{
		sev: map[diag.Severity]func(a ...any) string{
			diag.SevError:   paint(on, color.FgRed, color.Bold),
			diag.SevWarning: paint(on, color.FgYellow, color.Bold),
			diag.SevInfo:    paint(on, color.FgCyan),
		},
		location: paint(on, color.Bold),
		gutter:   paint(on, color.FgBlue),
		marker:   paint(on, color.FgRed, color.Bold),
		note:     paint(on, color.FgCyan, color.Bold),
	}
}

// Pretty writes bag in a human-readable form, one block per diagnostic:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message> [<fragment>]
//
// followed by the source line with the span underlined and, with
// ShowNotes, the notes in the same shape. Call bag.Sort first for a stable order.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	for _, d := range items {
		head := location(d.Primary, d.Fragment, fs, opts)
		msg := d.Message
		if d.Fragment != "" && d.Primary.IsValid() {
			msg += " [" + d.Fragment + "]"
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", pal.location(head), pal.sev[d.Severity](d.Severity.String()), d.Code.ID(), msg)
		excerpt(w, d.Primary, fs, opts.Context, pal)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", pal.note("note:"), location(n.Span, "", fs, opts), n.Msg)
			excerpt(w, n.Span, fs, 0, pal)
		}
	}
}

// location is path:line:col, or the fragment name for spans outside any file.
func location(sp source.Span, fragment string, fs *source.FileSet, opts PrettyOpts) string {
	f := fileOf(fs, sp)
	if f == nil {
		if fragment != "" {
			return fragment
		}
		return "sdslmix"
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", displayPath(f.Path, opts.PathMode, opts.BaseDir), start.Line, start.Col)
}

func fileOf(fs *source.FileSet, sp source.Span) *source.File {
	if fs == nil || !sp.IsValid() {
		return nil
	}
	return fs.Get(sp.File)
}

// excerpt prints context lines above the primary line, then the line itself
// with the span underlined as ^~~~. Multi-line spans are underlined to the
// end of their first line.
func excerpt(w io.Writer, sp source.Span, fs *source.FileSet, context int, pal palette) {
	f := fileOf(fs, sp)
	if f == nil {
		return
	}
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	first := max(1, int(start.Line)-context)
	width := len(fmt.Sprint(start.Line))
	for ln := first; ln <= int(start.Line); ln++ {
		line := strings.TrimRight(f.GetLine(uint32(ln)), "\r")
		fmt.Fprintf(w, "%s %s\n", pal.gutter(fmt.Sprintf("%*d |", width, ln)), expandTabs(line))
	}

	raw := f.GetLine(start.Line)
	col := min(int(start.Col)-1, len(raw))
	stop := len(raw)
	if end.Line == start.Line {
		stop = min(int(end.Col)-1, len(raw))
	}
	pad := runewidth.StringWidth(expandTabs(raw[:col]))
	span := max(1, runewidth.StringWidth(expandTabs(raw[col:max(col, stop)])))
	mark := "^" + strings.Repeat("~", span-1)
	fmt.Fprintf(w, "%s %s%s\n", pal.gutter(strings.Repeat(" ", width)+" |"), strings.Repeat(" ", pad), pal.marker(mark))
}

func expandTabs(s string) string { return strings.ReplaceAll(s, "\t", "    ") }
