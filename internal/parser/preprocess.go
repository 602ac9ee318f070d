package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
)

// expanded is preprocessed text plus the edits needed to map its offsets back
// into the original file. Directive lines and inactive regions are blanked in
// place; only macro substitution changes lengths.
type expanded struct {
	text   []byte
	shifts []shift
}

// shift records that from offset At on, the expanded text is Delta bytes longer
// than the original.
type shift struct {
	At    int
	Delta int
}

func (e *expanded) original(off int) uint32 {
	i := sort.Search(len(e.shifts), func(i int) bool { return e.shifts[i].At > off })
	if i > 0 {
		off -= e.shifts[i-1].Delta
	}
	if off < 0 {
		off = 0
	}
	n, err := safecast.Conv[uint32](off)
	if err != nil {
		panic(fmt.Errorf("source offset overflow: %w", err))
	}
	return n
}

type condFrame struct {
	parentActive bool
	active       bool
	taken        bool
	sawElse      bool
	span         source.Span
}

type preprocessor struct {
	file     *source.File
	reporter diag.Reporter
	caller   mixin.Macros
	defines  map[string]string

	out     []byte
	shifts  []shift
	delta   int
	stack   []condFrame
	comment bool // inside /* */ across lines
}

// Preprocess expands the directives and object-like macros of file.
// Caller macros win over in-file #define of the same name.
func Preprocess(file *source.File, macros mixin.Macros, r diag.Reporter) []byte {
	if r == nil {
		r = diag.NopReporter{}
	}
	return preprocess(file, macros, r).text
}

func preprocess(file *source.File, macros mixin.Macros, r diag.Reporter) *expanded {
	p := &preprocessor{
		file:     file,
		reporter: r,
		caller:   macros,
		defines:  make(map[string]string, len(macros)),
		out:      make([]byte, 0, len(file.Content)),
	}
	for _, m := range macros.Merge(nil) {
		p.defines[m.Name] = m.Definition
	}
	p.run()
	return &expanded{text: p.out, shifts: p.shifts}
}

func (p *preprocessor) active() bool {
	if len(p.stack) == 0 {
		return true
	}
	return p.stack[len(p.stack)-1].active
}

func (p *preprocessor) lineSpan(start, end int) source.Span {
	s, _ := safecast.Conv[uint32](start)
	e, _ := safecast.Conv[uint32](end)
	return source.Span{File: p.file.ID, Start: s, End: e}
}

func (p *preprocessor) run() {
	content := p.file.Content
	start := 0
	for start < len(content) {
		end := start
		for end < len(content) && content[end] != '\n' {
			end++
		}
		trimmed := strings.TrimLeft(string(content[start:end]), " \t")
		if strings.HasPrefix(trimmed, "#") {
			// директива может продолжаться на следующих строках через '\'
			for end < len(content) && end > start && content[end-1] == '\\' {
				end++
				for end < len(content) && content[end] != '\n' {
					end++
				}
			}
			p.directive(content[start:end], start)
			p.blank(content[start:end])
		} else if p.active() {
			p.substitute(content[start:end])
		} else {
			p.blank(content[start:end])
		}
		if end < len(content) {
			p.out = append(p.out, '\n')
		}
		start = end + 1
	}
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		diag.Errorf(p.reporter, diag.SynPreprocessor, top.span, "unterminated conditional directive")
	}
}

// blank keeps newlines so that line numbers and offsets survive.
func (p *preprocessor) blank(line []byte) {
	for _, c := range line {
		if c == '\n' {
			p.out = append(p.out, '\n')
		} else {
			p.out = append(p.out, ' ')
		}
	}
}

func (p *preprocessor) directive(raw []byte, offset int) {
	text := strings.ReplaceAll(string(raw), "\\\n", " ")
	text = strings.TrimSpace(text)[1:]
	name, rest := cutSpace(stripLineComment(strings.TrimSpace(text)))
	sp := p.lineSpan(offset, offset+len(raw))

	switch name {
	case "define":
		if !p.active() {
			return
		}
		macro, value := cutSpace(rest)
		if strings.Contains(macro, "(") {
			diag.Errorf(p.reporter, diag.SynPreprocessor, sp, "function-like macro %q is not supported", macro[:strings.IndexByte(macro, '(')])
			return
		}
		if macro == "" {
			diag.Errorf(p.reporter, diag.SynPreprocessor, sp, "#define without a name")
			return
		}
		if _, ok := p.caller.Lookup(macro); ok {
			return
		}
		p.defines[macro] = value
	case "undef":
		if !p.active() {
			return
		}
		if _, ok := p.caller.Lookup(rest); ok {
			return
		}
		delete(p.defines, rest)
	case "ifdef", "ifndef", "if":
		parent := p.active()
		cond := false
		if parent {
			switch name {
			case "ifdef":
				_, cond = p.defines[rest]
			case "ifndef":
				_, cond = p.defines[rest]
				cond = !cond
			default:
				cond = p.eval(rest, sp)
			}
		}
		p.stack = append(p.stack, condFrame{parentActive: parent, active: parent && cond, taken: cond, span: sp})
	case "elif":
		top := p.top(name, sp)
		if top == nil {
			return
		}
		if top.sawElse {
			diag.Errorf(p.reporter, diag.SynPreprocessor, sp, "#elif after #else")
		}
		if top.taken || !top.parentActive {
			top.active = false
			return
		}
		top.active = p.eval(rest, sp)
		top.taken = top.active
	case "else":
		top := p.top(name, sp)
		if top == nil {
			return
		}
		if top.sawElse {
			diag.Errorf(p.reporter, diag.SynPreprocessor, sp, "duplicate #else")
		}
		top.sawElse = true
		top.active = top.parentActive && !top.taken
		top.taken = true
	case "endif":
		if p.top(name, sp) == nil {
			return
		}
		p.stack = p.stack[:len(p.stack)-1]
	default:
		// #pragma, #line и прочее пропускаем
	}
}

func (p *preprocessor) top(name string, sp source.Span) *condFrame {
	if len(p.stack) == 0 {
		diag.Errorf(p.reporter, diag.SynPreprocessor, sp, "#%s without #if", name)
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

// cutSpace splits s at the first blank into a word and the trimmed remainder.
func cutSpace(s string) (string, string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

func stripLineComment(s string) string {
	if i := strings.Index(s, "//"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// substitute copies one active line replacing defined identifiers outside
// strings and comments.
func (p *preprocessor) substitute(line []byte) {
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case p.comment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				p.out = append(p.out, '*', '/')
				p.comment = false
				i += 2
				continue
			}
			p.out = append(p.out, c)
			i++
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			p.out = append(p.out, line[i:]...)
			return
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			p.out = append(p.out, '/', '*')
			p.comment = true
			i += 2
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(line) {
				j++
			}
			p.out = append(p.out, line[i:min(j, len(line))]...)
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			word := string(line[i:j])
			if value, ok := p.defines[word]; ok {
				repl := p.expand(value, map[string]bool{word: true})
				p.out = append(p.out, repl...)
				if d := len(repl) - len(word); d != 0 {
					p.delta += d
					p.shifts = append(p.shifts, shift{At: len(p.out), Delta: p.delta})
				}
			} else {
				p.out = append(p.out, word...)
			}
			i = j
		case c >= '0' && c <= '9':
			// числовой литерал целиком, чтобы 1e5 или 0xABCDEF не приняли за идентификатор
			j := i + 1
			for j < len(line) && (isIdentPart(line[j]) || line[j] == '.') {
				j++
			}
			p.out = append(p.out, line[i:j]...)
			i = j
		default:
			p.out = append(p.out, c)
			i++
		}
	}
}

// expand substitutes macros inside a macro value; visiting stops self-reference.
func (p *preprocessor) expand(value string, visiting map[string]bool) string {
	var sb strings.Builder
	i := 0
	for i < len(value) {
		c := value[i]
		if !isIdentStart(c) {
			sb.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(value) && isIdentPart(value[j]) {
			j++
		}
		word := value[i:j]
		if inner, ok := p.defines[word]; ok && !visiting[word] {
			visiting[word] = true
			sb.WriteString(p.expand(inner, visiting))
			delete(visiting, word)
		} else {
			sb.WriteString(word)
		}
		i = j
	}
	return sb.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// eval evaluates a #if / #elif condition.
func (p *preprocessor) eval(expr string, sp source.Span) bool {
	ev := &condEval{toks: tokenizeCond(expr), pp: p, depth: 0}
	v, ok := ev.or()
	if !ok || ev.pos != len(ev.toks) {
		diag.Errorf(p.reporter, diag.SynPreprocessor, sp, "invalid #if expression %q", expr)
		return false
	}
	return v != 0
}

func tokenizeCond(s string) []string {
	var toks []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case isIdentStart(c) || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		case i+1 < len(s) && isCondOp2(s[i:i+2]):
			toks = append(toks, s[i:i+2])
			i += 2
		default:
			toks = append(toks, s[i:i+1])
			i++
		}
	}
	return toks
}

func isCondOp2(op string) bool {
	switch op {
	case "&&", "||", "==", "!=", "<=", ">=":
		return true
	}
	return false
}

type condEval struct {
	toks  []string
	pos   int
	pp    *preprocessor
	depth int
}

func (e *condEval) peek() string {
	if e.pos < len(e.toks) {
		return e.toks[e.pos]
	}
	return ""
}

func (e *condEval) next() string {
	t := e.peek()
	e.pos++
	return t
}

func (e *condEval) or() (int64, bool) {
	l, ok := e.and()
	for ok && e.peek() == "||" {
		e.next()
		var r int64
		r, ok = e.and()
		l = boolInt(l != 0 || r != 0)
	}
	return l, ok
}

func (e *condEval) and() (int64, bool) {
	l, ok := e.cmp()
	for ok && e.peek() == "&&" {
		e.next()
		var r int64
		r, ok = e.cmp()
		l = boolInt(l != 0 && r != 0)
	}
	return l, ok
}

func (e *condEval) cmp() (int64, bool) {
	l, ok := e.unary()
	for ok {
		op := e.peek()
		switch op {
		case "==", "!=", "<", ">", "<=", ">=":
		default:
			return l, ok
		}
		e.next()
		var r int64
		r, ok = e.unary()
		switch op {
		case "==":
			l = boolInt(l == r)
		case "!=":
			l = boolInt(l != r)
		case "<":
			l = boolInt(l < r)
		case ">":
			l = boolInt(l > r)
		case "<=":
			l = boolInt(l <= r)
		case ">=":
			l = boolInt(l >= r)
		}
	}
	return l, ok
}

func (e *condEval) unary() (int64, bool) {
	switch t := e.next(); {
	case t == "!":
		v, ok := e.unary()
		return boolInt(v == 0), ok
	case t == "-":
		v, ok := e.unary()
		return -v, ok
	case t == "(":
		v, ok := e.or()
		if e.next() != ")" {
			return 0, false
		}
		return v, ok
	case t == "defined":
		paren := e.peek() == "("
		if paren {
			e.next()
		}
		name := e.next()
		if paren && e.next() != ")" {
			return 0, false
		}
		_, ok := e.pp.defines[name]
		return boolInt(ok), name != ""
	case t == "":
		return 0, false
	case t[0] >= '0' && t[0] <= '9':
		v, err := strconv.ParseInt(strings.TrimRight(t, "uUlL"), 0, 64)
		return v, err == nil
	case isIdentStart(t[0]):
		value, ok := e.pp.defines[t]
		if !ok || e.depth > 16 {
			return 0, true
		}
		inner := &condEval{toks: tokenizeCond(value), pp: e.pp, depth: e.depth + 1}
		v, ok := inner.or()
		if !ok || inner.pos != len(inner.toks) {
			return 0, true
		}
		return v, true
	}
	return 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
