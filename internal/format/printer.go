package format

import (
	"strings"

	"github.com/stride3d/stride-sub014/internal/ast"
)

type Options struct {
	IndentWidth int
	UseTabs     bool
	// Origins adds a `// from Class` comment to flattened declarations.
	Origins bool
}

func (o Options) withDefaults() Options {
	if o.IndentWidth == 0 {
		o.IndentWidth = 4
	}
	return o
}

type printer struct {
	tree *ast.Tree
	w    *Writer
	opt  Options
}

// Shader prints one parsed or instantiated class. The output is deterministic
// and is used both for display and as the structural identity of a record.
func Shader(sh *ast.Shader, opt Options) []byte {
	opt = opt.withDefaults()
	p := &printer{tree: sh.Tree, w: NewWriter(opt), opt: opt}
	p.shader(sh)
	return p.w.Bytes()
}

// Program prints a flattened program in emission order: constants, types,
// constant buffers, resources, methods.
func Program(prog *ast.Program, opt Options) []byte {
	opt = opt.withDefaults()
	p := &printer{tree: prog.Tree, w: NewWriter(opt), opt: opt}
	p.program(prog)
	return p.w.Bytes()
}

func (p *printer) shader(sh *ast.Shader) {
	w := p.w
	w.WriteString("shader ")
	w.WriteString(sh.Name)
	if len(sh.Generics) > len(sh.GenericArgs) {
		w.WriteByte('<')
		for i, g := range sh.Generics {
			if i > 0 {
				w.WriteString(", ")
			}
			w.WriteString(g.Type + " " + g.Name)
		}
		w.WriteByte('>')
	}
	if len(sh.Bases) > 0 {
		w.WriteString(" : ")
		for i, b := range sh.Bases {
			if i > 0 {
				w.WriteString(", ")
			}
			w.WriteString(b.Key())
		}
	}
	w.Newline()
	w.WriteString("{")
	w.Newline()
	w.IndentPush()

	group := ""
	for _, m := range sh.Members {
		g := ""
		if m.Kind == ast.MemberVariable {
			g = memberGroup(m.Var)
		}
		if g != group {
			if group != "" {
				p.closeGroup()
			}
			if g != "" {
				p.openGroup(g)
			}
			group = g
		}
		switch m.Kind {
		case ast.MemberVariable:
			p.variable(m.Var)
		case ast.MemberMethod:
			p.method(m.Method)
		case ast.MemberTypedef:
			p.typedef(m.Typedef)
		case ast.MemberStruct:
			p.structDecl(m.Struct)
		}
	}
	if group != "" {
		p.closeGroup()
	}

	w.IndentPop()
	w.WriteString("};")
	w.Newline()
}

func memberGroup(v *ast.Variable) string {
	switch {
	case v.CBuffer != "":
		return "cbuffer " + v.CBuffer
	case v.RGroup != "":
		return "rgroup " + v.RGroup
	}
	return ""
}

func (p *printer) openGroup(header string) {
	p.w.WriteString(header)
	p.w.Newline()
	p.w.WriteString("{")
	p.w.Newline()
	p.w.IndentPush()
}

func (p *printer) closeGroup() {
	p.w.IndentPop()
	p.w.WriteString("};")
	p.w.Newline()
}

func (p *printer) program(prog *ast.Program) {
	w := p.w
	w.WriteString("// " + prog.Name)
	w.Newline()

	for _, id := range prog.Constants {
		p.variable(prog.Var(id))
	}
	if len(prog.Typedefs) > 0 || len(prog.Structs) > 0 {
		w.BlankLine()
	}
	for i := range prog.Typedefs {
		p.typedef(&prog.Typedefs[i])
	}
	for i := range prog.Structs {
		p.structDecl(&prog.Structs[i])
	}
	for _, cb := range prog.CBuffers {
		w.BlankLine()
		p.openGroup("cbuffer " + cb.Name)
		for _, id := range cb.Members {
			p.variable(prog.Var(id))
		}
		p.closeGroup()
	}
	if len(prog.Resources) > 0 {
		w.BlankLine()
	}
	for _, id := range prog.Resources {
		p.variable(prog.Var(id))
	}
	for _, id := range prog.Funcs {
		w.BlankLine()
		p.method(prog.Method(id))
	}
}

func (p *printer) attrs(attrs []ast.Attr) {
	for _, a := range attrs {
		p.w.WriteByte('[')
		p.w.WriteString(a.Name)
		if len(a.Args) > 0 {
			p.w.WriteByte('(')
			p.w.WriteString(strings.Join(a.Args, ", "))
			p.w.WriteByte(')')
		}
		p.w.WriteString("] ")
	}
}

func (p *printer) qual(q ast.Qualifier) {
	if q == 0 {
		return
	}
	p.w.WriteString(q.String())
	p.w.WriteByte(' ')
}

func (p *printer) dims(t ast.TypeRef) {
	for _, d := range t.Dims {
		p.w.WriteByte('[')
		p.w.WriteString(d.String())
		p.w.WriteByte(']')
	}
}

func (p *printer) origin(from string) {
	if p.opt.Origins && from != "" {
		p.w.WriteString(" // " + from)
	}
}

func (p *printer) variable(v *ast.Variable) {
	w := p.w
	p.attrs(v.Attrs)
	p.qual(v.Qual)
	w.WriteString(v.Type.Base())
	w.WriteByte(' ')
	w.WriteString(v.Name)
	p.dims(v.Type)
	if v.Semantic != "" {
		w.WriteString(" : " + v.Semantic)
	}
	switch {
	case v.StageInit:
		w.WriteString(" = stage")
	case v.Init.IsValid():
		w.WriteString(" = ")
		p.expr(v.Init, 0)
	}
	w.WriteByte(';')
	p.origin(v.Origin)
	w.Newline()
}

func (p *printer) method(m *ast.Method) {
	w := p.w
	p.attrs(m.Attrs)
	p.qual(m.Qual)
	w.WriteString(m.Return.String())
	w.WriteByte(' ')
	w.WriteString(m.Name)
	w.WriteByte('(')
	for i, prm := range m.Params {
		if i > 0 {
			w.WriteString(", ")
		}
		p.qual(prm.Qual)
		w.WriteString(prm.Type.Base())
		w.WriteByte(' ')
		w.WriteString(prm.Name)
		p.dims(prm.Type)
		if prm.Semantic != "" {
			w.WriteString(" : " + prm.Semantic)
		}
	}
	w.WriteByte(')')
	if m.Semantic != "" {
		w.WriteString(" : " + m.Semantic)
	}
	if !m.Body.IsValid() {
		w.WriteByte(';')
		p.origin(m.Origin)
		w.Newline()
		return
	}
	p.origin(m.Origin)
	w.Newline()
	p.stmt(m.Body)
}

func (p *printer) typedef(td *ast.Typedef) {
	p.w.WriteString("typedef " + td.Type.String() + " " + td.Name + ";")
	p.w.Newline()
}

func (p *printer) structDecl(st *ast.Struct) {
	w := p.w
	w.WriteString("struct " + st.Name)
	w.Newline()
	w.WriteString("{")
	w.Newline()
	w.IndentPush()
	for _, f := range st.Fields {
		p.qual(f.Qual)
		w.WriteString(f.Type.Base() + " " + f.Name)
		p.dims(f.Type)
		if f.Semantic != "" {
			w.WriteString(" : " + f.Semantic)
		}
		w.WriteByte(';')
		w.Newline()
	}
	w.IndentPop()
	w.WriteString("};")
	w.Newline()
}
