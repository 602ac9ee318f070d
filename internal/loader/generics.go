package loader

import (
	"strconv"
	"strings"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
)

// stringLike generic parameter types default to an empty argument.
var stringLike = map[string]bool{
	"Semantic":   true,
	"LinkType":   true,
	"MemberName": true,
	"string":     true,
}

// DefaultArgs synthesizes arguments for an uninstantiated generic class:
// bool → false, string-like → empty, anything else → 0.
func DefaultArgs(generics []ast.GenericParam) []string {
	out := make([]string, len(generics))
	for i, g := range generics {
		switch {
		case g.Type == "bool":
			out[i] = "false"
		case stringLike[g.Type]:
			out[i] = ""
		default:
			out[i] = "0"
		}
	}
	return out
}

// checkGenerics validates parameter names and argument count.
func checkGenerics(sh *ast.Shader, args []string, r diag.Reporter) bool {
	ok := true
	seen := make(map[string]bool, len(sh.Generics))
	for _, g := range sh.Generics {
		if seen[g.Name] {
			diag.Errorf(r, diag.GraGenericDuplicate, sh.Span, "%s: generic parameter %q declared twice", sh.ClassName, g.Name)
			ok = false
		}
		seen[g.Name] = true
	}
	if len(args) != len(sh.Generics) {
		diag.Errorf(r, diag.GraGenericCount, sh.Span, "%s expects %d generic argument(s), got %d", sh.ClassName, len(sh.Generics), len(args))
		ok = false
	}
	return ok
}

// instantiate substitutes generic parameters in place and renames the class.
func instantiate(sh *ast.Shader, args []string) {
	if len(sh.Generics) == 0 {
		return
	}
	sub := make(map[string]string, len(sh.Generics))
	for i, g := range sh.Generics {
		sub[g.Name] = args[i]
	}
	s := substituter{sub: sub}

	sh.GenericArgs = append([]string(nil), args...)
	sh.Name = ast.InstanceName(sh.ClassName, args)
	for i := range sh.Bases {
		sh.Bases[i].Name = s.word(sh.Bases[i].Name)
		for j, a := range sh.Bases[i].Args {
			sh.Bases[i].Args[j] = s.word(a)
		}
	}
	for _, m := range sh.Members {
		switch m.Kind {
		case ast.MemberVariable:
			v := m.Var
			s.typeRef(&v.Type)
			v.Semantic = s.word(v.Semantic)
			s.attrs(v.Attrs)
		case ast.MemberMethod:
			mt := m.Method
			s.typeRef(&mt.Return)
			mt.Semantic = s.word(mt.Semantic)
			for j := range mt.Params {
				s.typeRef(&mt.Params[j].Type)
				mt.Params[j].Semantic = s.word(mt.Params[j].Semantic)
			}
			s.attrs(mt.Attrs)
		case ast.MemberTypedef:
			s.typeRef(&m.Typedef.Type)
		case ast.MemberStruct:
			for j := range m.Struct.Fields {
				s.typeRef(&m.Struct.Fields[j].Type)
				m.Struct.Fields[j].Semantic = s.word(m.Struct.Fields[j].Semantic)
			}
		}
	}

	tree := sh.Tree
	for i := range tree.Exprs.Arena.Len() {
		e := tree.Exprs.Get(ast.ExprID(i + 1))
		switch e.Kind {
		case ast.ExprIdent:
			arg, ok := sub[e.Name]
			if !ok {
				continue
			}
			if lit, kind := literalKind(arg); lit {
				e.Kind, e.Lit, e.Text, e.Name = ast.ExprLiteral, kind, arg, ""
			} else {
				e.Name = arg
			}
		case ast.ExprMember:
			e.Name = s.word(e.Name)
		}
	}
	for i := range tree.Stmts.Arena.Len() {
		st := tree.Stmts.Get(ast.StmtID(i + 1))
		if st.Kind == ast.StmtDecl || st.Kind == ast.StmtForEach {
			s.typeRef(&st.Type)
			for j := range st.Vars {
				s.dims(st.Vars[j].Dims)
			}
		}
	}
}

type substituter struct {
	sub map[string]string
}

func (s substituter) word(w string) string {
	if v, ok := s.sub[w]; ok {
		return v
	}
	return w
}

func (s substituter) typeRef(t *ast.TypeRef) {
	t.Name = s.word(t.Name)
	for i, a := range t.Args {
		t.Args[i] = s.word(a)
	}
	s.dims(t.Dims)
}

func (s substituter) dims(dims []ast.Dim) {
	for i, d := range dims {
		if d.Name == "" {
			continue
		}
		v, ok := s.sub[d.Name]
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			dims[i] = ast.Dim{Size: n}
		} else {
			dims[i].Name = v
		}
	}
}

func (s substituter) attrs(attrs []ast.Attr) {
	for i := range attrs {
		for j, a := range attrs[i].Args {
			attrs[i].Args[j] = s.word(a)
		}
	}
}

// literalKind reports whether a generic argument is a literal value.
func literalKind(arg string) (bool, ast.LitKind) {
	switch arg {
	case "true", "false":
		return true, ast.LitBool
	}
	if _, err := strconv.ParseInt(strings.TrimRight(arg, "uUlL"), 0, 64); err == nil {
		return true, ast.LitInt
	}
	if _, err := strconv.ParseFloat(strings.TrimRight(arg, "fFhH"), 64); err == nil {
		return true, ast.LitFloat
	}
	return false, 0
}
