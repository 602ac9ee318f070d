package streams

import (
	"slices"
	"strconv"
	"strings"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/source"
)

const (
	inputParam  = "__input__"
	outputLocal = "__output__"
)

const interpolation = ast.QualNoInterpolation | ast.QualLinear | ast.QualCentroid | ast.QualNoPerspective | ast.QualSample

// field turns a stream field into a record field. Semantics are kept for
// wire records only; a wire field without one gets `<NAME>_SEM`.
func (s *structurer) field(v ast.VarID, wire, autoSem bool) ast.Field {
	sv := s.prog.Var(v)
	f := ast.Field{Name: sv.Name, Type: sv.Type.Clone(), Qual: sv.Qual & interpolation}
	if wire {
		f.Semantic = sv.Semantic
		if f.Semantic == "" && autoSem {
			f.Semantic = strings.ToUpper(sv.Name) + "_SEM"
		}
	}
	return f
}

// inputRecord lays the previous stage's output out first so both sides of
// the handoff agree, then appends this stage's own inputs.
func (s *structurer) inputRecord(name string, prev *ast.Struct, in []ast.VarID) ast.Struct {
	st := ast.Struct{Name: name}
	names := make(map[string]bool)
	sems := make(map[string]bool)
	if prev != nil {
		for _, f := range prev.Fields {
			f.Type = f.Type.Clone()
			st.Fields = append(st.Fields, f)
			names[f.Name] = true
			if f.Semantic != "" {
				sems[f.Semantic] = true
			}
		}
	}
	for _, v := range in {
		sv := s.prog.Var(v)
		if names[sv.Name] || sv.Semantic != "" && sems[sv.Semantic] {
			continue
		}
		st.Fields = append(st.Fields, s.field(v, true, true))
		names[sv.Name] = true
		if sv.Semantic != "" {
			sems[sv.Semantic] = true
		}
	}
	return st
}

func (s *structurer) record(name string, vars []ast.VarID, wire, autoSem bool) ast.Struct {
	st := ast.Struct{Name: name}
	for _, v := range vars {
		st.Fields = append(st.Fields, s.field(v, wire, autoSem))
	}
	return st
}

// generate synthesizes the records of u, rewrites its entry point and
// threads the working record below it. It returns the output record, if any.
func (s *structurer) generate(u *StageUsage, prevOut *ast.Struct, autoSem bool) (Records, *ast.Struct) {
	prefix := u.Stage.Prefix()
	var all []ast.VarID
	for _, list := range [][]ast.VarID{u.In, u.Inter, u.Out} {
		for _, v := range list {
			all = addVar(all, v)
		}
	}
	input := s.inputRecord(prefix+"_INPUT", prevOut, u.In)
	output := s.record(prefix+"_OUTPUT", u.Out, true, autoSem)
	work := s.record(prefix+"_STREAMS", all, false, false)

	rec := Records{Streams: work.Name}
	if len(input.Fields) > 0 {
		rec.Input = input.Name
		s.addStruct(input)
	}
	var out *ast.Struct
	if len(output.Fields) > 0 {
		rec.Output = output.Name
		out = s.addStruct(output)
	}
	s.addStruct(work)

	s.rewriteEntry(u.Entry, rec, &input, &work, out)
	s.propagate(u.Stage, u.Entry, work.Name)
	return rec, out
}

func (s *structurer) addStruct(st ast.Struct) *ast.Struct {
	s.prog.Structs = append(s.prog.Structs, st)
	return &st
}

// rewriteEntry fills the working record from the input at the top of the
// entry point and returns the output record built from it at the end.
func (s *structurer) rewriteEntry(entry ast.MethodID, rec Records, input, work, output *ast.Struct) {
	m := s.prog.Method(entry)
	tree := s.prog.Tree
	exprs, stmts := tree.Exprs, tree.Stmts
	sp := m.Span

	if body := tree.Stmt(m.Body); body == nil || body.Kind != ast.StmtBlock {
		m.Body = stmts.NewBlock(sp, []ast.StmtID{m.Body})
	}

	head := []ast.StmtID{s.structInit(sp, rec.Streams, StreamsName)}
	if rec.Input != "" {
		m.Params = append(m.Params, ast.Param{Name: inputParam, Type: ast.Named(rec.Input), Span: sp})
		for _, f := range input.Fields {
			if !slices.ContainsFunc(work.Fields, func(w ast.Field) bool { return w.Name == f.Name }) {
				continue
			}
			head = append(head, s.copyField(sp, StreamsName, inputParam, f))
		}
	}

	var tail []ast.StmtID
	if output != nil {
		tail = append(tail, s.structInit(sp, rec.Output, outputLocal))
		for _, f := range output.Fields {
			assign := exprs.NewAssign(sp, "=",
				exprs.NewMember(sp, exprs.NewIdent(sp, outputLocal), f.Name),
				exprs.NewMember(sp, exprs.NewIdent(sp, StreamsName), f.Name))
			tail = append(tail, stmts.NewExpr(sp, assign))
		}
		tail = append(tail, stmts.NewReturn(sp, exprs.NewIdent(sp, outputLocal)))
		m.Return = ast.Named(rec.Output)
	}

	// allocations above may have moved the arena
	body := tree.Stmt(m.Body)
	list := make([]ast.StmtID, 0, len(head)+len(body.Stmts)+len(tail))
	list = append(list, head...)
	list = append(list, body.Stmts...)
	list = append(list, tail...)
	body.Stmts = list
}

// structInit declares `T name = (T)0;`.
func (s *structurer) structInit(sp source.Span, typ, name string) ast.StmtID {
	exprs := s.prog.Tree.Exprs
	zero := exprs.NewCast(sp, typ, exprs.NewLiteral(sp, ast.LitInt, "0"))
	return s.prog.Tree.Stmts.NewDecl(sp, 0, ast.Named(typ), []ast.LocalVar{{Name: name, Init: zero, Span: sp}})
}

// copyField assigns dst.F = src.F; fixed-size arrays are copied element by element.
func (s *structurer) copyField(sp source.Span, dst, src string, f ast.Field) ast.StmtID {
	exprs, stmts := s.prog.Tree.Exprs, s.prog.Tree.Stmts
	to := exprs.NewMember(sp, exprs.NewIdent(sp, dst), f.Name)
	from := exprs.NewMember(sp, exprs.NewIdent(sp, src), f.Name)
	if len(f.Type.Dims) != 1 || f.Type.Dims[0].Size <= 0 {
		return stmts.NewExpr(sp, exprs.NewAssign(sp, "=", to, from))
	}
	iter := f.Name + "_Iter"
	init := stmts.NewDecl(sp, 0, ast.Named("int"), []ast.LocalVar{{Name: iter, Init: exprs.NewLiteral(sp, ast.LitInt, "0"), Span: sp}})
	cond := exprs.NewBinary(sp, "<", exprs.NewIdent(sp, iter), exprs.NewLiteral(sp, ast.LitInt, strconv.Itoa(f.Type.Dims[0].Size)))
	post := exprs.NewUnary(sp, "++", exprs.NewIdent(sp, iter), false)
	elem := exprs.NewAssign(sp, "=",
		exprs.NewIndex(sp, to, exprs.NewIdent(sp, iter)),
		exprs.NewIndex(sp, from, exprs.NewIdent(sp, iter)))
	return stmts.New(ast.Stmt{Kind: ast.StmtFor, Span: sp, Init: init, X: cond, Post: post, Body: stmts.NewExpr(sp, elem)})
}
