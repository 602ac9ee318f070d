package ast

import (
	"slices"
	"strings"

	"github.com/stride3d/stride-sub014/internal/source"
)

// Tree owns every expression and statement of one shader (or of one flattened program).
type Tree struct {
	Exprs *Exprs
	Stmts *Stmts
}

func NewTree() *Tree {
	return &Tree{
		Exprs: NewExprs(0),
		Stmts: NewStmts(0),
	}
}

func (t *Tree) Expr(id ExprID) *Expr { return t.Exprs.Get(id) }

func (t *Tree) Stmt(id StmtID) *Stmt { return t.Stmts.Get(id) }

// Clone returns an independent copy; node ids stay the same.
func (t *Tree) Clone() *Tree {
	return &Tree{
		Exprs: t.Exprs.clone(),
		Stmts: t.Stmts.clone(),
	}
}

// GenericParam is `Type Name` in a class header: `shader C<float Scale, Texture2D Tex>`.
type GenericParam struct {
	Type string
	Name string
}

type BaseRef struct {
	Name string
	Args []string
	Span source.Span
}

// Key is the instantiated name of the referenced class.
func (b BaseRef) Key() string { return InstanceName(b.Name, b.Args) }

// InstanceName builds the name of a class instantiated with generic arguments.
func InstanceName(class string, args []string) string {
	if len(args) == 0 {
		return class
	}
	return class + "<" + strings.Join(args, ",") + ">"
}

// Shader is one parsed (and possibly instantiated) class.
type Shader struct {
	Name        string // instantiated name, `Class<a,b>`
	ClassName   string
	Generics    []GenericParam
	GenericArgs []string
	Bases       []BaseRef
	Members     []Member
	Tree        *Tree
	File        source.FileID
	Span        source.Span
}

// Instantiated reports whether every generic parameter received an argument.
func (s *Shader) Instantiated() bool {
	return len(s.Generics) == len(s.GenericArgs)
}

func (s *Shader) Variable(index int) *Variable {
	if index < 0 || index >= len(s.Members) || s.Members[index].Kind != MemberVariable {
		return nil
	}
	return s.Members[index].Var
}

func (s *Shader) Method(index int) *Method {
	if index < 0 || index >= len(s.Members) || s.Members[index].Kind != MemberMethod {
		return nil
	}
	return s.Members[index].Method
}

// Clone deep-copies the shader including its tree.
func (s *Shader) Clone() *Shader {
	out := *s
	out.Generics = slices.Clone(s.Generics)
	out.GenericArgs = slices.Clone(s.GenericArgs)
	out.Bases = make([]BaseRef, len(s.Bases))
	for i, b := range s.Bases {
		b.Args = slices.Clone(b.Args)
		out.Bases[i] = b
	}
	out.Members = make([]Member, len(s.Members))
	for i, m := range s.Members {
		out.Members[i] = m.clone()
	}
	if s.Tree != nil {
		out.Tree = s.Tree.Clone()
	}
	return &out
}
