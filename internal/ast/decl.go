package ast

import (
	"slices"
	"strings"

	"github.com/stride3d/stride-sub014/internal/source"
)

// Variable is a shader field (or a flattened program field).
type Variable struct {
	Name      string
	Type      TypeRef
	Qual      Qualifier
	Semantic  string
	Init      ExprID
	StageInit bool   // `= stage`
	CBuffer   string // "Name" or "Name.Group"
	RGroup    string
	Attrs     []Attr
	Span      source.Span
	// Origin is the mixin that declared the field; set on flattened programs.
	Origin string
}

func (v *Variable) IsStream() bool { return v.Qual.Has(QualStream) || v.Qual.Has(QualPatchStream) }

// IsPlugin reports whether the field is a composition point.
func (v *Variable) IsPlugin() bool { return v.Qual.Has(QualCompose) || v.Qual.Has(QualExtern) }

func (v Variable) Clone() Variable {
	v.Type = v.Type.Clone()
	v.Attrs = slices.Clone(v.Attrs)
	return v
}

type Param struct {
	Name     string
	Type     TypeRef
	Qual     Qualifier
	Semantic string
	Span     source.Span
}

type Method struct {
	Name     string
	Return   TypeRef
	Params   []Param
	Qual     Qualifier
	Semantic string
	Body     StmtID
	Attrs    []Attr
	Span     source.Span
	Origin   string
}

// IsDefinition reports whether the method has a body.
func (m *Method) IsDefinition() bool { return m.Body.IsValid() }

// SameSignature compares name and parameter types; the return type does not take part.
func (m *Method) SameSignature(o *Method) bool {
	if m.Name != o.Name || len(m.Params) != len(o.Params) {
		return false
	}
	for i := range m.Params {
		if !m.Params[i].Type.Equal(o.Params[i].Type) {
			return false
		}
	}
	return true
}

func (m *Method) Signature() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Type.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (m Method) Clone() Method {
	m.Return = m.Return.Clone()
	m.Attrs = slices.Clone(m.Attrs)
	if m.Params != nil {
		params := make([]Param, len(m.Params))
		for i, p := range m.Params {
			p.Type = p.Type.Clone()
			params[i] = p
		}
		m.Params = params
	}
	return m
}

type Typedef struct {
	Name   string
	Type   TypeRef
	Span   source.Span
	Origin string
}

type Field struct {
	Name     string
	Type     TypeRef
	Qual     Qualifier
	Semantic string
}

type Struct struct {
	Name   string
	Fields []Field
	Span   source.Span
	Origin string
}

func (s Struct) Clone() Struct {
	if s.Fields != nil {
		fields := make([]Field, len(s.Fields))
		for i, f := range s.Fields {
			f.Type = f.Type.Clone()
			fields[i] = f
		}
		s.Fields = fields
	}
	return s
}

type MemberKind uint8

const (
	MemberVariable MemberKind = iota
	MemberMethod
	MemberTypedef
	MemberStruct
)

// Member is one declaration of a shader class, in source order.
type Member struct {
	Kind    MemberKind
	Var     *Variable
	Method  *Method
	Typedef *Typedef
	Struct  *Struct
}

func (m Member) Name() string {
	switch m.Kind {
	case MemberVariable:
		return m.Var.Name
	case MemberMethod:
		return m.Method.Name
	case MemberTypedef:
		return m.Typedef.Name
	case MemberStruct:
		return m.Struct.Name
	}
	return ""
}

func (m Member) clone() Member {
	switch m.Kind {
	case MemberVariable:
		v := m.Var.Clone()
		m.Var = &v
	case MemberMethod:
		mt := m.Method.Clone()
		m.Method = &mt
	case MemberTypedef:
		td := *m.Typedef
		td.Type = td.Type.Clone()
		m.Typedef = &td
	case MemberStruct:
		st := m.Struct.Clone()
		m.Struct = &st
	}
	return m
}
