package ast

import (
	"slices"
	"strconv"
	"strings"

	"github.com/stride3d/stride-sub014/internal/source"
)

// Dim is one array dimension. Size < 0 means the size is not known yet
// (an unsized plug-in array or a named constant that is resolved later).
type Dim struct {
	Size int
	Name string
}

func (d Dim) String() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Size >= 0:
		return strconv.Itoa(d.Size)
	default:
		return ""
	}
}

// TypeRef is a type as written: `float4`, `Texture2D<float4>`, `ComputeColor layers[]`.
type TypeRef struct {
	Name string
	Args []string
	Dims []Dim
	Span source.Span
}

func Named(name string) TypeRef { return TypeRef{Name: name} }

func (t TypeRef) IsZero() bool { return t.Name == "" }

func (t TypeRef) IsArray() bool { return len(t.Dims) > 0 }

// Elem drops the array dimensions.
func (t TypeRef) Elem() TypeRef {
	t.Dims = nil
	return t
}

func (t TypeRef) Clone() TypeRef {
	t.Args = slices.Clone(t.Args)
	t.Dims = slices.Clone(t.Dims)
	return t
}

// Base is the type name with generic arguments, without dimensions.
func (t TypeRef) Base() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	return t.Name + "<" + strings.Join(t.Args, ",") + ">"
}

func (t TypeRef) String() string {
	var sb strings.Builder
	sb.WriteString(t.Base())
	for _, d := range t.Dims {
		sb.WriteByte('[')
		sb.WriteString(d.String())
		sb.WriteByte(']')
	}
	return sb.String()
}

// Equal compares types structurally, ignoring spans.
func (t TypeRef) Equal(o TypeRef) bool {
	return t.Name == o.Name && slices.Equal(t.Args, o.Args) && slices.Equal(t.Dims, o.Dims)
}

// Attr is a bracketed attribute: `[Color]`, `[maxvertexcount(3)]`, `[Link("Material.Diffuse")]`.
type Attr struct {
	Name string
	Args []string
}

func HasAttr(attrs []Attr, name string) bool {
	for _, a := range attrs {
		if strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

type Qualifier uint32

const (
	QualStage Qualifier = 1 << iota
	QualStream
	QualPatchStream
	QualStatic
	QualConst
	QualCompose
	QualClone
	QualOverride
	QualAbstract
	QualExtern
	QualIn
	QualOut
	QualInOut
	QualUniform
	QualNoInterpolation
	QualLinear
	QualCentroid
	QualNoPerspective
	QualSample
	QualGroupShared
	QualInline
	QualPrecise
	QualInternal
	QualPoint
	QualLine
	QualTriangle
	QualLineAdj
	QualTriangleAdj
)

var qualifierNames = []struct {
	q    Qualifier
	name string
}{
	{QualInternal, "internal"},
	{QualStatic, "static"},
	{QualStage, "stage"},
	{QualStream, "stream"},
	{QualPatchStream, "patchstream"},
	{QualCompose, "compose"},
	{QualClone, "clone"},
	{QualAbstract, "abstract"},
	{QualOverride, "override"},
	{QualExtern, "extern"},
	{QualConst, "const"},
	{QualUniform, "uniform"},
	{QualGroupShared, "groupshared"},
	{QualInline, "inline"},
	{QualPrecise, "precise"},
	{QualNoInterpolation, "nointerpolation"},
	{QualLinear, "linear"},
	{QualCentroid, "centroid"},
	{QualNoPerspective, "noperspective"},
	{QualSample, "sample"},
	{QualIn, "in"},
	{QualOut, "out"},
	{QualInOut, "inout"},
	{QualPoint, "point"},
	{QualLine, "line"},
	{QualTriangle, "triangle"},
	{QualLineAdj, "lineadj"},
	{QualTriangleAdj, "triangleadj"},
}

// ParseQualifier maps a keyword to its qualifier bit.
func ParseQualifier(word string) (Qualifier, bool) {
	for _, e := range qualifierNames {
		if e.name == word {
			return e.q, true
		}
	}
	return 0, false
}

func (q Qualifier) Has(f Qualifier) bool { return q&f != 0 }

func (q Qualifier) String() string {
	if q == 0 {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, e := range qualifierNames {
		if q&e.q != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, " ")
}

func parseIntLiteral(text string) (int, bool) {
	text = strings.TrimRight(text, "uUlL")
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
