package mixer

import (
	"slices"
	"strings"

	"github.com/stride3d/stride-sub014/internal/ast"
)

// GlobalsBuffer holds the fields declared outside any constant buffer.
const GlobalsBuffer = "Globals"

// DefaultGroup names the padding of fields without a logical group.
const DefaultGroup = "Default"

var resourcePrefixes = []string{"Texture", "RWTexture", "Sampler", "Buffer", "RWBuffer",
	"StructuredBuffer", "RWStructuredBuffer", "AppendStructuredBuffer", "ConsumeStructuredBuffer",
	"ByteAddressBuffer", "RWByteAddressBuffer"}

// IsResource reports whether t lives outside constant buffers.
func IsResource(t ast.TypeRef) bool {
	for _, p := range resourcePrefixes {
		if strings.HasPrefix(t.Name, p) {
			return true
		}
	}
	return false
}

// SplitCBuffer splits `Name.Group` into the buffer and its logical group.
func SplitCBuffer(cb string) (name, group string) {
	name, group, _ = strings.Cut(cb, ".")
	return name, group
}

// layout sorts the surviving fields into constants, buffers, resources and streams.
func (l *linker) layout() {
	prog := l.prog
	var buffered []ast.VarID
	for _, id := range l.order {
		v := prog.Var(id)
		switch {
		case v.IsStream():
			prog.Streams = append(prog.Streams, id)
		case v.Qual.Has(ast.QualConst):
			prog.Constants = append(prog.Constants, id)
		case IsResource(v.Type):
			prog.Resources = append(prog.Resources, id)
		default:
			buffered = append(buffered, id)
		}
	}

	slices.SortStableFunc(buffered, func(a, b ast.VarID) int {
		return strings.Compare(prog.Var(a).CBuffer, prog.Var(b).CBuffer)
	})
	index := make(map[string]int)
	var globals []ast.VarID
	for _, id := range buffered {
		name, _ := SplitCBuffer(prog.Var(id).CBuffer)
		if name == "" {
			globals = append(globals, id)
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(prog.CBuffers)
			index[name] = i
			prog.CBuffers = append(prog.CBuffers, ast.CBuffer{Name: name})
		}
		prog.CBuffers[i].Members = append(prog.CBuffers[i].Members, id)
	}
	if len(globals) > 0 {
		prog.CBuffers = append(prog.CBuffers, ast.CBuffer{Name: GlobalsBuffer, Members: globals})
	}
}

// Prune removes declared fields no method body uses, keeping resources and
// fields of a logical group, then pads every logical group of every buffer
// with a float4 so each group ends on a fixed boundary.
func Prune(prog *ast.Program) {
	used := Usages(prog)
	keep := func(id ast.VarID) bool {
		v := prog.Var(id)
		_, group := SplitCBuffer(v.CBuffer)
		return used[id] > 0 || group != "" || IsResource(v.Type)
	}
	prog.Constants = slices.DeleteFunc(prog.Constants, func(id ast.VarID) bool { return !keep(id) })
	buffers := prog.CBuffers[:0]
	for _, cb := range prog.CBuffers {
		cb.Members = slices.DeleteFunc(cb.Members, func(id ast.VarID) bool { return !keep(id) })
		if len(cb.Members) > 0 {
			buffers = append(buffers, pad(prog, cb))
		}
	}
	prog.CBuffers = buffers
	for _, id := range prog.DeclaredVars() {
		prog.Var(id).Qual &^= sdslOnly
	}
}

// pad inserts a padding field wherever the logical group changes and after
// the last group.
func pad(prog *ast.Program, cb ast.CBuffer) ast.CBuffer {
	out := ast.CBuffer{Name: cb.Name}
	current := ""
	for _, id := range cb.Members {
		_, group := SplitCBuffer(prog.Var(id).CBuffer)
		if group != current {
			out.Members = append(out.Members, padding(prog, cb.Name, current))
			current = group
		}
		out.Members = append(out.Members, id)
	}
	if current != "" {
		out.Members = append(out.Members, padding(prog, cb.Name, current))
	}
	return out
}

func padding(prog *ast.Program, buffer, group string) ast.VarID {
	if group == "" {
		group = DefaultGroup
	}
	return prog.AddVar(ast.Variable{
		Name:    "_padding_" + buffer + "_" + group,
		Type:    ast.Named("float4"),
		CBuffer: buffer + "." + group,
	})
}

// Usages counts the references to each field from method bodies and from
// the initializers of declared fields.
func Usages(prog *ast.Program) map[ast.VarID]int {
	used := make(map[ast.VarID]int)
	count := func(id ast.ExprID, _ *ast.Expr) bool {
		if v, ok := prog.VarRefs[id]; ok {
			used[v]++
		}
		return true
	}
	for _, id := range prog.Funcs {
		prog.Tree.InspectStmt(prog.Method(id).Body, nil, count)
	}
	for _, id := range prog.DeclaredVars() {
		prog.Tree.InspectExpr(prog.Var(id).Init, count)
	}
	return used
}
