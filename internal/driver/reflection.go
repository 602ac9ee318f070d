package driver

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/mixer"
	"github.com/stride3d/stride-sub014/internal/streams"
)

// Reflection describes the interface of a compiled program to its host.
type Reflection struct {
	EntryPoints     []EntryPoint             `json:"entry_points"`
	InputAttributes []streams.InputAttribute `json:"input_attributes"`
	ConstantBuffers []ConstantBuffer         `json:"constant_buffers"`
	Resources       []Resource               `json:"resources"`
}

type EntryPoint struct {
	Stage string `json:"stage"`
	Name  string `json:"name"`
	// Input and Output name the stage records; empty when there is none.
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

type ConstantBuffer struct {
	Name    string         `json:"name"`
	Members []BufferMember `json:"members"`
}

type BufferMember struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Group string `json:"group,omitempty"`
}

type Resource struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func reflect(prog *ast.Program, st *streams.Result) Reflection {
	var out Reflection
	for _, s := range ast.Stages() {
		id, ok := prog.Entries[s]
		if !ok {
			continue
		}
		ep := EntryPoint{Stage: s.String(), Name: prog.Method(id).Name}
		if rec, ok := st.Records[s]; ok {
			ep.Input, ep.Output = rec.Input, rec.Output
		}
		out.EntryPoints = append(out.EntryPoints, ep)
	}
	out.InputAttributes = st.InputAttributes
	for _, cb := range prog.CBuffers {
		buf := ConstantBuffer{Name: cb.Name}
		for _, id := range cb.Members {
			v := prog.Var(id)
			_, group := mixer.SplitCBuffer(v.CBuffer)
			buf.Members = append(buf.Members, BufferMember{Name: v.Name, Type: v.Type.String(), Group: group})
		}
		out.ConstantBuffers = append(out.ConstantBuffers, buf)
	}
	for _, id := range prog.Resources {
		v := prog.Var(id)
		out.Resources = append(out.Resources, Resource{Name: v.Name, Type: v.Type.String()})
	}
	return out
}
