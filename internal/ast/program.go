package ast

// CBuffer is a constant buffer of a flattened program; Members are in layout order.
type CBuffer struct {
	Name    string
	Members []VarID
}

// Program is the flattened result of mixing: one tree, one namespace.
type Program struct {
	Name    string
	Tree    *Tree
	Vars    *Arena[Variable]
	Methods *Arena[Method]

	// side tables keyed by node id
	VarRefs map[ExprID]VarID
	Calls   map[ExprID]MethodID

	Typedefs  []Typedef
	Structs   []Struct
	Constants []VarID // const fields, emitted before buffers
	CBuffers  []CBuffer
	Resources []VarID // textures, samplers, buffers
	// Streams are the stream fields; they are never declared, the stage
	// records synthesized from them are.
	Streams []VarID
	Funcs   []MethodID
	Entries map[Stage]MethodID
}

func NewProgram(name string) *Program {
	return &Program{
		Name:    name,
		Tree:    NewTree(),
		Vars:    NewArena[Variable](64),
		Methods: NewArena[Method](64),
		VarRefs: make(map[ExprID]VarID),
		Calls:   make(map[ExprID]MethodID),
		Entries: make(map[Stage]MethodID),
	}
}

func (p *Program) AddVar(v Variable) VarID { return VarID(p.Vars.Allocate(v)) }

func (p *Program) Var(id VarID) *Variable { return p.Vars.Get(uint32(id)) }

func (p *Program) AddMethod(m Method) MethodID { return MethodID(p.Methods.Allocate(m)) }

func (p *Program) Method(id MethodID) *Method { return p.Methods.Get(uint32(id)) }

// IsEntry reports whether id is the entry point of some stage.
func (p *Program) IsEntry(id MethodID) (Stage, bool) {
	for s, m := range p.Entries {
		if m == id {
			return s, true
		}
	}
	return 0, false
}

// DeclaredVars lists every field the program still declares, in emission order.
func (p *Program) DeclaredVars() []VarID {
	out := make([]VarID, 0, len(p.Constants)+len(p.Resources))
	out = append(out, p.Constants...)
	for _, cb := range p.CBuffers {
		out = append(out, cb.Members...)
	}
	out = append(out, p.Resources...)
	return out
}
