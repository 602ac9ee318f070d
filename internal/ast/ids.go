package ast

type (
	// узлы тела методов
	ExprID uint32
	StmtID uint32
	// объявления плоской программы
	VarID    uint32
	MethodID uint32
)

const (
	NoExprID   ExprID   = 0
	NoStmtID   StmtID   = 0
	NoVarID    VarID    = 0
	NoMethodID MethodID = 0
)

func (id ExprID) IsValid() bool   { return id != NoExprID }
func (id StmtID) IsValid() bool   { return id != NoStmtID }
func (id VarID) IsValid() bool    { return id != NoVarID }
func (id MethodID) IsValid() bool { return id != NoMethodID }
