package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var sdslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*[\s\S]*?\*/`},
	{Name: "Float", Pattern: `(\d+\.\d*|\.\d+)([eE][-+]?\d+)?[fFhHlL]?|\d+[eE][-+]?\d+[fFhH]?|\d+[fF]`},
	{Name: "Int", Pattern: `0[xX][0-9a-fA-F]+[uUlL]?|\d+[uUlL]?`},
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Operator", Pattern: `<<=|>>=|\+\+|--|\+=|-=|\*=|/=|%=|&=|\|=|\^=|&&|\|\||==|!=|<=|>=|<<|>>|[-+*/%=<>!~&|^?:;,.(){}\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var sdslParser = participle.MustBuild[fileNode](
	participle.Lexer(sdslLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(32),
)

type fileNode struct {
	Usings    []*usingNode   `parser:"@@*"`
	Namespace *namespaceNode `parser:"( @@"`
	Shader    *shaderNode    `parser:"| @@ )"`
}

type usingNode struct {
	Path []string `parser:"'using' @Ident ('.' @Ident)* ';'"`
}

type namespaceNode struct {
	Path   []string     `parser:"'namespace' @Ident ('.' @Ident)* '{'"`
	Usings []*usingNode `parser:"@@*"`
	Shader *shaderNode  `parser:"@@ '}'"`
}

type shaderNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Keyword  string              `parser:"@('shader' | 'class')"`
	Name     string              `parser:"@Ident"`
	Generics []*genericParamNode `parser:"('<' @@ (',' @@)* '>')?"`
	Bases    []*baseNode         `parser:"(':' @@ (',' @@)*)?"`
	Members  []*memberNode       `parser:"'{' @@* '}' ';'?"`
}

type genericParamNode struct {
	Type string `parser:"@Ident"`
	Name string `parser:"@Ident"`
}

type baseNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name string            `parser:"@Ident"`
	Args []*genericArgNode `parser:"('<' @@ (',' @@)* '>')?"`
}

type genericArgNode struct {
	Neg   bool     `parser:"@'-'?"`
	Parts []string `parser:"@(Ident | Float | Int | String) ('.' @(Ident | Int))*"`
}

type memberNode struct {
	CBuffer *cbufferNode `parser:"  @@"`
	Struct  *structNode  `parser:"| @@"`
	Typedef *typedefNode `parser:"| @@"`
	Decl    *declNode    `parser:"| @@"`
	Empty   bool         `parser:"| @';'"`
}

type cbufferNode struct {
	Pos lexer.Position

	Kind    string      `parser:"@('cbuffer' | 'rgroup')"`
	Name    []string    `parser:"@Ident ('.' @Ident)*"`
	Members []*declNode `parser:"'{' @@* '}' ';'?"`
}

type structNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name   string             `parser:"'struct' @Ident '{'"`
	Fields []*structFieldNode `parser:"@@* '}' ';'?"`
}

type structFieldNode struct {
	Quals    []*qualNode `parser:"@@*"`
	Type     *typeNode   `parser:"@@"`
	Name     string      `parser:"@Ident"`
	Dims     []*dimNode  `parser:"@@*"`
	Semantic string      `parser:"(':' @Ident)? ';'"`
}

type typedefNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Type *typeNode `parser:"'typedef' @@"`
	Name string    `parser:"@Ident ';'"`
}

// declNode is a field or a method; both share the prefix up to the name.
type declNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Attrs  []*attrNode `parser:"@@*"`
	Quals  []*qualNode `parser:"@@*"`
	Type   *typeNode   `parser:"@@"`
	Name   string      `parser:"@Ident"`
	Method *methodTail `parser:"( @@"`
	Field  *fieldTail  `parser:"| @@ )"`
}

type methodTail struct {
	Params   []*paramNode `parser:"'(' (@@ (',' @@)*)? ')'"`
	Semantic string       `parser:"(':' @Ident)?"`
	Body     *blockNode   `parser:"( @@"`
	Abstract bool         `parser:"| @';' )"`
}

type fieldTail struct {
	Dims     []*dimNode `parser:"@@*"`
	Semantic string     `parser:"(':' @Ident)?"`
	Stage    bool       `parser:"( '=' ( @'stage'"`
	Init     *exprNode  `parser:"| @@ ) )?"`
	End      bool       `parser:"@';'"`
}

type paramNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Quals    []*qualNode `parser:"@@*"`
	Type     *typeNode   `parser:"@@"`
	Name     string      `parser:"@Ident"`
	Dims     []*dimNode  `parser:"@@*"`
	Semantic string      `parser:"(':' @Ident)?"`
}

type qualNode struct {
	Word string `parser:"@('internal' | 'static' | 'stage' | 'stream' | 'patchstream' | 'compose' | 'clone' | 'abstract' | 'override' | 'extern' | 'const' | 'uniform' | 'groupshared' | 'inline' | 'precise' | 'nointerpolation' | 'linear' | 'centroid' | 'noperspective' | 'sample' | 'inout' | 'in' | 'out' | 'point' | 'lineadj' | 'line' | 'triangleadj' | 'triangle')"`
}

type typeNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name string   `parser:"@Ident"`
	Args []string `parser:"('<' @(Ident | Int) (',' @(Ident | Int))* '>')?"`
}

type dimNode struct {
	Open bool   `parser:"@'['"`
	Size string `parser:"@(Int | Ident)? ']'"`
}

type attrNode struct {
	Name string   `parser:"'[' @Ident"`
	Args []string `parser:"('(' (@(String | Float | Int | Ident) (',' @(String | Float | Int | Ident))*)? ')')? ']'"`
}

type stmtNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Attrs    []*attrNode    `parser:"@@*"`
	Block    *blockNode     `parser:"( @@"`
	If       *ifNode        `parser:"| @@"`
	For      *forNode       `parser:"| @@"`
	ForEach  *foreachNode   `parser:"| @@"`
	While    *whileNode     `parser:"| @@"`
	Return   *returnNode    `parser:"| @@"`
	Break    bool           `parser:"| @'break' ';'"`
	Continue bool           `parser:"| @'continue' ';'"`
	Discard  bool           `parser:"| @'discard' ';'"`
	Decl     *localDeclNode `parser:"| @@ ';'"`
	Expr     *exprNode      `parser:"| @@ ';'"`
	Empty    bool           `parser:"| @';' )"`
}

type blockNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Open  bool        `parser:"@'{'"`
	Stmts []*stmtNode `parser:"@@* '}'"`
}

type ifNode struct {
	Cond *exprNode `parser:"'if' '(' @@ ')'"`
	Then *stmtNode `parser:"@@"`
	Else *stmtNode `parser:"('else' @@)?"`
}

type forNode struct {
	Keyword  bool           `parser:"@'for' '('"`
	InitDecl *localDeclNode `parser:"( @@ ';'"`
	InitExpr *exprNode      `parser:"| @@ ';' | ';' )"`
	Cond     *exprNode      `parser:"@@? ';'"`
	Post     *exprNode      `parser:"@@? ')'"`
	Body     *stmtNode      `parser:"@@"`
}

type foreachNode struct {
	Quals []*qualNode `parser:"'foreach' '(' @@*"`
	Type  *typeNode   `parser:"@@"`
	Name  string      `parser:"@Ident 'in'"`
	Coll  *exprNode   `parser:"@@ ')'"`
	Body  *stmtNode   `parser:"@@"`
}

type whileNode struct {
	Cond *exprNode `parser:"'while' '(' @@ ')'"`
	Body *stmtNode `parser:"@@"`
}

type returnNode struct {
	Keyword bool      `parser:"@'return'"`
	Value   *exprNode `parser:"@@? ';'"`
}

type localDeclNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Quals []*qualNode       `parser:"@@*"`
	Type  *typeNode         `parser:"@@"`
	Vars  []*declaratorNode `parser:"@@ (',' @@)*"`
}

type declaratorNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Name string     `parser:"@Ident"`
	Dims []*dimNode `parser:"@@*"`
	Init *exprNode  `parser:"('=' @@)?"`
}

type exprNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Left  *ternaryNode `parser:"@@"`
	Op    string       `parser:"( @('=' | '+=' | '-=' | '*=' | '/=' | '%=' | '&=' | '|=' | '^=' | '<<=' | '>>=')"`
	Right *exprNode    `parser:"  @@ )?"`
}

type ternaryNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Cond *binaryNode `parser:"@@"`
	Then *exprNode   `parser:"( '?' @@"`
	Else *exprNode   `parser:"  ':' @@ )?"`
}

// binaryNode is a flat operand/operator list; lowering applies precedence.
type binaryNode struct {
	Head *unaryNode `parser:"@@"`
	Tail []*opNode  `parser:"@@*"`
}

type opNode struct {
	Op    string     `parser:"@('||' | '&&' | '|' | '^' | '&' | '==' | '!=' | '<=' | '>=' | '<<' | '>>' | '<' | '>' | '+' | '-' | '*' | '/' | '%')"`
	Right *unaryNode `parser:"@@"`
}

type unaryNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Op      string       `parser:"( @('-' | '!' | '~' | '+' | '++' | '--')"`
	Operand *unaryNode   `parser:"  @@"`
	Postfix *postfixNode `parser:"| @@ )"`
}

type postfixNode struct {
	Primary  *primaryNode  `parser:"@@"`
	Suffixes []*suffixNode `parser:"@@*"`
}

type suffixNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Member string    `parser:"  '.' @Ident"`
	Call   *callNode `parser:"| @@"`
	Index  *exprNode `parser:"| '[' @@ ']'"`
	Inc    string    `parser:"| @('++' | '--')"`
}

type callNode struct {
	Open bool        `parser:"@'('"`
	Args []*exprNode `parser:"(@@ (',' @@)*)? ')'"`
}

type primaryNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Float  *string   `parser:"  @Float"`
	Int    *string   `parser:"| @Int"`
	Bool   *string   `parser:"| @('true' | 'false')"`
	String *string   `parser:"| @String"`
	Ident  *string   `parser:"| @Ident"`
	Paren  *exprNode `parser:"| '(' @@ ')'"`
	Init   *initNode `parser:"| @@"`
}

type initNode struct {
	Open  bool        `parser:"@'{'"`
	Elems []*exprNode `parser:"(@@ (',' @@)* ','?)? '}'"`
}
