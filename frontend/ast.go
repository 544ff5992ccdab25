package frontend

// ---------------------------------------------------------------------------
// AST node definitions
// ---------------------------------------------------------------------------

// Node is the common interface for AST nodes.
type Node interface {
	Pos() Position
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Program is a parsed compilation unit: a list of function declarations.
type Program struct {
	Functions []*FnDecl
}

// FnDecl is a function declaration.
type FnDecl struct {
	Name   string
	Params []string
	Body   *Block
	pos    Position
}

// Block is a brace-delimited statement list.
type Block struct {
	Stmts []Stmt
	pos   Position
}

// LetStmt introduces a new local binding.
type LetStmt struct {
	Name  string
	Value Expr
	pos   Position
}

// AssignStmt assigns to an existing binding.
type AssignStmt struct {
	Name  string
	Value Expr
	pos   Position
}

// ReturnStmt returns from the enclosing function. Value may be nil.
type ReturnStmt struct {
	Value Expr
	pos   Position
}

// IfStmt is a conditional with an optional else block.
type IfStmt struct {
	Cond Expr
	Then *Block
	Else *Block // nil if absent
	pos  Position
}

// WhileStmt is a pre-test loop.
type WhileStmt struct {
	Cond Expr
	Body *Block
	pos  Position
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	E   Expr
	pos Position
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	pos   Position
}

// FloatLit is a float literal.
type FloatLit struct {
	Value float64
	pos   Position
}

// StringLit is a string literal.
type StringLit struct {
	Value string
	pos   Position
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
	pos   Position
}

// NilLit is the nil literal.
type NilLit struct {
	pos Position
}

// Ident is a variable reference.
type Ident struct {
	Name string
	pos  Position
}

// UnaryExpr is a prefix operation (- or !).
type UnaryExpr struct {
	Op  TokenType
	X   Expr
	pos Position
}

// BinaryExpr is an infix operation.
type BinaryExpr struct {
	Op   TokenType
	L, R Expr
	pos  Position
}

// CallExpr is a function call.
type CallExpr struct {
	Name string
	Args []Expr
	pos  Position
}

func (n *FnDecl) Pos() Position     { return n.pos }
func (n *Block) Pos() Position      { return n.pos }
func (n *LetStmt) Pos() Position    { return n.pos }
func (n *AssignStmt) Pos() Position { return n.pos }
func (n *ReturnStmt) Pos() Position { return n.pos }
func (n *IfStmt) Pos() Position     { return n.pos }
func (n *WhileStmt) Pos() Position  { return n.pos }
func (n *ExprStmt) Pos() Position   { return n.pos }
func (n *IntLit) Pos() Position     { return n.pos }
func (n *FloatLit) Pos() Position   { return n.pos }
func (n *StringLit) Pos() Position  { return n.pos }
func (n *BoolLit) Pos() Position    { return n.pos }
func (n *NilLit) Pos() Position     { return n.pos }
func (n *Ident) Pos() Position      { return n.pos }
func (n *UnaryExpr) Pos() Position  { return n.pos }
func (n *BinaryExpr) Pos() Position { return n.pos }
func (n *CallExpr) Pos() Position   { return n.pos }

func (*LetStmt) stmtNode()    {}
func (*AssignStmt) stmtNode() {}
func (*ReturnStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*ExprStmt) stmtNode()   {}

func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NilLit) exprNode()     {}
func (*Ident) exprNode()      {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}
