package ast

import "github.com/slowlang/soft/compiler/tp"

type (
	Stmt interface {
		stmt()
	}

	Expr interface {
		expr()
	}

	Op string

	// Return returns Value, which is nil for a bare return.
	Return struct {
		Value Expr
	}

	ExprStmt struct {
		X Expr
	}

	// FuncDecl declares a function. Result is nil for void functions.
	FuncDecl struct {
		Name   string
		Result *tp.Type
		Params []Param
	}

	FuncDef struct {
		Decl FuncDecl
		Body []Stmt
	}

	// Param type is required, it's optional here only to report the error.
	Param struct {
		Name string
		Type *tp.Type
	}

	IntLit struct {
		Value uint64
	}

	FloatLit struct {
		Value float64
	}

	Ident struct {
		Name string
	}

	VarDecl struct {
		Name string
		Type *tp.Type
		Init Expr
	}

	Assign struct {
		Target Expr
		Value  Expr
	}

	Binary struct {
		Op Op
		L  Expr
		R  Expr
	}

	Unary struct {
		Op Op
		X  Expr
	}

	Call struct {
		Name string
		Args []Expr
	}

	ArrayLit struct {
		Elems []Expr
	}

	StringLit struct {
		Value string
	}

	CharLit struct {
		Value rune
	}
)

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpNot Op = "!"
)

func (Return) stmt()   {}
func (ExprStmt) stmt() {}
func (FuncDecl) stmt() {}
func (FuncDef) stmt()  {}

func (IntLit) expr()    {}
func (FloatLit) expr()  {}
func (Ident) expr()     {}
func (VarDecl) expr()   {}
func (Assign) expr()    {}
func (Binary) expr()    {}
func (Unary) expr()     {}
func (Call) expr()      {}
func (ArrayLit) expr()  {}
func (StringLit) expr() {}
func (CharLit) expr()   {}

// Type returns a pointer to t, handy for optional type annotations.
func Type(t tp.Type) *tp.Type { return &t }
