package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/soft/compiler/ast"
	"github.com/slowlang/soft/compiler/ir"
	"github.com/slowlang/soft/compiler/tp"
)

func fn(name string, res *tp.Type, params []ast.Param, body ...ast.Stmt) ast.FuncDef {
	return ast.FuncDef{
		Decl: ast.FuncDecl{Name: name, Result: res, Params: params},
		Body: body,
	}
}

func param(name string, t tp.Type) ast.Param {
	return ast.Param{Name: name, Type: ast.Type(t)}
}

func ret(x ast.Expr) ast.Return    { return ast.Return{Value: x} }
func expr(x ast.Expr) ast.ExprStmt { return ast.ExprStmt{X: x} }
func ident(n string) ast.Ident     { return ast.Ident{Name: n} }
func lit(v uint64) ast.IntLit      { return ast.IntLit{Value: v} }

func bin(op ast.Op, l, r ast.Expr) ast.Binary {
	return ast.Binary{Op: op, L: l, R: r}
}

func lower(t *testing.T, stmts ...ast.Stmt) (*ir.Program, error) {
	t.Helper()

	return Lower(context.Background(), "test", stmts)
}

func lowerOK(t *testing.T, stmts ...ast.Stmt) *ir.Program {
	t.Helper()

	p, err := lower(t, stmts...)
	require.NoError(t, err)

	return p
}

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()

	var se *SemanticError
	require.ErrorAs(t, err, &se)

	return se.Kind
}

func slot(t tp.Type, id int) ir.Slot { return ir.Slot{Type: t, ID: id} }

func TestConstantFolding(t *testing.T) {
	p := lowerOK(t, fn("main", ast.Type(tp.I32), nil,
		ret(bin(ast.OpAdd, lit(2), bin(ast.OpMul, lit(3), lit(4)))),
	))

	f := p.Func("main")
	require.NotNil(t, f)

	assert.Empty(t, f.Code)
	assert.Equal(t, &ir.Return{Value: ir.IntConst(tp.I32, 14)}, f.Ret)

	for _, tc := range []struct {
		name string
		x    ast.Expr
		exp  ir.Constant
	}{
		{"mixed", bin(ast.OpAdd, lit(1), ast.FloatLit{Value: 2.5}), ir.FloatConst(tp.F32, 3.5)},
		{"wrap", bin(ast.OpAdd, lit(2147483647), lit(1)), ir.IntConst(tp.I32, -2147483648)},
		{"wide", bin(ast.OpMul, lit(1<<40), lit(3)), ir.IntConst(tp.I64, 3<<40)},
		{"div", bin(ast.OpDiv, lit(7), lit(2)), ir.IntConst(tp.I32, 3)},
		{"neg", ast.Unary{Op: ast.OpSub, X: lit(5)}, ir.IntConst(tp.I32, -5)},
		{"negf", ast.Unary{Op: ast.OpSub, X: ast.FloatLit{Value: 1e300}}, ir.FloatConst(tp.F64, -1e300)},
		{"not", ast.Unary{Op: ast.OpNot, X: lit(0)}, ir.IntConst(tp.I32, 1)},
		{"not5", ast.Unary{Op: ast.OpNot, X: lit(5)}, ir.IntConst(tp.I32, 0)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := lowerOK(t, fn("f", ast.Type(tc.exp.Type), nil, ret(tc.x)))

			f := p.Func("f")
			assert.Empty(t, f.Code)
			assert.Equal(t, tc.exp, f.Ret.Value)
		})
	}
}

func TestDivByZero(t *testing.T) {
	_, err := lower(t, fn("f", ast.Type(tp.I32), nil, ret(bin(ast.OpDiv, lit(1), lit(0)))))
	assert.Equal(t, DivByZero, kindOf(t, err))

	// float division by zero is fine
	p := lowerOK(t, fn("f", ast.Type(tp.F32), nil, ret(bin(ast.OpDiv, ast.FloatLit{Value: 1}, lit(0)))))
	assert.IsType(t, ir.Constant{}, p.Func("f").Ret.Value)
}

func TestImplicitCasts(t *testing.T) {
	p := lowerOK(t, fn("f", ast.Type(tp.F32), []ast.Param{param("a", tp.I32)},
		expr(ast.VarDecl{Name: "x", Init: bin(ast.OpAdd, ident("a"), ast.FloatLit{Value: 1.5})}),
		ret(ident("x")),
	))

	f := p.Func("f")

	assert.Equal(t, []ir.Slot{slot(tp.I32, 0)}, f.Params)
	assert.Equal(t, []ir.Instr{
		ir.Alloca{Type: tp.F32, Dst: slot(tp.F32, 3)},
		ir.Convert{Src: slot(tp.I32, 0), Dst: slot(tp.F32, 1)},
		ir.BinOp{Op: ir.Add, L: slot(tp.F32, 1), R: ir.FloatConst(tp.F32, 1.5), Dst: slot(tp.F32, 2)},
		ir.Store{Src: slot(tp.F32, 2), Dst: slot(tp.F32, 3)},
	}, f.Code)
	assert.Equal(t, &ir.Return{Value: slot(tp.F32, 3)}, f.Ret)
	assert.Equal(t, 4, f.Slots)

	p = lowerOK(t, fn("g", ast.Type(tp.I64), []ast.Param{param("a", tp.I32), param("b", tp.U8)},
		ret(bin(ast.OpSub, ident("b"), ident("a"))),
	))

	f = p.Func("g")

	// kind of the left operand, widest width
	assert.Equal(t, []ir.Instr{
		ir.Convert{Src: slot(tp.U8, 1), Dst: slot(tp.U32, 2)},
		ir.Convert{Src: slot(tp.I32, 0), Dst: slot(tp.U32, 3)},
		ir.BinOp{Op: ir.Sub, L: slot(tp.U32, 2), R: slot(tp.U32, 3), Dst: slot(tp.U32, 4)},
		ir.Convert{Src: slot(tp.U32, 4), Dst: slot(tp.I64, 5)},
	}, f.Code)
	assert.Equal(t, &ir.Return{Value: slot(tp.I64, 5)}, f.Ret)
}

func TestConstantCastInPlace(t *testing.T) {
	p := lowerOK(t, fn("f", ast.Type(tp.I8), nil,
		expr(ast.VarDecl{Name: "x", Type: ast.Type(tp.F64), Init: lit(3)}),
		ret(lit(300)),
	))

	f := p.Func("f")

	assert.Equal(t, []ir.Instr{
		ir.Alloca{Type: tp.F64, Dst: slot(tp.F64, 0)},
		ir.Store{Src: ir.FloatConst(tp.F64, 3), Dst: slot(tp.F64, 0)},
	}, f.Code)
	assert.Equal(t, ir.IntConst(tp.I8, 44), f.Ret.Value)
}

func TestAssign(t *testing.T) {
	p := lowerOK(t, fn("f", nil, nil,
		expr(ast.VarDecl{Name: "x", Type: ast.Type(tp.I64)}),
		expr(ast.VarDecl{Name: "y", Type: ast.Type(tp.I16)}),
		expr(ast.Assign{Target: ident("x"), Value: ast.Assign{Target: ident("y"), Value: lit(7)}}),
	))

	f := p.Func("f")

	assert.Equal(t, []ir.Instr{
		ir.Alloca{Type: tp.I64, Dst: slot(tp.I64, 0)},
		ir.Alloca{Type: tp.I16, Dst: slot(tp.I16, 1)},
		ir.Store{Src: ir.IntConst(tp.I16, 7), Dst: slot(tp.I16, 1)},
		ir.Store{Src: ir.IntConst(tp.I64, 7), Dst: slot(tp.I64, 0)},
	}, f.Code)
	assert.Equal(t, &ir.Return{}, f.Ret)

	p = lowerOK(t, fn("g", nil, []ast.Param{param("a", tp.I32)},
		expr(ast.Assign{Target: bin(ast.OpAdd, ident("a"), lit(1)), Value: lit(2)}),
	))

	assert.Equal(t, []ir.Instr{
		ir.BinOp{Op: ir.Add, L: slot(tp.I32, 0), R: ir.IntConst(tp.I32, 1), Dst: slot(tp.I32, 1)},
		ir.Store{Src: ir.IntConst(tp.I32, 2), Dst: slot(tp.I32, 1)},
	}, p.Func("g").Code)

	_, err := lower(t, fn("h", nil, nil,
		expr(ast.Assign{Target: lit(1), Value: lit(2)}),
	))
	assert.Equal(t, NotStorage, kindOf(t, err))
}

func TestReturnSequencing(t *testing.T) {
	p := lowerOK(t, fn("f", ast.Type(tp.I32), nil,
		ret(lit(1)),
		ret(ident("undeclared")),
		expr(ast.VarDecl{Name: "x", Type: ast.Type(tp.I32)}),
	))

	f := p.Func("f")

	assert.Equal(t, &ir.Return{Value: ir.IntConst(tp.I32, 1)}, f.Ret)
	assert.Empty(t, f.Code)

	// later returns are not checked against the result type
	p = lowerOK(t,
		fn("g", ast.Type(tp.I32), nil, ret(lit(1)), ast.Return{}),
		fn("h", nil, nil, ast.Return{}, ret(lit(1))),
	)

	assert.Equal(t, &ir.Return{Value: ir.IntConst(tp.I32, 1)}, p.Func("g").Ret)
	assert.Equal(t, &ir.Return{}, p.Func("h").Ret)
}

func TestStatementsAfterReturn(t *testing.T) {
	p, err := lower(t, fn("main", ast.Type(tp.I32), nil,
		ret(lit(1)),
		expr(ident("undeclared")),
	))
	assert.Equal(t, Undeclared, kindOf(t, err))

	f := p.Func("main")
	require.NotNil(t, f)
	assert.False(t, f.Defined)
	assert.Nil(t, f.Ret)

	// checked and then dropped
	p = lowerOK(t, fn("f", ast.Type(tp.I32), []ast.Param{param("a", tp.I32)},
		ret(ident("a")),
		expr(ast.VarDecl{Name: "x", Init: bin(ast.OpMul, ident("a"), lit(3))}),
		expr(ast.Assign{Target: ident("a"), Value: ident("x")}),
	))

	f = p.Func("f")
	assert.Empty(t, f.Code)
	assert.Equal(t, &ir.Return{Value: slot(tp.I32, 0)}, f.Ret)
}

func TestDeclarations(t *testing.T) {
	decl := ast.FuncDecl{Name: "f", Result: ast.Type(tp.I32), Params: []ast.Param{param("a", tp.I32)}}

	p := lowerOK(t,
		decl,
		decl,
		ast.FuncDef{Decl: decl, Body: []ast.Stmt{ret(ident("a"))}},
		decl,
	)

	require.Len(t, p.Funcs, 1)
	assert.True(t, p.Funcs[0].Defined)
	assert.Equal(t, &ir.Return{Value: slot(tp.I32, 0)}, p.Funcs[0].Ret)

	other := decl
	other.Result = ast.Type(tp.I64)

	_, err := lower(t, decl, other)
	assert.Equal(t, ConflictingDecl, kindOf(t, err))

	def := ast.FuncDef{Decl: decl, Body: []ast.Stmt{ret(lit(1))}}

	_, err = lower(t, def, def)
	assert.Equal(t, Redefinition, kindOf(t, err))

	p = lowerOK(t, ast.FuncDecl{Name: "ext", Result: ast.Type(tp.F64)})
	require.Len(t, p.Funcs, 1)
	assert.False(t, p.Funcs[0].Defined)
	assert.Nil(t, p.Funcs[0].Ret)
}

func TestGlobals(t *testing.T) {
	p := lowerOK(t,
		expr(ast.VarDecl{Name: "a", Type: ast.Type(tp.I64), Init: lit(5)}),
		expr(ast.VarDecl{Name: "b", Init: ast.FloatLit{Value: 1.5}}),
		expr(ast.VarDecl{Name: "c", Type: ast.Type(tp.U32), Init: bin(ast.OpSub, lit(0), lit(1))}),
		expr(ast.VarDecl{Name: "d", Type: ast.Type(tp.I16)}),
	)

	assert.Equal(t, []*ir.Global{
		{Name: "a", Type: tp.I64, Init: ir.IntConst(tp.I64, 5)},
		{Name: "b", Type: tp.F32, Init: ir.FloatConst(tp.F32, 1.5)},
		{Name: "c", Type: tp.U32, Init: ir.IntConst(tp.U32, 4294967295)},
		{Name: "d", Type: tp.I16, Init: ir.IntConst(tp.I16, 0)},
	}, p.Globals)

	_, err := lower(t,
		expr(ast.VarDecl{Name: "g", Type: ast.Type(tp.I32), Init: lit(1)}),
		fn("f", ast.Type(tp.I32), nil, ret(ident("g"))),
	)
	assert.Equal(t, Undeclared, kindOf(t, err))

	_, err = lower(t, expr(ast.VarDecl{Name: "g", Init: ast.VarDecl{Name: "h", Init: lit(1)}}))
	assert.Equal(t, NotConstant, kindOf(t, err))

	_, err = lower(t, expr(bin(ast.OpAdd, lit(1), lit(2))))
	assert.Equal(t, Misplaced, kindOf(t, err))

	_, err = lower(t, ret(lit(1)))
	assert.Equal(t, Misplaced, kindOf(t, err))
}

func TestSemanticErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		stmt ast.Stmt
		kind ErrorKind
	}{
		{"undeclared", fn("f", ast.Type(tp.I32), nil, ret(ident("x"))), Undeclared},
		{"redefinition", fn("f", nil, nil,
			expr(ast.VarDecl{Name: "x", Type: ast.Type(tp.I32)}),
			expr(ast.VarDecl{Name: "x", Type: ast.Type(tp.I32)}),
		), Redefinition},
		{"param_redefinition", fn("f", nil, []ast.Param{param("a", tp.I32), param("a", tp.I64)}), Redefinition},
		{"param_shadow", fn("f", nil, []ast.Param{param("a", tp.I32)},
			expr(ast.VarDecl{Name: "a", Type: ast.Type(tp.I32)}),
		), Redefinition},
		{"missing_type", fn("f", nil, nil, expr(ast.VarDecl{Name: "x"})), MissingType},
		{"void_var", fn("f", nil, nil, expr(ast.VarDecl{Name: "x", Type: ast.Type(tp.VoidType)})), MissingType},
		{"untyped_param", fn("f", nil, []ast.Param{{Name: "a"}}), UntypedParam},
		{"void_returns_value", fn("f", nil, nil, ret(lit(1))), ReturnMisuse},
		{"no_return_value", fn("f", ast.Type(tp.I32), nil, ast.Return{}), ReturnMisuse},
		{"missing_return", fn("f", ast.Type(tp.I32), nil), MissingReturn},
		{"nested", fn("f", nil, nil, ast.FuncDecl{Name: "g"}), Misplaced},
		{"self_reference", fn("f", nil, nil,
			expr(ast.VarDecl{Name: "x", Init: bin(ast.OpAdd, ident("x"), lit(1))}),
		), Undeclared},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := lower(t, tc.stmt)
			assert.Equal(t, tc.kind, kindOf(t, err))
		})
	}
}

func TestUnsupported(t *testing.T) {
	for _, x := range []ast.Expr{
		ast.Call{Name: "g"},
		ast.ArrayLit{Elems: []ast.Expr{lit(1)}},
		ast.StringLit{Value: "abc"},
		ast.CharLit{Value: 'a'},
		bin("%", lit(1), lit(2)),
		ast.Unary{Op: "~", X: lit(1)},
	} {
		_, err := lower(t, fn("f", nil, nil, expr(x)))

		var ue *ir.UnsupportedError
		assert.ErrorAs(t, err, &ue, "%T", x)
	}
}

func TestDiagnostics(t *testing.T) {
	p, err := lower(t,
		fn("bad1", ast.Type(tp.I32), nil, ret(ident("x"))),
		fn("good", ast.Type(tp.I32), nil, ret(lit(1))),
		fn("bad2", nil, nil, ret(lit(1))),
	)

	var diags Diagnostics
	require.ErrorAs(t, err, &diags)
	require.Len(t, diags, 2)

	assert.Equal(t, Undeclared, kindOf(t, diags[0]))
	assert.Equal(t, ReturnMisuse, kindOf(t, diags[1]))

	require.NotNil(t, p)
	require.Len(t, p.Funcs, 3)
	assert.Equal(t, &ir.Return{Value: ir.IntConst(tp.I32, 1)}, p.Func("good").Ret)

	for _, name := range []string{"bad1", "bad2"} {
		f := p.Func(name)

		assert.False(t, f.Defined, name)
		assert.Nil(t, f.Ret, name)
		assert.Empty(t, f.Code, name)
	}
}
