package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/soft/compiler/tp"
)

func TestDecode(t *testing.T) {
	data := []byte(`
- decl:
    name: ext
    result: f64
    params:
      - {name: x, type: f64}
- func:
    name: main
    result: i32
    params:
      - {name: a, type: i32}
      - {name: b}
    body:
      - expr: {var: {name: x, type: i64, init: {int: 5}}}
      - expr: {assign: {target: {ident: x}, value: {binary: {op: "+", l: {ident: a}, r: {float: 1.5}}}}}
      - expr: {unary: {op: "-", x: {ident: x}}}
      - expr: {call: {name: ext, args: [{float: 2}]}}
      - return: {value: {ident: x}}
      - return: {}
`)

	stmts, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, FuncDecl{
		Name:   "ext",
		Result: Type(tp.F64),
		Params: []Param{{Name: "x", Type: Type(tp.F64)}},
	}, stmts[0])

	def, ok := stmts[1].(FuncDef)
	require.True(t, ok, "%T", stmts[1])

	assert.Equal(t, "main", def.Decl.Name)
	assert.Equal(t, Type(tp.I32), def.Decl.Result)
	assert.Equal(t, []Param{{Name: "a", Type: Type(tp.I32)}, {Name: "b"}}, def.Decl.Params)

	assert.Equal(t, []Stmt{
		ExprStmt{X: VarDecl{Name: "x", Type: Type(tp.I64), Init: IntLit{Value: 5}}},
		ExprStmt{X: Assign{
			Target: Ident{Name: "x"},
			Value:  Binary{Op: OpAdd, L: Ident{Name: "a"}, R: FloatLit{Value: 1.5}},
		}},
		ExprStmt{X: Unary{Op: OpSub, X: Ident{Name: "x"}}},
		ExprStmt{X: Call{Name: "ext", Args: []Expr{FloatLit{Value: 2}}}},
		Return{Value: Ident{Name: "x"}},
		Return{},
	}, def.Body)
}

func TestDecodeVoidResult(t *testing.T) {
	stmts, err := Decode([]byte(`[{func: {name: f, result: void, body: []}}]`))
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	def := stmts[0].(FuncDef)
	assert.Nil(t, def.Decl.Result)
}

func TestDecodeErrors(t *testing.T) {
	for _, src := range []string{
		`[{}]`,
		`[{expr: {}}]`,
		`[{func: {result: i32}}]`,
		`[{func: {name: f, result: i7}}]`,
		`[{expr: {var: {name: x, type: q}}}]`,
		`[{expr: {char: "ab"}}]`,
		`[{expr: {binary: {op: "+", l: {int: 1}}}}]`,
		`{not: a list}`,
	} {
		_, err := Decode([]byte(src))
		assert.Error(t, err, src)
	}
}
