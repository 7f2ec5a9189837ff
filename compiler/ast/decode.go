package ast

import (
	"context"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/soft/compiler/tp"
)

type (
	stmtNode struct {
		Return *returnNode `yaml:"return"`
		Expr   *exprNode   `yaml:"expr"`
		Decl   *funcNode   `yaml:"decl"`
		Func   *funcNode   `yaml:"func"`
	}

	returnNode struct {
		Value *exprNode `yaml:"value"`
	}

	funcNode struct {
		Name   string      `yaml:"name"`
		Result string      `yaml:"result"`
		Params []paramNode `yaml:"params"`
		Body   []stmtNode  `yaml:"body"`
	}

	paramNode struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	}

	exprNode struct {
		Int    *uint64     `yaml:"int"`
		Float  *float64    `yaml:"float"`
		Ident  *string     `yaml:"ident"`
		Var    *varNode    `yaml:"var"`
		Assign *assignNode `yaml:"assign"`
		Binary *binaryNode `yaml:"binary"`
		Unary  *unaryNode  `yaml:"unary"`
		Call   *callNode   `yaml:"call"`
		Array  []exprNode  `yaml:"array"`
		String *string     `yaml:"string"`
		Char   *string     `yaml:"char"`
	}

	varNode struct {
		Name string    `yaml:"name"`
		Type string    `yaml:"type"`
		Init *exprNode `yaml:"init"`
	}

	assignNode struct {
		Target *exprNode `yaml:"target"`
		Value  *exprNode `yaml:"value"`
	}

	binaryNode struct {
		Op string    `yaml:"op"`
		L  *exprNode `yaml:"l"`
		R  *exprNode `yaml:"r"`
	}

	unaryNode struct {
		Op string    `yaml:"op"`
		X  *exprNode `yaml:"x"`
	}

	callNode struct {
		Name string     `yaml:"name"`
		Args []exprNode `yaml:"args"`
	}
)

// DecodeFile reads a syntax tree serialized as yaml.
func DecodeFile(ctx context.Context, name string) ([]Stmt, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	return Decode(data)
}

// Decode decodes a list of statements.
// Each statement and expression is a map with a single key naming its kind.
func Decode(data []byte) ([]Stmt, error) {
	var nodes []stmtNode

	err := yaml.Unmarshal(data, &nodes)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal")
	}

	return decodeStmts(nodes)
}

func decodeStmts(nodes []stmtNode) (res []Stmt, err error) {
	res = make([]Stmt, 0, len(nodes))

	for i, n := range nodes {
		s, err := decodeStmt(&n)
		if err != nil {
			return nil, errors.Wrap(err, "stmt %d", i)
		}

		res = append(res, s)
	}

	return res, nil
}

func decodeStmt(n *stmtNode) (Stmt, error) {
	switch {
	case n.Return != nil:
		if n.Return.Value == nil {
			return Return{}, nil
		}

		x, err := decodeExpr(n.Return.Value)
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		return Return{Value: x}, nil
	case n.Expr != nil:
		x, err := decodeExpr(n.Expr)
		if err != nil {
			return nil, errors.Wrap(err, "expr")
		}

		return ExprStmt{X: x}, nil
	case n.Decl != nil:
		d, err := decodeDecl(n.Decl)
		if err != nil {
			return nil, errors.Wrap(err, "decl %v", n.Decl.Name)
		}

		return d, nil
	case n.Func != nil:
		d, err := decodeDecl(n.Func)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", n.Func.Name)
		}

		body, err := decodeStmts(n.Func.Body)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", n.Func.Name)
		}

		return FuncDef{Decl: d, Body: body}, nil
	default:
		return nil, errors.New("empty statement")
	}
}

func decodeDecl(n *funcNode) (d FuncDecl, err error) {
	if n.Name == "" {
		return d, errors.New("function name expected")
	}

	d.Name = n.Name

	d.Result, err = decodeType(n.Result)
	if err != nil {
		return d, errors.Wrap(err, "result")
	}

	if d.Result != nil && d.Result.IsVoid() {
		d.Result = nil
	}

	for _, p := range n.Params {
		t, err := decodeType(p.Type)
		if err != nil {
			return d, errors.Wrap(err, "param %v", p.Name)
		}

		d.Params = append(d.Params, Param{Name: p.Name, Type: t})
	}

	return d, nil
}

func decodeType(name string) (*tp.Type, error) {
	if name == "" {
		return nil, nil
	}

	t, err := tp.Parse(name)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func decodeExpr(n *exprNode) (x Expr, err error) {
	switch {
	case n == nil:
		return nil, errors.New("expression expected")
	case n.Int != nil:
		return IntLit{Value: *n.Int}, nil
	case n.Float != nil:
		return FloatLit{Value: *n.Float}, nil
	case n.Ident != nil:
		return Ident{Name: *n.Ident}, nil
	case n.Var != nil:
		v := VarDecl{Name: n.Var.Name}

		v.Type, err = decodeType(n.Var.Type)
		if err != nil {
			return nil, errors.Wrap(err, "var %v", v.Name)
		}

		if n.Var.Init != nil {
			v.Init, err = decodeExpr(n.Var.Init)
			if err != nil {
				return nil, errors.Wrap(err, "var %v", v.Name)
			}
		}

		return v, nil
	case n.Assign != nil:
		var a Assign

		a.Target, err = decodeExpr(n.Assign.Target)
		if err != nil {
			return nil, errors.Wrap(err, "assign target")
		}

		a.Value, err = decodeExpr(n.Assign.Value)
		if err != nil {
			return nil, errors.Wrap(err, "assign value")
		}

		return a, nil
	case n.Binary != nil:
		b := Binary{Op: Op(n.Binary.Op)}

		b.L, err = decodeExpr(n.Binary.L)
		if err != nil {
			return nil, errors.Wrap(err, "%v l", b.Op)
		}

		b.R, err = decodeExpr(n.Binary.R)
		if err != nil {
			return nil, errors.Wrap(err, "%v r", b.Op)
		}

		return b, nil
	case n.Unary != nil:
		u := Unary{Op: Op(n.Unary.Op)}

		u.X, err = decodeExpr(n.Unary.X)
		if err != nil {
			return nil, errors.Wrap(err, "%v x", u.Op)
		}

		return u, nil
	case n.Call != nil:
		c := Call{Name: n.Call.Name}

		for i := range n.Call.Args {
			a, err := decodeExpr(&n.Call.Args[i])
			if err != nil {
				return nil, errors.Wrap(err, "call %v arg %d", c.Name, i)
			}

			c.Args = append(c.Args, a)
		}

		return c, nil
	case n.Array != nil:
		var a ArrayLit

		for i := range n.Array {
			e, err := decodeExpr(&n.Array[i])
			if err != nil {
				return nil, errors.Wrap(err, "array elem %d", i)
			}

			a.Elems = append(a.Elems, e)
		}

		return a, nil
	case n.String != nil:
		return StringLit{Value: *n.String}, nil
	case n.Char != nil:
		r, size := utf8.DecodeRuneInString(*n.Char)
		if size == 0 || size != len(*n.Char) {
			return nil, errors.New("bad char literal: %q", *n.Char)
		}

		return CharLit{Value: r}, nil
	default:
		return nil, errors.New("empty expression")
	}
}
