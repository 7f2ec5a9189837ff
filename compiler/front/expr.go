package front

import (
	"context"
	"math"
	"slices"

	"tlog.app/go/errors"

	"github.com/slowlang/soft/compiler/ast"
	"github.com/slowlang/soft/compiler/ir"
	"github.com/slowlang/soft/compiler/tp"
)

func (c *Front) compileExpr(ctx context.Context, fc *funContext, e ast.Expr) (v ir.Value, err error) {
	switch e := e.(type) {
	case ast.IntLit:
		return intLit(e.Value), nil
	case ast.FloatLit:
		t := tp.F32
		if math.Abs(e.Value) > math.MaxFloat32 {
			t = tp.F64
		}

		return ir.FloatConst(t, e.Value), nil
	case ast.Ident:
		s, ok := fc.vars[e.Name]
		if !ok {
			return nil, newError(Undeclared, e.Name, "use of undeclared identifier %s", e.Name)
		}

		return s, nil
	case ast.VarDecl:
		return c.compileVarDecl(ctx, fc, e)
	case ast.Assign:
		val, err := c.compileExpr(ctx, fc, e.Value)
		if err != nil {
			return nil, errors.Wrap(err, "assignment value")
		}

		dst, err := c.compileExpr(ctx, fc, e.Target)
		if err != nil {
			return nil, errors.Wrap(err, "assignment target")
		}

		return c.assign(fc, dst, val)
	case ast.Binary:
		return c.compileBinary(ctx, fc, e)
	case ast.Unary:
		return c.compileUnary(ctx, fc, e)
	case ast.Call:
		return nil, ir.Unsupported("function call %s", e.Name)
	case ast.ArrayLit:
		return nil, ir.Unsupported("array literal")
	case ast.StringLit:
		return nil, ir.Unsupported("string literal")
	case ast.CharLit:
		return nil, ir.Unsupported("char literal")
	default:
		panic(e)
	}
}

func (c *Front) compileVarDecl(ctx context.Context, fc *funContext, d ast.VarDecl) (ir.Value, error) {
	if _, ok := fc.vars[d.Name]; ok {
		return nil, newError(Redefinition, d.Name, "redefinition of %s", d.Name)
	}

	if d.Type == nil && d.Init == nil {
		return nil, newError(MissingType, d.Name, "variable %s has neither type nor initializer", d.Name)
	}

	if d.Type != nil && d.Type.IsVoid() {
		return nil, newError(MissingType, d.Name, "variable %s has void type", d.Name)
	}

	pos := len(fc.Code)

	var val ir.Value

	if d.Init != nil {
		var err error

		val, err = c.compileExpr(ctx, fc, d.Init)
		if err != nil {
			return nil, errors.Wrap(err, "init %v", d.Name)
		}
	}

	t := ir.TypeOf(val)
	if d.Type != nil {
		t = *d.Type
	}

	if t.IsVoid() {
		return nil, newError(MissingType, d.Name, "variable %s initialized with void", d.Name)
	}

	s := fc.variable(d.Name, t)

	// alloca goes before the initializer code
	fc.Code = slices.Insert(fc.Code, pos, ir.Instr(ir.Alloca{Type: t, Dst: s}))

	if val == nil {
		return s, nil
	}

	return c.assign(fc, s, val)
}

// assign stores val into dst and returns the value as it was before the cast.
func (c *Front) assign(fc *funContext, dst, val ir.Value) (ir.Value, error) {
	s, ok := dst.(ir.Slot)
	if !ok {
		return nil, newError(NotStorage, "", "assignment to a non storage location")
	}

	fc.Append(ir.Store{
		Src: fc.cast(val, s.Type),
		Dst: s,
	})

	return val, nil
}

func (c *Front) compileBinary(ctx context.Context, fc *funContext, e ast.Binary) (ir.Value, error) {
	var op ir.Op

	switch e.Op {
	case ast.OpAdd:
		op = ir.Add
	case ast.OpSub:
		op = ir.Sub
	case ast.OpMul:
		op = ir.Mul
	case ast.OpDiv:
		op = ir.Div
	default:
		return nil, ir.Unsupported("binary operator %q", e.Op)
	}

	l, err := c.compileExpr(ctx, fc, e.L)
	if err != nil {
		return nil, errors.Wrap(err, "%v lhs", op)
	}

	r, err := c.compileExpr(ctx, fc, e.R)
	if err != nil {
		return nil, errors.Wrap(err, "%v rhs", op)
	}

	lc, lok := l.(ir.Constant)
	rc, rok := r.(ir.Constant)

	if lok && rok {
		return foldBinary(op, lc, rc)
	}

	t := unify(ir.TypeOf(l), ir.TypeOf(r))

	x := ir.BinOp{
		Op: op,
		L:  fc.cast(l, t),
		R:  fc.cast(r, t),
	}

	x.Dst = fc.slot(t)
	fc.Append(x)

	return x.Dst, nil
}

func (c *Front) compileUnary(ctx context.Context, fc *funContext, e ast.Unary) (ir.Value, error) {
	var op ir.Op

	switch e.Op {
	case ast.OpSub:
		op = ir.Neg
	case ast.OpNot:
		op = ir.Not
	default:
		return nil, ir.Unsupported("unary operator %q", e.Op)
	}

	x, err := c.compileExpr(ctx, fc, e.X)
	if err != nil {
		return nil, errors.Wrap(err, "%v operand", op)
	}

	if cst, ok := x.(ir.Constant); ok {
		if r, ok := foldUnary(op, cst); ok {
			return r, nil
		}
	}

	u := ir.UnOp{
		Op:  op,
		X:   x,
		Dst: fc.slot(ir.TypeOf(x)),
	}

	fc.Append(u)

	return u.Dst, nil
}

// intLit is i32 if it fits, i64 otherwise.
// Literals beyond the i64 range are u64.
func intLit(v uint64) ir.Constant {
	switch {
	case v <= math.MaxInt32:
		return ir.IntConst(tp.I32, int64(v))
	case v <= math.MaxInt64:
		return ir.IntConst(tp.I64, int64(v))
	default:
		return ir.IntConst(tp.U64, int64(v))
	}
}
