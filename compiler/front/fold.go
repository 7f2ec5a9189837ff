package front

import (
	"github.com/slowlang/soft/compiler/ir"
	"github.com/slowlang/soft/compiler/tp"
)

// unify returns the type both operands of a binary operation are cast to.
// Mixed signed and unsigned operands take the left operand's kind.
func unify(l, r tp.Type) tp.Type {
	t := tp.Type{
		Kind: l.Kind,
		Bits: max(l.Bits, r.Bits),
	}

	if l.IsFloat() || r.IsFloat() {
		t.Kind = tp.Float
	}

	return t
}

func foldBinary(op ir.Op, l, r ir.Constant) (ir.Constant, error) {
	t := unify(l.Type, r.Type)

	if t.IsFloat() {
		a, b := l.Float64(), r.Float64()

		var v float64

		switch op {
		case ir.Add:
			v = a + b
		case ir.Sub:
			v = a - b
		case ir.Mul:
			v = a * b
		case ir.Div:
			v = a / b
		default:
			panic(op)
		}

		return ir.FloatConst(t, v), nil
	}

	a, b := l.Int64(), r.Int64()

	var v int64

	switch op {
	case ir.Add:
		v = a + b
	case ir.Sub:
		v = a - b
	case ir.Mul:
		v = a * b
	case ir.Div:
		if b == 0 {
			return ir.Constant{}, newError(DivByZero, "", "integer division by zero in constant expression")
		}

		if t.Kind == tp.Uint {
			v = int64(uint64(a) / uint64(b))
		} else {
			v = a / b
		}
	default:
		panic(op)
	}

	return ir.IntConst(t, v), nil
}

// foldUnary returns false if x can't be folded.
func foldUnary(op ir.Op, x ir.Constant) (ir.Constant, bool) {
	switch {
	case op == ir.Neg && x.Type.IsFloat():
		return ir.FloatConst(x.Type, -x.Float), true
	case op == ir.Neg:
		return ir.IntConst(x.Type, -x.Int), true
	case op == ir.Not && x.Type.IsInt():
		v := int64(0)
		if x.Int == 0 {
			v = 1
		}

		return ir.IntConst(x.Type, v), true
	}

	return x, false
}
