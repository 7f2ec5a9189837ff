package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/soft/compiler/ir"
)

// Format appends the text form of an *ir.Program or *ir.Func.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Program:
		return AppendProgram(b, x), nil
	case *ir.Func:
		return AppendFunc(b, x), nil
	case ir.Instr:
		return AppendInstr(b, x, 0), nil
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func AppendProgram(b []byte, p *ir.Program) []byte {
	b = app(b, 0, "program %s\n", p.Name)

	for _, g := range p.Globals {
		b = app(b, 0, "\nglobal %s %s = %s\n", g.Name, g.Type.String(), g.Init.String())
	}

	for _, f := range p.Funcs {
		b = append(b, '\n')
		b = AppendFunc(b, f)
	}

	return b
}

// AppendFunc appends function signature and body.
// Declarations without a body are printed with the declare keyword.
func AppendFunc(b []byte, f *ir.Func) []byte {
	if f.Defined {
		b = app(b, 0, "func %s(", f.Name)
	} else {
		b = app(b, 0, "declare %s(", f.Name)
	}

	for i, p := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%s %s", p.String(), p.Type.String())
	}

	b = app(b, 0, ") %s", f.Result.String())

	if !f.Defined {
		return append(b, '\n')
	}

	b = append(b, " {\n"...)

	for _, x := range f.Code {
		b = AppendInstr(b, x, 1)
	}

	if f.Ret != nil {
		b = appendReturn(b, f.Ret, 1)
	}

	b = append(b, "}\n"...)

	return b
}

func AppendInstr(b []byte, x ir.Instr, d int) []byte {
	switch x := x.(type) {
	case ir.Alloca:
		b = app(b, d, "%s = alloca %s\n", x.Dst.String(), x.Type.String())
	case ir.Store:
		b = app(b, d, "store %s, %s\n", value(x.Src), x.Dst.String())
	case ir.Convert:
		b = app(b, d, "%s = convert %s %s to %s\n", x.Dst.String(), x.Src.Type.String(), x.Src.String(), x.Dst.Type.String())
	case ir.BinOp:
		b = app(b, d, "%s = %s %s %s, %s\n", x.Dst.String(), x.Op.String(), x.Dst.Type.String(), value(x.L), value(x.R))
	case ir.UnOp:
		b = app(b, d, "%s = %s %s %s\n", x.Dst.String(), x.Op.String(), x.Dst.Type.String(), value(x.X))
	default:
		panic(x)
	}

	return b
}

func appendReturn(b []byte, r *ir.Return, d int) []byte {
	if r.Value == nil {
		return app(b, d, "return\n")
	}

	return app(b, d, "return %s\n", value(r.Value))
}

func value(v ir.Value) string {
	switch v := v.(type) {
	case ir.Constant:
		return v.String()
	case ir.Slot:
		return v.String()
	default:
		panic(v)
	}
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t"

	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)

	return b
}
