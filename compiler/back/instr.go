package back

import (
	"math"

	"github.com/slowlang/soft/compiler/alloc"
	"github.com/slowlang/soft/compiler/asm/amd64"
	"github.com/slowlang/soft/compiler/ir"
	"github.com/slowlang/soft/compiler/tp"
)

func (fc *funContext) compileStore(x ir.Store) error {
	// released register may belong to another slot by now
	if _, ok := fc.storage(x.Dst).(alloc.Register); ok && fc.readsOf(x.Dst) == 0 {
		fc.comment("dead store to %s", x.Dst.String())
		return nil
	}

	src := fc.operand(x.Src)
	dst := place(fc.dst(x.Dst))

	fc.move(x.Dst.Type, dst, src)

	return nil
}

func (fc *funContext) compileConvert(x ir.Convert) error {
	from, to := x.Src.Type, x.Dst.Type
	src := fc.operand(x.Src)

	switch {
	case from.IsInt() && to.IsInt():
		fc.convertInt(x, src)
	case from.IsInt():
		if from.Equal(tp.U64) {
			return ir.Unsupported("conversion %v to %v", from, to)
		}

		fc.convertIntFloat(x, src)
	case to.IsInt():
		if to.Equal(tp.U64) {
			return ir.Unsupported("conversion %v to %v", from, to)
		}

		fc.convertFloatInt(x, src)
	default:
		fc.convertFloat(x, src)
	}

	return nil
}

func (fc *funContext) convertInt(x ir.Convert, src opnd) {
	from, to := x.Src.Type, x.Dst.Type
	st := fc.storage(x.Src)
	r, inReg := st.(alloc.Register)

	if to.Size() <= from.Size() {
		if inReg && fc.last(x.Src) {
			fc.rebind(x.Src, x.Dst, r.Resize(to.Size()))
			return
		}

		fc.move(to, place(fc.dst(x.Dst)), place(resize(st, to.Size())))

		return
	}

	if inReg && fc.last(x.Src) {
		fc.extend(from, to.Size(), src, r)
		fc.rebind(x.Src, x.Dst, r.Resize(to.Size()))

		return
	}

	d := fc.dst(x.Dst)

	if dr, ok := d.(alloc.Register); ok {
		fc.extend(from, to.Size(), src, dr)
		return
	}

	s, restore := fc.scratch(tp.ClassInt, to.Size())
	defer restore()

	fc.extend(from, to.Size(), src, s)
	fc.move(to, place(d), regOpnd(s))
}

func (fc *funContext) convertIntFloat(x ir.Convert, src opnd) {
	from, to := x.Src.Type, x.Dst.Type

	// cvtsi2s* takes signed 32 or 64 bit sources
	size := 4
	if from.Size() == 8 || from.Equal(tp.U32) {
		size = 8
	}

	if from.Size() != size {
		s, restore := fc.scratch(tp.ClassInt, size)
		defer restore()

		fc.extend(from, size, src, s)
		src = regOpnd(s)
	}

	cvt := "cvtsi2s" + amd64.FloatSuffix(to.Size()) + amd64.Suffix(size)

	fc.toFloatDst(x.Dst, func(dst opnd) {
		fc.emit(cvt, src, dst)
	})
}

func (fc *funContext) convertFloatInt(x ir.Convert, src opnd) {
	from, to := x.Src.Type, x.Dst.Type

	size := 8
	if to.Size() < 4 || to.Size() == 4 && to.Signed() {
		size = 4
	}

	cvt := "cvtts" + amd64.FloatSuffix(from.Size()) + "2si"

	d := fc.dst(x.Dst)

	if dr, ok := d.(alloc.Register); ok {
		fc.emit(cvt, src, regOpnd(dr.Resize(size)))
		return
	}

	s, restore := fc.scratch(tp.ClassInt, size)
	defer restore()

	fc.emit(cvt, src, regOpnd(s))
	fc.move(to, place(d), regOpnd(s.Resize(to.Size())))
}

func (fc *funContext) convertFloat(x ir.Convert, src opnd) {
	from, to := x.Src.Type, x.Dst.Type

	cvt := "cvts" + amd64.FloatSuffix(from.Size()) + "2s" + amd64.FloatSuffix(to.Size())

	if r, ok := fc.storage(x.Src).(alloc.Register); ok && fc.last(x.Src) {
		fc.emit(cvt, src, src)
		fc.rebind(x.Src, x.Dst, r.Resize(to.Size()))

		return
	}

	fc.toFloatDst(x.Dst, func(dst opnd) {
		fc.emit(cvt, src, dst)
	})
}

// toFloatDst runs emit with a float register which ends up in d.
func (fc *funContext) toFloatDst(d ir.Slot, emit func(dst opnd)) {
	st := fc.dst(d)

	if r, ok := st.(alloc.Register); ok {
		emit(regOpnd(r))
		return
	}

	s, restore := fc.scratch(tp.ClassFloat, d.Type.Size())
	defer restore()

	emit(regOpnd(s))
	fc.move(d.Type, place(st), regOpnd(s))
}

func (fc *funContext) compileBinOp(x ir.BinOp) error {
	t := x.Dst.Type

	if t.IsInt() && x.Op == ir.Div {
		return fc.compileDiv(x)
	}

	var op string

	switch {
	case t.IsFloat():
		op = [...]string{ir.Add: "adds", ir.Sub: "subs", ir.Mul: "muls", ir.Div: "divs"}[x.Op] + amd64.FloatSuffix(t.Size())
	case x.Op == ir.Add:
		op = "add" + amd64.Suffix(t.Size())
	case x.Op == ir.Sub:
		op = "sub" + amd64.Suffix(t.Size())
	case x.Op == ir.Mul:
		op = "imul" + amd64.Suffix(t.Size())
	default:
		panic(x.Op)
	}

	l := fc.operand(x.L)
	fc.operand(x.R)

	r, done := fc.aluSrc(t, x.R)
	defer done()

	d := fc.dst(x.Dst)

	w, inDst := d.(alloc.Register)
	if !inDst {
		s, restore := fc.scratch(t.Class(), t.Size())
		defer restore()

		w = s
	}

	fc.move(t, regOpnd(w), l)

	if t.IsInt() && t.Size() == 1 && x.Op == ir.Mul {
		// imul has no 8-bit two operand form, low byte is the same at 32 bits
		switch r.Kind {
		case opMem:
			s, restore := fc.scratch(tp.ClassInt, 4)
			defer restore()

			fc.emit("movzbl", r, regOpnd(s))
			r = regOpnd(s)
		case opReg:
			r = regOpnd(r.Reg.Resize(4))
		}

		fc.emit("imull", r, regOpnd(w.Resize(4)))
	} else {
		fc.emit(op, r, regOpnd(w))
	}

	if !inDst {
		fc.move(t, place(d), regOpnd(w))
	}

	return nil
}

func (fc *funContext) compileDiv(x ir.BinOp) error {
	t := x.Dst.Type
	size := max(t.Size(), 4)

	fc.operand(x.L)
	fc.operand(x.R)

	d := fc.dst(x.Dst)

	rax := alloc.Register{Class: tp.ClassInt, Num: amd64.RAX, Size: size}
	rdx := alloc.Register{Class: tp.ClassInt, Num: amd64.RDX, Size: size}

	dv, restore := fc.scratch(tp.ClassInt, size, amd64.RAX, amd64.RDX)
	defer restore()

	fc.load(t, dv, x.R)

	var saved []func()

	for _, r := range []alloc.Register{rax, rdx} {
		if dr, ok := d.(alloc.Register); ok && dr.Same(r) || !fc.a.Reserved(r) {
			continue
		}

		full := regOpnd(r.Resize(8))
		save := memOpnd(fc.a.Stack(8))

		fc.emit("movq", full, save)

		saved = append(saved, func() {
			fc.emit("movq", save, full)
		})
	}

	fc.load(t, rax, x.L)

	switch {
	case !t.Signed():
		fc.emit("xorl", regOpnd(rdx.Resize(4)), regOpnd(rdx.Resize(4)))
		fc.emit("div"+amd64.Suffix(size), regOpnd(dv))
	case size == 4:
		fc.emit("cltd")
		fc.emit("idivl", regOpnd(dv))
	default:
		fc.emit("cqto")
		fc.emit("idivq", regOpnd(dv))
	}

	fc.move(t, place(d), regOpnd(rax.Resize(t.Size())))

	for i := len(saved) - 1; i >= 0; i-- {
		saved[i]()
	}

	return nil
}

func (fc *funContext) compileUnOp(x ir.UnOp) error {
	t := x.Dst.Type
	size := t.Size()

	if x.Op == ir.Not && t.IsFloat() {
		return ir.Unsupported("logical not of %v", t)
	}

	src := fc.operand(x.X)
	d := fc.dst(x.Dst)

	if x.Op == ir.Neg && t.IsInt() {
		fc.move(t, place(d), src)
		fc.emit("neg"+amd64.Suffix(size), place(d))

		return nil
	}

	w, inDst := d.(alloc.Register)
	if !inDst {
		s, restore := fc.scratch(t.Class(), size)
		defer restore()

		w = s
	}

	fc.move(t, regOpnd(w), src)

	switch x.Op {
	case ir.Neg:
		m, restore := fc.scratch(tp.ClassFloat, size)
		defer restore()

		mask := ir.FloatConst(t, math.Copysign(0, -1))

		fc.move(t, regOpnd(m), fc.value(mask))
		fc.emit("xorps", regOpnd(m), regOpnd(w))
	case ir.Not:
		fc.emit("cmp"+amd64.Suffix(size), opnd{Kind: opImm, Text: "$0"}, regOpnd(w))
		fc.emit("sete", regOpnd(w.Resize(1)))

		if size > 1 {
			fc.emit("movzb"+amd64.Suffix(size), regOpnd(w.Resize(1)), regOpnd(w))
		}
	default:
		panic(x.Op)
	}

	if !inDst {
		fc.move(t, place(d), regOpnd(w))
	}

	return nil
}

// operand returns v as an operand and keeps its register
// away from scratch use for the current instruction.
func (fc *funContext) operand(v ir.Value) opnd {
	if s, ok := v.(ir.Slot); ok {
		fc.pinStorage(fc.storage(s))
	}

	return fc.value(v)
}

// load puts v of type t into r, extending it to r's size.
func (fc *funContext) load(t tp.Type, r alloc.Register, v ir.Value) {
	src := fc.value(v)

	switch {
	case r.Size == t.Size():
		fc.move(t, regOpnd(r), src)
	case src.Kind == opImm:
		fc.move(t.WithBits(int16(r.Size*8)), regOpnd(r), src)
	default:
		fc.extend(t, r.Size, src, r)
	}
}

// extend sign or zero extends src of type from into r with size bytes.
func (fc *funContext) extend(from tp.Type, size int, src opnd, r alloc.Register) {
	ext := amd64.Extend(from.Size(), size, from.Signed())

	// movl zero extends into the full register
	if ext == "movl" {
		size = 4
	}

	fc.emit(ext, src, regOpnd(r.Resize(size)))
}

// rebind moves register ownership from src to dst.
func (fc *funContext) rebind(src, dst ir.Slot, r alloc.Register) {
	fc.slots[src.ID] = nil
	fc.bind(dst, r)
}
