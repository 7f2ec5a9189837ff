package back

import (
	"math"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/soft/compiler/alloc"
	"github.com/slowlang/soft/compiler/asm/amd64"
	"github.com/slowlang/soft/compiler/ir"
	"github.com/slowlang/soft/compiler/tp"
)

type (
	opnd struct {
		Kind opKind
		Text string

		Reg alloc.Register // for opReg

		// Wide immediate doesn't fit into sign extended 32 bits.
		Wide bool
	}

	opKind int
)

const (
	opReg opKind = iota
	opMem
	opImm
)

func (o opnd) String() string { return o.Text }

func regOpnd(r alloc.Register) opnd {
	var text string

	if r.Class == tp.ClassFloat {
		text = amd64.FloatReg(r.Num)
	} else {
		text = amd64.IntReg(r.Num, r.Size)
	}

	return opnd{Kind: opReg, Text: text, Reg: r}
}

func memOpnd(m alloc.Memory) opnd {
	// stack arguments have negative offsets, above the frame base
	return opnd{Kind: opMem, Text: strconv.Itoa(-m.Offset) + "(%rbp)"}
}

func place(s alloc.Storage) opnd {
	switch s := s.(type) {
	case alloc.Register:
		return regOpnd(s)
	case alloc.Memory:
		return memOpnd(s)
	default:
		panic(s)
	}
}

// resize returns storage s accessed with size bytes.
// Memory is little endian so the low part is at the same address.
func resize(s alloc.Storage, size int) alloc.Storage {
	switch s := s.(type) {
	case alloc.Register:
		return s.Resize(size)
	case alloc.Memory:
		s.Size = size
		return s
	default:
		panic(s)
	}
}

// value renders v as an instruction operand.
// Float constants are interned and addressed relative to rip.
func (fc *funContext) value(v ir.Value) opnd {
	switch v := v.(type) {
	case ir.Constant:
		if v.Type.IsFloat() {
			return opnd{Kind: opMem, Text: fc.p.labels.label(v) + "(%rip)"}
		}

		return opnd{
			Kind: opImm,
			Text: "$" + formatInt(v),
			Wide: v.Type.Size() == 8 && (v.Int < math.MinInt32 || v.Int > math.MaxInt32),
		}
	case ir.Slot:
		return place(fc.storage(v))
	default:
		panic(v)
	}
}

func (fc *funContext) emit(op string, args ...opnd) {
	fc.b = append(fc.b, '\t')
	fc.b = append(fc.b, op...)

	for i, a := range args {
		if i == 0 {
			fc.b = append(fc.b, '\t')
		} else {
			fc.b = append(fc.b, ", "...)
		}

		fc.b = append(fc.b, a.Text...)
	}

	fc.b = append(fc.b, '\n')
}

func (fc *funContext) comment(format string, args ...any) {
	fc.b = append(fc.b, "\t# "...)
	fc.b = hfmt.Appendf(fc.b, format, args...)
	fc.b = append(fc.b, '\n')
}

// move copies src of type t into dst.
func (fc *funContext) move(t tp.Type, dst, src opnd) {
	if dst.Text == src.Text {
		return
	}

	switch {
	case src.Kind == opReg && dst.Kind == opReg && src.Reg.Class != dst.Reg.Class:
		mov := "movq"
		if t.Size() == 4 {
			mov = "movd"
		}

		fc.emit(mov, src, dst)
	case src.Kind == opImm && src.Wide && dst.Kind == opReg:
		fc.emit("movabsq", src, dst)
	case src.Kind == opImm && src.Wide, src.Kind == opMem && dst.Kind == opMem:
		r, restore := fc.scratch(t.Class(), t.Size())
		defer restore()

		fc.move(t, regOpnd(r), src)
		fc.move(t, dst, regOpnd(r))
	default:
		fc.emit(amd64.Mov(t), src, dst)
	}
}

// aluSrc returns v as an arithmetic instruction source.
// Wide immediates are loaded into a scratch register.
func (fc *funContext) aluSrc(t tp.Type, v ir.Value) (opnd, func()) {
	src := fc.value(v)

	if src.Kind != opImm || !src.Wide {
		return src, func() {}
	}

	r, restore := fc.scratch(t.Class(), t.Size())
	fc.move(t, regOpnd(r), src)

	return regOpnd(r), restore
}

// scratch returns a temporary register of class c.
// A free register is taken if there is one.
// Otherwise a register not used by the current instruction is saved
// to a new frame slot and restored by the returned func.
func (fc *funContext) scratch(c tp.Class, size int, avoid ...int) (alloc.Register, func()) {
	ok := func(num int) bool {
		for _, x := range avoid {
			if x == num {
				return false
			}
		}

		for _, r := range fc.pinned {
			if r.Class == c && r.Num == num {
				return false
			}
		}

		return true
	}

	if r, found := fc.a.Take(c, size, ok); found {
		fc.pin(r)

		return r, func() {
			fc.unpin(r)
			fc.a.Release(r)
		}
	}

	n := amd64.NumInt
	if c == tp.ClassFloat {
		n = amd64.NumFloat
	}

	for num := 0; num < n; num++ {
		if !ok(num) {
			continue
		}

		r := alloc.Register{Class: c, Num: num, Size: size}
		full := regOpnd(r.Resize(8))
		save := memOpnd(fc.a.Stack(8))

		mov := "movq"
		if c == tp.ClassFloat {
			mov = "movsd"
		}

		fc.comment("borrow %s", full.Text)
		fc.emit(mov, full, save)
		fc.pin(r)

		return r, func() {
			fc.unpin(r)
			fc.emit(mov, save, full)
		}
	}

	panic("no scratch register")
}

func (fc *funContext) pin(r alloc.Register) {
	fc.pinned = append(fc.pinned, r)
}

func (fc *funContext) unpin(r alloc.Register) {
	for i := len(fc.pinned) - 1; i >= 0; i-- {
		if fc.pinned[i].Same(r) {
			fc.pinned = append(fc.pinned[:i], fc.pinned[i+1:]...)
			return
		}
	}
}
