package back

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/soft/compiler/alloc"
	"github.com/slowlang/soft/compiler/asm/amd64"
	"github.com/slowlang/soft/compiler/ir"
	"github.com/slowlang/soft/compiler/tp"
)

type (
	// Compiler generates x86-64 GNU assembly from ir.
	Compiler struct{}

	pkgContext struct {
		*ir.Program

		labels floatLabels
	}

	funContext struct {
		*ir.Func

		p *pkgContext
		a *alloc.Allocator

		// slot id -> storage, nil until bound
		slots []alloc.Storage
		// slot id -> reads left
		reads []int

		// registers used by the current instruction
		pinned []alloc.Register

		b []byte
	}
)

func New() *Compiler { return &Compiler{} }

// CompileProgram appends the program assembly to b.
func CompileProgram(ctx context.Context, b []byte, p *ir.Program) ([]byte, error) {
	return New().CompileProgram(ctx, b, p)
}

func (c *Compiler) CompileProgram(ctx context.Context, b []byte, prog *ir.Program) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "name", prog.Name, "funcs", len(prog.Funcs), "globals", len(prog.Globals))
	defer tr.Finish("err", &err)

	p := &pkgContext{
		Program: prog,
	}

	b = hfmt.Appendf(b, "# program %s\n\n\t.text\n", prog.Name)

	for _, f := range prog.Funcs {
		if !f.Defined {
			tr.Printw("declaration only", "func", f.Name)
			continue
		}

		b = append(b, '\n')

		b, err = c.compileFunc(ctx, b, p, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	b = p.labels.AppendRodata(b)
	b = appendGlobals(b, prog.Globals)

	b = append(b, "\n\t.section\t.note.GNU-stack,\"\",@progbits\n"...)

	return b, nil
}

func (c *Compiler) compileFunc(ctx context.Context, b []byte, p *pkgContext, f *ir.Func) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile func", "name", f.Name, "params", len(f.Params), "code", len(f.Code), "slots", f.Slots)
	defer tr.Finish("err", &err)

	if f.Ret == nil {
		panic("defined function without terminator: " + f.Name)
	}

	fc := &funContext{
		Func:  f,
		p:     p,
		a:     alloc.New(amd64.NumInt, amd64.NumFloat),
		slots: make([]alloc.Storage, f.Slots),
		reads: make([]int, f.Slots),
	}

	fc.countReads()

	fc.params()

	for i, x := range f.Code {
		err = fc.compileInstr(ctx, x)
		if err != nil {
			return nil, errors.Wrap(err, "instr %d", i)
		}

		fc.pinned = fc.pinned[:0]
	}

	err = fc.compileReturn(ctx, f.Ret)
	if err != nil {
		return nil, errors.Wrap(err, "return")
	}

	if tr.If("dump_storage") {
		for id, s := range fc.slots {
			tr.Printw("storage", "slot", id, "storage", s)
		}
	}

	frame := (fc.a.FrameSize() + 15) &^ 15

	b = hfmt.Appendf(b, "\t.globl\t%s\n\t.type\t%s, @function\n%s:\n", f.Name, f.Name, f.Name)
	b = append(b, "\tpushq\t%rbp\n\tmovq\t%rsp, %rbp\n"...)

	if frame != 0 {
		b = hfmt.Appendf(b, "\tsubq\t$%d, %%rsp\n", frame)
	}

	b = append(b, fc.b...)

	if frame != 0 {
		b = append(b, "\tmovq\t%rbp, %rsp\n"...)
	}

	b = append(b, "\tpopq\t%rbp\n\tret\n"...)
	b = hfmt.Appendf(b, "\t.size\t%s, .-%s\n", f.Name, f.Name)

	tr.Printw("compiled", "frame", frame, "free_int", fc.a.Free(tp.ClassInt), "free_float", fc.a.Free(tp.ClassFloat))

	return b, nil
}

// params stores every parameter into its own frame slot.
func (fc *funContext) params() {
	var nint, nfloat int
	off := amd64.StackArgs

	for _, s := range fc.Params {
		size := s.Type.Size()

		m := fc.a.Stack(size)
		fc.bind(s, m)

		var src opnd

		switch {
		case s.Type.IsFloat() && nfloat < len(amd64.FloatArgs):
			src = regOpnd(alloc.Register{Class: tp.ClassFloat, Num: amd64.FloatArgs[nfloat], Size: size})
			nfloat++
		case !s.Type.IsFloat() && nint < len(amd64.IntArgs):
			src = regOpnd(alloc.Register{Class: tp.ClassInt, Num: amd64.IntArgs[nint], Size: size})
			nint++
		default:
			src = memOpnd(alloc.Memory{Offset: -off, Size: size})
			off += size
		}

		fc.move(s.Type, memOpnd(m), src)
	}
}

func (fc *funContext) compileInstr(ctx context.Context, x ir.Instr) (err error) {
	switch x := x.(type) {
	case ir.Alloca:
		fc.bind(x.Dst, fc.a.Stack(x.Type.Size()))
	case ir.Store:
		err = fc.compileStore(x)
	case ir.Convert:
		err = fc.compileConvert(x)
	case ir.BinOp:
		err = fc.compileBinOp(x)
	case ir.UnOp:
		err = fc.compileUnOp(x)
	default:
		panic(x)
	}

	if err != nil {
		return err
	}

	fc.consumed(x)

	return nil
}

func (fc *funContext) compileReturn(ctx context.Context, r *ir.Return) error {
	if r.Value == nil {
		return nil
	}

	t := r.Value.ValueType()

	ret := alloc.Register{Class: tp.ClassInt, Num: amd64.IntRet, Size: t.Size()}
	if t.IsFloat() {
		ret = alloc.Register{Class: tp.ClassFloat, Num: amd64.FloatRet, Size: t.Size()}
	}

	if s, ok := r.Value.(ir.Slot); ok {
		fc.pinStorage(fc.storage(s))
	}

	fc.move(t, regOpnd(ret), fc.value(r.Value))

	return nil
}

func (fc *funContext) bind(s ir.Slot, st alloc.Storage) {
	fc.slots = sliceSet(fc.slots, s.ID, st)
	fc.reads = sliceSet(fc.reads, s.ID, fc.readsOf(s))

	fc.pinStorage(st)
}

func (fc *funContext) readsOf(s ir.Slot) int {
	if s.ID < len(fc.reads) {
		return fc.reads[s.ID]
	}

	return 0
}

func (fc *funContext) storage(s ir.Slot) alloc.Storage {
	if s.ID >= len(fc.slots) || fc.slots[s.ID] == nil {
		panic("unbound slot " + s.String())
	}

	return fc.slots[s.ID]
}

// dst returns the slot storage, allocating it at first write.
func (fc *funContext) dst(s ir.Slot) alloc.Storage {
	if s.ID < len(fc.slots) && fc.slots[s.ID] != nil {
		return fc.slots[s.ID]
	}

	st := fc.a.Alloc(s.Type)
	fc.bind(s, st)

	return st
}

func (fc *funContext) pinStorage(st alloc.Storage) {
	if r, ok := st.(alloc.Register); ok {
		fc.pin(r)
	}
}

// last reports whether the current instruction is the last reader of s.
func (fc *funContext) last(s ir.Slot) bool {
	return fc.readsOf(s) == 1
}

// countReads counts reads of every slot in the function.
func (fc *funContext) countReads() {
	read := func(v ir.Value) {
		if s, ok := v.(ir.Slot); ok {
			fc.reads = sliceSet(fc.reads, s.ID, fc.readsOf(s)+1)
		}
	}

	for _, x := range fc.Code {
		for _, v := range reads(x) {
			read(v)
		}
	}

	read(fc.Ret.Value)
}

// consumed releases registers of slots which are not read anymore.
func (fc *funContext) consumed(x ir.Instr) {
	for _, v := range reads(x) {
		s, ok := v.(ir.Slot)
		if !ok {
			continue
		}

		fc.reads[s.ID]--

		if fc.reads[s.ID] == 0 && fc.slots[s.ID] != nil {
			fc.a.Release(fc.slots[s.ID])
		}
	}

	// written but never read
	if d, ok := dstOf(x); ok && fc.readsOf(d) == 0 && fc.slots[d.ID] != nil {
		fc.a.Release(fc.slots[d.ID])
	}
}

func reads(x ir.Instr) []ir.Value {
	switch x := x.(type) {
	case ir.Alloca:
		return nil
	case ir.Store:
		return []ir.Value{x.Src}
	case ir.Convert:
		return []ir.Value{x.Src}
	case ir.BinOp:
		return []ir.Value{x.L, x.R}
	case ir.UnOp:
		return []ir.Value{x.X}
	default:
		panic(x)
	}
}

func dstOf(x ir.Instr) (ir.Slot, bool) {
	switch x := x.(type) {
	case ir.Convert:
		return x.Dst, true
	case ir.BinOp:
		return x.Dst, true
	case ir.UnOp:
		return x.Dst, true
	default:
		return ir.Slot{}, false
	}
}
