package alloc

import (
	"fmt"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/soft/compiler/set"
	"github.com/slowlang/soft/compiler/tp"
)

type (
	// Storage is a physical location of a slot: Register or Memory.
	Storage interface {
		StorageSize() int

		storage()
	}

	// Register is a physical register of Class.
	// Num is its index in the class pool, Size is the width in bytes it's used with.
	Register struct {
		Class tp.Class
		Num   int
		Size  int
	}

	// Memory is a frame slot at Offset bytes below the frame base.
	Memory struct {
		Offset int
		Size   int
	}

	Allocator struct {
		pools [2]pool

		offset int
	}

	pool struct {
		n    int
		free heap.Heap[int]
		busy set.Bitmap
	}
)

func (Register) storage() {}
func (Memory) storage()   {}

func (r Register) StorageSize() int { return r.Size }
func (m Memory) StorageSize() int   { return m.Size }

// Resize returns the same register used with a different width.
func (r Register) Resize(size int) Register {
	r.Size = size
	return r
}

// Same reports whether both are the same physical register.
func (r Register) Same(x Register) bool {
	return r.Class == x.Class && r.Num == x.Num
}

func (r Register) String() string {
	return fmt.Sprintf("%v%d/%d", r.Class, r.Num, r.Size)
}

func (m Memory) String() string {
	return fmt.Sprintf("mem-%d/%d", m.Offset, m.Size)
}

func (r Register) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)
	b = e.AppendString(b, "class")
	b = e.AppendString(b, r.Class.String())
	b = e.AppendKeyInt(b, "num", r.Num)
	b = e.AppendKeyInt(b, "size", r.Size)

	return b
}

func (m Memory) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "offset", m.Offset)
	b = e.AppendKeyInt(b, "size", m.Size)

	return b
}

// New creates an allocator with nint integer and nfloat float registers.
// Registers are handed out in ascending index order.
func New(nint, nfloat int) *Allocator {
	a := &Allocator{}

	a.pools[tp.ClassInt].init(nint)
	a.pools[tp.ClassFloat].init(nfloat)

	return a
}

func (p *pool) init(n int) {
	p.n = n
	p.free = heap.Heap[int]{Less: func(d []int, i, j int) bool { return d[i] < d[j] }}
	p.busy = set.MakeBitmap(n)

	for i := 0; i < n; i++ {
		p.free.Push(i)
	}
}

// Alloc reserves the first free register of the type's class
// or spills to a new frame slot if there is none.
func (a *Allocator) Alloc(t tp.Type) Storage {
	if r, ok := a.Take(t.Class(), t.Size(), nil); ok {
		return r
	}

	m := a.Stack(t.Size())

	tlog.V("alloc").Printw("spill", "type", t, "offset", m.Offset)

	return m
}

// Take reserves the first free register of class c accepted by ok.
// nil ok accepts any register.
func (a *Allocator) Take(c tp.Class, size int, ok func(num int) bool) (r Register, _ bool) {
	p := &a.pools[c]

	var skipped []int

	defer func() {
		for _, num := range skipped {
			p.free.Push(num)
		}
	}()

	for p.free.Len() != 0 {
		num := p.free.Pop()

		if ok != nil && !ok(num) {
			skipped = append(skipped, num)
			continue
		}

		p.busy.Set(num)

		r = Register{Class: c, Num: num, Size: size}

		tlog.V("alloc").Printw("take", "reg", r)

		return r, true
	}

	return r, false
}

// Release frees a register. Memory is never reclaimed.
func (a *Allocator) Release(s Storage) {
	r, ok := s.(Register)
	if !ok {
		return
	}

	p := &a.pools[r.Class]

	if !p.busy.IsSet(r.Num) {
		return
	}

	p.busy.Clear(r.Num)
	p.free.Push(r.Num)

	tlog.V("alloc").Printw("release", "reg", r)
}

// Reserved reports whether the register is in use.
func (a *Allocator) Reserved(r Register) bool {
	return a.pools[r.Class].busy.IsSet(r.Num)
}

// Free returns the number of free registers of class c.
func (a *Allocator) Free(c tp.Class) int {
	return a.pools[c].free.Len()
}

// Stack advances the frame cursor by size bytes and returns the new slot.
func (a *Allocator) Stack(size int) Memory {
	a.offset += size

	return Memory{Offset: a.offset, Size: size}
}

// FrameSize is the number of frame bytes used so far.
func (a *Allocator) FrameSize() int {
	return a.offset
}
