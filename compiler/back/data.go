package back

import (
	"math"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/soft/compiler/ir"
)

type (
	// floatLabels interns float constants into read-only data.
	// Labels are counted per width and deduplicated by bit pattern.
	floatLabels struct {
		f32 map[uint32]string
		f64 map[uint64]string

		list []floatLabel
	}

	floatLabel struct {
		Name string
		Size int
		Bits uint64
		Val  float64
	}
)

func (l *floatLabels) label(c ir.Constant) string {
	if !c.Type.IsFloat() {
		panic(c)
	}

	if c.Type.Size() == 4 {
		bits := math.Float32bits(float32(c.Float))

		if name, ok := l.f32[bits]; ok {
			return name
		}

		if l.f32 == nil {
			l.f32 = make(map[uint32]string)
		}

		name := ".LCF" + strconv.Itoa(len(l.f32))
		l.f32[bits] = name

		l.list = append(l.list, floatLabel{Name: name, Size: 4, Bits: uint64(bits), Val: c.Float})

		return name
	}

	bits := math.Float64bits(c.Float)

	if name, ok := l.f64[bits]; ok {
		return name
	}

	if l.f64 == nil {
		l.f64 = make(map[uint64]string)
	}

	name := ".LCD" + strconv.Itoa(len(l.f64))
	l.f64[bits] = name

	l.list = append(l.list, floatLabel{Name: name, Size: 8, Bits: bits, Val: c.Float})

	return name
}

func (l *floatLabels) AppendRodata(b []byte) []byte {
	if len(l.list) == 0 {
		return b
	}

	b = append(b, "\n\t.section\t.rodata\n"...)

	for _, x := range l.list {
		if x.Size == 4 {
			b = hfmt.Appendf(b, "\t.p2align\t2\n%s:\n\t.long\t%s\t# %s\n", x.Name, hexBits(x.Bits, 4), formatFloat(x.Val, 32))
		} else {
			b = hfmt.Appendf(b, "\t.p2align\t3\n%s:\n\t.quad\t%s\t# %s\n", x.Name, hexBits(x.Bits, 8), formatFloat(x.Val, 64))
		}
	}

	return b
}

func appendGlobals(b []byte, gs []*ir.Global) []byte {
	if len(gs) == 0 {
		return b
	}

	b = append(b, "\n\t.data\n"...)

	for _, g := range gs {
		size := g.Type.Size()

		b = hfmt.Appendf(b, "\t.globl\t%s\n\t.type\t%s, @object\n\t.size\t%s, %d\n", g.Name, g.Name, g.Name, size)
		b = hfmt.Appendf(b, "\t.p2align\t%d\n%s:\n", log2(size), g.Name)

		switch {
		case g.Type.IsFloat() && size == 4:
			b = hfmt.Appendf(b, "\t.long\t%s\t# %s\n", hexBits(uint64(math.Float32bits(float32(g.Init.Float))), 4), formatFloat(g.Init.Float, 32))
		case g.Type.IsFloat():
			b = hfmt.Appendf(b, "\t.quad\t%s\t# %s\n", hexBits(math.Float64bits(g.Init.Float), 8), formatFloat(g.Init.Float, 64))
		default:
			dir := [...]string{1: ".byte", 2: ".value", 4: ".long", 8: ".quad"}[size]

			b = hfmt.Appendf(b, "\t%s\t%s\n", dir, formatInt(g.Init))
		}
	}

	return b
}

// hexBits formats size bytes of bits as a zero padded hex literal.
func hexBits(bits uint64, size int) string {
	h := strconv.FormatUint(bits, 16)

	for len(h) < 2*size {
		h = "0" + h
	}

	return "0x" + h
}

func formatFloat(v float64, bits int) string {
	if bits == 32 {
		v = float64(float32(v))
	}

	return strconv.FormatFloat(v, 'g', -1, bits)
}

func formatInt(c ir.Constant) string {
	if c.Type.Signed() {
		return strconv.FormatInt(c.Int, 10)
	}

	return strconv.FormatUint(uint64(c.Int), 10)
}

func log2(size int) int {
	switch size {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	default:
		return 3
	}
}
