package ir

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/soft/compiler/tp"
)

func IntConst(t tp.Type, v int64) Constant {
	return Constant{Type: t, Int: Wrap(v, t)}
}

func FloatConst(t tp.Type, v float64) Constant {
	return Constant{Type: t, Float: v}
}

// Cast retypes c in place.
// Integer payloads are wrapped to the new width and signedness,
// integer to float and back converts the payload.
func (c *Constant) Cast(t tp.Type) {
	if c.Type.Equal(t) {
		return
	}

	switch {
	case c.Type.IsFloat() && !t.IsFloat():
		if t.Kind == tp.Uint && c.Float >= 1<<63 {
			c.Int = int64(uint64(c.Float))
		} else {
			c.Int = int64(c.Float)
		}

		c.Float = 0
	case !c.Type.IsFloat() && t.IsFloat():
		if c.Type.Kind == tp.Uint {
			c.Float = float64(uint64(c.Int))
		} else {
			c.Float = float64(c.Int)
		}

		c.Int = 0
	}

	if t.IsInt() {
		c.Int = Wrap(c.Int, t)
	}

	c.Type = t
}

// Int64 returns the payload as an integer.
func (c Constant) Int64() int64 {
	if c.Type.IsFloat() {
		return int64(c.Float)
	}

	return c.Int
}

// Float64 returns the payload as a float.
func (c Constant) Float64() float64 {
	if !c.Type.IsFloat() {
		if c.Type.Kind == tp.Uint {
			return float64(uint64(c.Int))
		}

		return float64(c.Int)
	}

	return c.Float
}

// Wrap truncates v to the width of t and extends it back by t's signedness.
func Wrap(v int64, t tp.Type) int64 {
	if t.Bits <= 0 || t.Bits >= 64 {
		return v
	}

	sh := 64 - uint(t.Bits)

	if t.Signed() {
		return v << sh >> sh
	}

	return int64(uint64(v) << sh >> sh)
}

func (c Constant) String() string {
	var v string

	switch {
	case c.Type.IsFloat():
		v = strconv.FormatFloat(c.Float, 'g', -1, 64)
	case c.Type.Kind == tp.Uint:
		v = strconv.FormatUint(uint64(c.Int), 10)
	default:
		v = strconv.FormatInt(c.Int, 10)
	}

	return v + ":" + c.Type.String()
}

func (s Slot) String() string {
	return "%" + strconv.Itoa(s.ID)
}

func (c Constant) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendString(b, "type")
	b = e.AppendString(b, c.Type.String())

	if c.Type.IsFloat() {
		b = e.AppendString(b, "float")
		b = e.AppendFloat(b, c.Float)
	} else {
		b = e.AppendKeyInt64(b, "int", c.Int)
	}

	return b
}

func (s Slot) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "id", s.ID)
	b = e.AppendString(b, "type")
	b = e.AppendString(b, s.Type.String())

	return b
}
