package ir

import (
	"github.com/slowlang/soft/compiler/tp"
)

type (
	// Value is either a Constant or a Slot.
	Value interface {
		ValueType() tp.Type

		value()
	}

	// Constant is a compile time known value.
	// Int is live for integer types, Float for float types.
	Constant struct {
		Type  tp.Type
		Int   int64
		Float float64
	}

	// Slot is a virtual register, unique within a function.
	Slot struct {
		Type tp.Type
		ID   int
	}

	Op int

	// Instr is one of Alloca, Store, Convert, BinOp, UnOp.
	Instr interface {
		instr()
	}

	Alloca struct {
		Type tp.Type
		Dst  Slot
	}

	Store struct {
		Src Value
		Dst Slot
	}

	// Convert records the intent to convert Src to Dst.Type.
	Convert struct {
		Src Slot
		Dst Slot
	}

	BinOp struct {
		Op  Op
		L   Value
		R   Value
		Dst Slot
	}

	UnOp struct {
		Op  Op
		X   Value
		Dst Slot
	}

	// Return terminates a function. Value is nil for void functions.
	Return struct {
		Value Value
	}

	Func struct {
		Name   string
		Result tp.Type
		Params []Slot

		Code []Instr
		Ret  *Return

		Defined bool

		// Slots is the number of slot ids used by the function.
		Slots int
	}

	Global struct {
		Name string
		Type tp.Type
		Init Constant
	}

	Program struct {
		Name string

		Funcs   []*Func
		Globals []*Global
	}
)

const (
	Add Op = iota + 1
	Sub
	Mul
	Div

	Neg
	Not
)

func (Constant) value() {}
func (Slot) value()     {}

func (Alloca) instr()  {}
func (Store) instr()   {}
func (Convert) instr() {}
func (BinOp) instr()   {}
func (UnOp) instr()    {}

func (c Constant) ValueType() tp.Type { return c.Type }
func (s Slot) ValueType() tp.Type     { return s.Type }

// TypeOf returns the type of v, Void for nil.
func TypeOf(v Value) tp.Type {
	if v == nil {
		return tp.VoidType
	}

	return v.ValueType()
}

func (f *Func) Append(x Instr) {
	f.Code = append(f.Code, x)
}

func (f *Func) Terminated() bool { return f.Ret != nil }

func (p *Program) Func(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}

	return nil
}

func (op Op) String() string {
	switch op {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	case Neg:
		return "neg"
	case Not:
		return "not"
	default:
		return "op?"
	}
}
