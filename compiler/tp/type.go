package tp

import (
	"fmt"
	"strconv"

	"tlog.app/go/errors"
)

type (
	Kind int8

	// Type is a numeric type: kind and bit width.
	// Void is only valid as a function result.
	Type struct {
		Kind Kind
		Bits int16
	}

	Class int8
)

const (
	Void Kind = iota
	Int
	Uint
	Float
)

const (
	ClassInt Class = iota
	ClassFloat
)

var (
	I8  = Type{Kind: Int, Bits: 8}
	I16 = Type{Kind: Int, Bits: 16}
	I32 = Type{Kind: Int, Bits: 32}
	I64 = Type{Kind: Int, Bits: 64}

	U8  = Type{Kind: Uint, Bits: 8}
	U16 = Type{Kind: Uint, Bits: 16}
	U32 = Type{Kind: Uint, Bits: 32}
	U64 = Type{Kind: Uint, Bits: 64}

	F32 = Type{Kind: Float, Bits: 32}
	F64 = Type{Kind: Float, Bits: 64}

	VoidType = Type{Kind: Void}
)

func (x Type) Size() int {
	if x.Kind == Void {
		panic("size of void")
	}

	return int(x.Bits) / 8
}

// Equal compares kind and bit width.
func (x Type) Equal(y Type) bool {
	return x.Kind == y.Kind && x.Bits == y.Bits
}

func (x Type) Signed() bool { return x.Kind == Int }

func (x Type) IsInt() bool { return x.Kind == Int || x.Kind == Uint }

func (x Type) IsFloat() bool { return x.Kind == Float }

func (x Type) IsVoid() bool { return x.Kind == Void }

// Class is the register class values of the type live in.
func (x Type) Class() Class {
	if x.Kind == Float {
		return ClassFloat
	}

	return ClassInt
}

func (x Type) WithBits(bits int16) Type {
	x.Bits = bits
	return x
}

func (x Type) String() string {
	switch x.Kind {
	case Void:
		return "void"
	case Int:
		return "i" + strconv.Itoa(int(x.Bits))
	case Uint:
		return "u" + strconv.Itoa(int(x.Bits))
	case Float:
		return "f" + strconv.Itoa(int(x.Bits))
	default:
		return fmt.Sprintf("kind%d:%d", x.Kind, x.Bits)
	}
}

func (c Class) String() string {
	switch c {
	case ClassInt:
		return "int"
	case ClassFloat:
		return "float"
	default:
		return fmt.Sprintf("class%d", int(c))
	}
}

// Parse parses type names like i32, u8, f64 and void.
func Parse(name string) (Type, error) {
	if name == "void" {
		return VoidType, nil
	}

	if len(name) < 2 {
		return Type{}, errors.New("bad type name: %q", name)
	}

	var k Kind

	switch name[0] {
	case 'i':
		k = Int
	case 'u':
		k = Uint
	case 'f':
		k = Float
	default:
		return Type{}, errors.New("bad type name: %q", name)
	}

	bits, err := strconv.Atoi(name[1:])
	if err != nil {
		return Type{}, errors.New("bad type name: %q", name)
	}

	switch {
	case k == Float && (bits == 32 || bits == 64):
	case k != Float && (bits == 8 || bits == 16 || bits == 32 || bits == 64):
	default:
		return Type{}, errors.New("unsupported width: %q", name)
	}

	return Type{Kind: k, Bits: int16(bits)}, nil
}

func (x Type) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *Type) UnmarshalText(text []byte) (err error) {
	*x, err = Parse(string(text))
	return err
}
