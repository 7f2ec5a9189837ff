package amd64

import (
	"fmt"

	"github.com/slowlang/soft/compiler/tp"
)

// Integer register pool, in allocation order.
const (
	RAX = iota
	RCX
	RDX
	RSI
	RDI
	R8
	R9
	R10
	R11

	NumInt
)

const (
	NumFloat = 16

	// StackArgs is the offset of the first stack argument from the frame base,
	// past the saved frame pointer and the return address.
	StackArgs = 16
)

var (
	// IntArgs are integer argument registers in ABI order.
	IntArgs = []int{RDI, RSI, RDX, RCX, R8, R9}

	// FloatArgs are float argument registers in ABI order.
	FloatArgs = []int{0, 1, 2, 3, 4, 5, 6, 7}

	// IntRet and FloatRet hold function results.
	IntRet   = RAX
	FloatRet = 0
)

var intNames = [NumInt][4]string{
	{"al", "ax", "eax", "rax"},
	{"cl", "cx", "ecx", "rcx"},
	{"dl", "dx", "edx", "rdx"},
	{"sil", "si", "esi", "rsi"},
	{"dil", "di", "edi", "rdi"},
	{"r8b", "r8w", "r8d", "r8"},
	{"r9b", "r9w", "r9d", "r9"},
	{"r10b", "r10w", "r10d", "r10"},
	{"r11b", "r11w", "r11d", "r11"},
}

// IntReg returns the name of integer register num used with size bytes.
func IntReg(num, size int) string {
	return "%" + intNames[num][sizeIndex(size)]
}

func FloatReg(num int) string {
	if num < 0 || num >= NumFloat {
		panic(num)
	}

	return fmt.Sprintf("%%xmm%d", num)
}

// Suffix is the integer instruction operand size suffix.
func Suffix(size int) string {
	return [...]string{"b", "w", "l", "q"}[sizeIndex(size)]
}

// FloatSuffix is the scalar float instruction suffix: s for single, d for double.
func FloatSuffix(size int) string {
	switch size {
	case 4:
		return "s"
	case 8:
		return "d"
	default:
		panic(size)
	}
}

// Mov returns the move mnemonic for values of type t.
func Mov(t tp.Type) string {
	if t.IsFloat() {
		return "movs" + FloatSuffix(t.Size())
	}

	return "mov" + Suffix(t.Size())
}

// Extend returns the sign or zero extending move from size from to size to.
// It returns movl for zero extension from 32 to 64 bits, since writing
// a 32-bit register clears the upper half.
func Extend(from, to int, signed bool) string {
	if from >= to {
		panic(fmt.Sprintf("extend %d -> %d", from, to))
	}

	switch {
	case from == 4 && signed:
		return "movslq"
	case from == 4:
		return "movl"
	case signed:
		return "movs" + Suffix(from) + Suffix(to)
	default:
		return "movz" + Suffix(from) + Suffix(to)
	}
}

func sizeIndex(size int) int {
	switch size {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		panic(size)
	}
}
