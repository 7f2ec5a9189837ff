package front

import (
	"fmt"
	"strings"
)

type (
	ErrorKind int

	// SemanticError is a user facing error found while lowering.
	SemanticError struct {
		Kind ErrorKind
		Name string
		Msg  string
	}

	// Diagnostics are all the errors found, in detection order.
	Diagnostics []error
)

const (
	_ ErrorKind = iota
	Undeclared
	Redefinition
	MissingType
	UntypedParam
	NotStorage
	ReturnMisuse
	MissingReturn
	ConflictingDecl
	DivByZero
	NotConstant
	Misplaced
)

func newError(kind ErrorKind, name, format string, args ...any) *SemanticError {
	return &SemanticError{
		Kind: kind,
		Name: name,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (e *SemanticError) Error() string { return e.Msg }

func (d Diagnostics) Error() string {
	var b strings.Builder

	for i, err := range d {
		if i != 0 {
			b.WriteString("; ")
		}

		b.WriteString(err.Error())
	}

	return b.String()
}

func (d Diagnostics) Unwrap() []error { return d }

func (k ErrorKind) String() string {
	switch k {
	case Undeclared:
		return "undeclared"
	case Redefinition:
		return "redefinition"
	case MissingType:
		return "missing_type"
	case UntypedParam:
		return "untyped_param"
	case NotStorage:
		return "not_storage"
	case ReturnMisuse:
		return "return_misuse"
	case MissingReturn:
		return "missing_return"
	case ConflictingDecl:
		return "conflicting_decl"
	case DivByZero:
		return "div_by_zero"
	case NotConstant:
		return "not_constant"
	case Misplaced:
		return "misplaced"
	default:
		return fmt.Sprintf("kind%d", int(k))
	}
}
