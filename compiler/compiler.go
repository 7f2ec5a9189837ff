package compiler

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/soft/compiler/ast"
	"github.com/slowlang/soft/compiler/back"
	"github.com/slowlang/soft/compiler/front"
	"github.com/slowlang/soft/compiler/ir"
)

// CompileFile compiles yaml encoded syntax tree file into assembly text.
func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	stmts, err := ast.DecodeFile(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	return Compile(ctx, name, stmts)
}

// LowerFile decodes the file and builds its ir.
func LowerFile(ctx context.Context, name string) (p *ir.Program, err error) {
	stmts, err := ast.DecodeFile(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	return Lower(ctx, name, stmts)
}

func Lower(ctx context.Context, name string, stmts []ast.Stmt) (p *ir.Program, err error) {
	p, err = front.Lower(ctx, name, stmts)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	return p, nil
}

// Compile runs the whole pipeline on a decoded syntax tree.
func Compile(ctx context.Context, name string, stmts []ast.Stmt) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "stmts", len(stmts))
	defer tr.Finish("err", &err)

	p, err := Lower(ctx, name, stmts)
	if err != nil {
		unsupported(tr, err)
		return nil, err
	}

	obj, err = back.CompileProgram(ctx, nil, p)
	if err != nil {
		unsupported(tr, err)
		return nil, errors.Wrap(err, "generate")
	}

	tr.Printw("compiled", "size", len(obj))

	return obj, nil
}

// unsupported logs the compiler location which gave up on the input.
func unsupported(tr tlog.Span, err error) {
	var ue *ir.UnsupportedError
	if !errors.As(err, &ue) {
		return
	}

	tr.Printw("unsupported", "feature", ue.Feature, "where", ue.Where())
}
