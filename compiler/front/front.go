package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/soft/compiler/ast"
	"github.com/slowlang/soft/compiler/format"
	"github.com/slowlang/soft/compiler/ir"
	"github.com/slowlang/soft/compiler/tp"
)

type (
	// Front lowers statement trees into ir.
	Front struct{}

	pkgContext struct {
		*ir.Program

		globals map[string]*ir.Global

		diags Diagnostics
	}

	funContext struct {
		*ir.Func

		vars map[string]ir.Slot
	}
)

func New() *Front { return &Front{} }

// Lower lowers the top level statements into a program.
// If any statement fails, the partial program is returned
// together with Diagnostics listing every error found.
// Functions which failed to lower are left there as declarations.
func Lower(ctx context.Context, name string, stmts []ast.Stmt) (*ir.Program, error) {
	return New().Lower(ctx, name, stmts)
}

func (c *Front) Lower(ctx context.Context, name string, stmts []ast.Stmt) (_ *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: lower program", "name", name, "stmts", len(stmts))
	defer tr.Finish("err", &err)

	p := &pkgContext{
		Program: &ir.Program{Name: name},
		globals: make(map[string]*ir.Global),
	}

	for i, s := range stmts {
		err = c.compileTop(ctx, p, s)
		if err == nil {
			continue
		}

		tr.Printw("diagnostic", "stmt", i, "err", err)

		p.diags = append(p.diags, err)
	}

	if len(p.diags) != 0 {
		return p.Program, p.diags
	}

	return p.Program, nil
}

func (c *Front) compileTop(ctx context.Context, p *pkgContext, s ast.Stmt) error {
	switch s := s.(type) {
	case ast.FuncDecl:
		_, _, err := c.declareFunc(ctx, p, s, false)
		if err != nil {
			return errors.Wrap(err, "func %v", s.Name)
		}

		return nil
	case ast.FuncDef:
		err := c.compileFunc(ctx, p, s)
		if err != nil {
			return errors.Wrap(err, "func %v", s.Decl.Name)
		}

		return nil
	case ast.ExprStmt:
		return c.compileGlobal(ctx, p, s.X)
	case ast.Return:
		return newError(Misplaced, "", "return outside of function")
	default:
		panic(s)
	}
}

func (c *Front) declareFunc(ctx context.Context, p *pkgContext, d ast.FuncDecl, define bool) (f *ir.Func, fc *funContext, err error) {
	f = &ir.Func{
		Name:   d.Name,
		Result: tp.VoidType,
	}

	if d.Result != nil {
		f.Result = *d.Result
	}

	fc = newFunContext(f)

	for _, par := range d.Params {
		if par.Type == nil || par.Type.IsVoid() {
			return nil, nil, newError(UntypedParam, par.Name, "parameter %s has no type", par.Name)
		}

		if _, ok := fc.vars[par.Name]; ok {
			return nil, nil, newError(Redefinition, par.Name, "redefinition of parameter %s", par.Name)
		}

		s := fc.variable(par.Name, *par.Type)
		f.Params = append(f.Params, s)
	}

	prev := p.Func(d.Name)
	if prev == nil {
		p.Funcs = append(p.Funcs, f)

		return f, fc, nil
	}

	if !sameSignature(prev, f) {
		return nil, nil, newError(ConflictingDecl, d.Name, "conflicting declaration of function %s", d.Name)
	}

	if !define {
		return prev, nil, nil
	}

	if prev.Defined {
		return nil, nil, newError(Redefinition, d.Name, "redefinition of function %s", d.Name)
	}

	*prev = *f
	fc.Func = prev

	return prev, fc, nil
}

func (c *Front) compileFunc(ctx context.Context, p *pkgContext, d ast.FuncDef) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower function", "name", d.Decl.Name, "params", len(d.Decl.Params))
	defer tr.Finish("err", &err)

	f, fc, err := c.declareFunc(ctx, p, d.Decl, true)
	if err != nil {
		return err
	}

	f.Defined = true

	defer func() {
		if err == nil {
			return
		}

		// failed function stays a declaration
		f.Defined = false
		f.Code = nil
		f.Ret = nil
	}()

	// statements after the return are checked, but their code is never run
	live := -1

	for i, s := range d.Body {
		if live < 0 && f.Terminated() {
			live = len(f.Code)
		}

		err = c.compileStmt(ctx, fc, s)
		if err != nil {
			return errors.Wrap(err, "stmt %d", i)
		}
	}

	if live >= 0 && live < len(f.Code) {
		tr.Printw("unreachable code dropped", "instrs", len(f.Code)-live)

		f.Code = f.Code[:live]
	}

	if f.Ret == nil {
		if !f.Result.IsVoid() {
			return newError(MissingReturn, f.Name, "non-void function %s does not return a value", f.Name)
		}

		f.Ret = &ir.Return{}
	}

	if tr.If("dump_ir") {
		tr.Printw("lowered", "code", string(format.AppendFunc(nil, f)))
	}

	return nil
}

func (c *Front) compileStmt(ctx context.Context, fc *funContext, s ast.Stmt) error {
	switch s := s.(type) {
	case ast.Return:
		return c.compileReturn(ctx, fc, s)
	case ast.ExprStmt:
		_, err := c.compileExpr(ctx, fc, s.X)
		return err
	case ast.FuncDecl, ast.FuncDef:
		return newError(Misplaced, "", "function declaration inside function body")
	default:
		panic(s)
	}
}

func (c *Front) compileReturn(ctx context.Context, fc *funContext, s ast.Return) error {
	if fc.Terminated() {
		tlog.SpanFromContext(ctx).Printw("return after return dropped")
		return nil
	}

	void := fc.Result.IsVoid()

	switch {
	case void && s.Value != nil:
		return newError(ReturnMisuse, fc.Name, "void function %s returns a value", fc.Name)
	case !void && s.Value == nil:
		return newError(ReturnMisuse, fc.Name, "non-void function %s returns no value", fc.Name)
	}

	if void {
		fc.Ret = &ir.Return{}
		return nil
	}

	v, err := c.compileExpr(ctx, fc, s.Value)
	if err != nil {
		return errors.Wrap(err, "return value")
	}

	fc.Ret = &ir.Return{Value: fc.cast(v, fc.Result)}

	return nil
}

func (c *Front) compileGlobal(ctx context.Context, p *pkgContext, x ast.Expr) (err error) {
	d, ok := x.(ast.VarDecl)
	if !ok {
		return newError(Misplaced, "", "expression outside of function")
	}

	if _, ok := p.globals[d.Name]; ok {
		return newError(Redefinition, d.Name, "redefinition of global %s", d.Name)
	}

	if d.Type == nil && d.Init == nil {
		return newError(MissingType, d.Name, "global %s has neither type nor initializer", d.Name)
	}

	if d.Type != nil && d.Type.IsVoid() {
		return newError(MissingType, d.Name, "global %s has void type", d.Name)
	}

	g := &ir.Global{Name: d.Name}

	if d.Type != nil {
		g.Type = *d.Type
		g.Init = ir.Constant{Type: g.Type}
	}

	if d.Init != nil {
		fc := newFunContext(&ir.Func{Name: d.Name})

		v, err := c.compileExpr(ctx, fc, d.Init)
		if err != nil {
			return errors.Wrap(err, "global %v", d.Name)
		}

		cst, ok := v.(ir.Constant)
		if !ok || len(fc.Code) != 0 {
			return newError(NotConstant, d.Name, "initializer of global %s is not a constant", d.Name)
		}

		if d.Type == nil {
			g.Type = cst.Type
		}

		cst.Cast(g.Type)
		g.Init = cst
	}

	p.globals[d.Name] = g
	p.Globals = append(p.Globals, g)

	tlog.SpanFromContext(ctx).Printw("global", "name", g.Name, "type", g.Type, "init", g.Init)

	return nil
}

func newFunContext(f *ir.Func) *funContext {
	return &funContext{
		Func: f,
		vars: make(map[string]ir.Slot),
	}
}

func (fc *funContext) slot(t tp.Type) ir.Slot {
	s := ir.Slot{Type: t, ID: fc.Slots}
	fc.Slots++

	return s
}

func (fc *funContext) variable(name string, t tp.Type) ir.Slot {
	s := fc.slot(t)

	fc.vars[name] = s

	return s
}

// cast converts v to t. Constants are retyped in place,
// slots get a Convert into a fresh slot.
func (fc *funContext) cast(v ir.Value, t tp.Type) ir.Value {
	if ir.TypeOf(v).Equal(t) {
		return v
	}

	switch v := v.(type) {
	case ir.Constant:
		v.Cast(t)
		return v
	case ir.Slot:
		dst := fc.slot(t)
		fc.Append(ir.Convert{Src: v, Dst: dst})

		return dst
	default:
		panic(v)
	}
}

func sameSignature(a, b *ir.Func) bool {
	if !a.Result.Equal(b.Result) || len(a.Params) != len(b.Params) {
		return false
	}

	for i := range a.Params {
		if !a.Params[i].Type.Equal(b.Params[i].Type) {
			return false
		}
	}

	return true
}
