package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/soft/compiler"
	"github.com/slowlang/soft/compiler/format"
)

func main() {
	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print intermediate representation",
		Action:      irAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile syntax tree into x86-64 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, stdout if empty"),
		},
	}

	app := &cli.Command{
		Name:        "softc",
		Description: "softc compiles yaml encoded syntax trees into assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbose,v", "", "tlog verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			irCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbose"))

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	for _, a := range c.Args {
		p, err := compiler.LowerFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "lower %v", a)
		}

		b, err := format.Format(ctx, nil, p)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	var out []byte

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		out = append(out, obj...)
	}

	name := c.String("output")
	if name == "" {
		_, err = os.Stdout.Write(out)
		if err != nil {
			return errors.Wrap(err, "write")
		}

		return nil
	}

	err = os.WriteFile(name, out, 0o644)
	if err != nil {
		return errors.Wrap(err, "write %v", name)
	}

	tlog.SpanFromContext(ctx).Printw("written", "file", name, "size", len(out))

	return nil
}
