package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"minic/interpreter"
	"minic/parser"
)

type runCmd struct {
	interpret bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and run a minic source file" }
func (*runCmd) Usage() string {
	return `run [-interpret] <file>:
  Compile the given source file to bytecode and run it on the VM. With
  -interpret, evaluate it with the tree-walking interpreter instead.
`
}

func (cmd *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.interpret, "interpret", false, "evaluate with the tree-walking interpreter instead of compiling to bytecode")
}

func (cmd *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 file not provided\n")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}
	source := string(data)

	if cmd.interpret {
		prog, err := parser.Parse(source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		result, ok, err := interpreter.Eval(prog)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if ok {
			fmt.Println(result)
		}
		return subcommands.ExitSuccess
	}

	code, err := Compile(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	machine := NewVM(code)
	result, ok, err := machine.RunToEnd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if ok {
		fmt.Println(result)
	}
	return subcommands.ExitSuccess
}
