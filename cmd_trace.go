package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"minic/trace"
)

// traceCmd runs a source file on the VM with step tracing turned on,
// printing the instruction about to execute and the stack's top value
// before each step — the file-driven counterpart to repl's -trace flag.
type traceCmd struct{}

func (*traceCmd) Name() string     { return "trace" }
func (*traceCmd) Synopsis() string { return "Run a minic source file with per-instruction tracing" }
func (*traceCmd) Usage() string {
	return `trace <file>:
  Compile and run a source file, printing one line per instruction
  executed.
`
}

func (*traceCmd) SetFlags(f *flag.FlagSet) {}

func (*traceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	code, err := Compile(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	machine := NewVM(code)
	sink := trace.SinkFunc(func(s trace.Step) {
		fmt.Fprintf(os.Stdout, "%4d  %-24s top=%v\n", s.IP, s.Instruction, s.Top)
	})

	result, ok, err := trace.Run(machine, sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if ok {
		fmt.Println(result)
	}
	return subcommands.ExitSuccess
}
