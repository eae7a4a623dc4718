package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"minic/isa"
)

// emitCmd compiles a source file and prints its disassembly: one line
// per instruction, addressed by index, the same addressing jumps and
// loop backpatching use internally.
type emitCmd struct {
	out string
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "Emit the disassembled bytecode for a source file" }
func (*emitCmd) Usage() string {
	return `emit [-o file] <file>:
  Compile a source file and print its instruction listing. With -o,
  write the listing to a file instead of stdout.
`
}

func (cmd *emitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.out, "o", "", "write the disassembly to this file instead of stdout")
}

func (cmd *emitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	listing := isa.Disassemble(code)
	if cmd.out == "" {
		fmt.Print(listing)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(cmd.out, []byte(listing), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to write disassembly: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
