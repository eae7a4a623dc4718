package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"minic/interpreter"
	"minic/lexer"
	"minic/parser"
	"minic/token"
	"minic/trace"
	"minic/vm"
)

type replCmd struct {
	interpret bool
	doTrace   bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive minic session" }
func (*replCmd) Usage() string {
	return `repl [-interpret] [-trace]:
  Start an interactive session, reading statements one at a time and
  running each as soon as a complete one has been typed.
`
}

func (cmd *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.interpret, "interpret", false, "evaluate with the tree-walking interpreter instead of compiling to bytecode")
	f.BoolVar(&cmd.doTrace, "trace", false, "print every instruction as it executes (compiled mode only)")
}

func (cmd *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     "/tmp/.minic_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start REPL: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Println("minic — a small C-like imperative language")
	if cmd.interpret {
		fmt.Println("(tree-walking interpreter mode)")
	}

	var buffer strings.Builder
	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return subcommands.ExitSuccess
		}
		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		ready, lexErr := braceBalanced(source)
		if lexErr != nil {
			fmt.Fprintln(os.Stderr, lexErr)
			buffer.Reset()
			continue
		}
		if !ready {
			continue
		}

		cmd.evalOne(source)
		buffer.Reset()
	}
}

func (cmd *replCmd) evalOne(source string) {
	prog, err := parser.Parse(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	if cmd.interpret {
		result, ok, err := interpreter.Eval(prog)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if ok {
			fmt.Println(result)
		}
		return
	}

	code, err := Compile(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	machine := NewVM(code)

	if cmd.doTrace {
		sink := trace.SinkFunc(func(s trace.Step) {
			fmt.Fprintf(os.Stdout, "%4d  %-24s top=%v\n", s.IP, s.Instruction, s.Top)
		})
		got, ok, runErr := trace.Run(machine, sink)
		if runErr != nil {
			fmt.Fprintln(os.Stderr, runErr)
			return
		}
		if ok {
			fmt.Println(got)
		}
		return
	}

	got, ok, runErr := machine.RunToEnd()
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		return
	}
	if ok {
		fmt.Println(got)
	}
}

// braceBalanced reports whether source has no unclosed '{' — the same
// "wait for more input" signal a shell gives on an open block, so a
// REPL user can type a multi-line if/while/for body across several
// lines before it runs.
func braceBalanced(source string) (bool, error) {
	lex := lexer.New(source)
	balance := 0
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return false, err
		}
		switch tok.Kind {
		case token.LBRACE:
			balance++
		case token.RBRACE:
			balance--
		case token.EOF:
			return balance <= 0, nil
		}
	}
}
