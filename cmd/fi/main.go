// Command fi runs Fi source: a file given as an argument, or an
// interactive REPL when invoked with none.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/MicheleFiladelfia/filang/pkg/compiler"
	"github.com/MicheleFiladelfia/filang/pkg/vm"
)

const (
	exitSuccess      = 0
	exitCompileError = 65
	exitRuntimeError = 70
)

func main() {
	if len(os.Args) < 2 {
		runRepl()
		return
	}
	runFile(os.Args[1])
}

func runFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	machine := vm.New(os.Stdout)
	result, err := machine.Interpret(string(data), compiler.Compile)
	switch result {
	case vm.CompileError:
		fmt.Fprint(os.Stderr, err.Error())
		os.Exit(exitCompileError)
	case vm.RuntimeErrorResult:
		fmt.Fprint(os.Stderr, err.Error())
		os.Exit(exitRuntimeError)
	default:
		os.Exit(exitSuccess)
	}
}

// runRepl reads one line at a time and interprets it on a persistent VM:
// globals and interned strings survive across lines, and expression
// statements print their value since Repl mode is on (spec.md §6's REPL
// mode flag).
func runRepl() {
	machine := vm.New(os.Stdout)
	machine.Repl = true

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			if _, err := machine.Interpret(line, compiler.Compile); err != nil {
				fmt.Fprint(os.Stderr, err.Error())
			}
		}
		fmt.Print("> ")
	}
}
