package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/davidahmann/dotscript/core/registry"
)

type listOutput struct {
	OK      bool             `json:"ok"`
	All     bool             `json:"all,omitempty"`
	Scripts []registry.Entry `json:"scripts"`
	failure
}

func runList(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("list")
	}
	flagSet := flag.NewFlagSet("list", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeListOutput(jsonOutput, listOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printListUsage()
		return exitOK
	}
	all := false
	switch positionals := flagSet.Args(); {
	case len(positionals) == 0:
	case len(positionals) == 1 && positionals[0] == "a":
		all = true
	default:
		return writeListOutput(jsonOutput, listOutput{failure: failureText("usage: ds list [a]")}, exitInvalidInput)
	}

	current, err := openSession(false)
	if err != nil {
		return writeListOutput(jsonOutput, listOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()
	if err := current.requireInitialized(); err != nil {
		return writeListOutput(jsonOutput, listOutput{failure: failureFrom(err)}, exitCodeForError(err, exitNotInitialized))
	}

	entries, err := registry.Load(current.layout.IndexPath())
	if err != nil {
		return writeListOutput(jsonOutput, listOutput{All: all, failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeListOutput(jsonOutput, listOutput{OK: true, All: all, Scripts: entries}, exitOK)
}

func writeListOutput(jsonOutput bool, output listOutput, exitCode int) int {
	if jsonOutput {
		if output.Scripts == nil {
			output.Scripts = []registry.Entry{}
		}
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		writeFailureText("list", output.failure, exitCode)
		return exitCode
	}
	if len(output.Scripts) == 0 {
		fmt.Println("no scripts indexed")
		return exitCode
	}
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, entry := range output.Scripts {
		if output.All {
			_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", entry.ScriptName, entry.ResolvedPath, entry.Digest, entry.Interpreter)
			continue
		}
		_, _ = fmt.Fprintf(writer, "%s\t%s\n", entry.ScriptName, entry.Interpreter)
	}
	_ = writer.Flush()
	return exitCode
}

func printListUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds list [a] [--json] [--explain]")
	fmt.Println("With `a`, each line also carries the resolved path and digest.")
}
