package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/davidahmann/dotscript/core/compiler"
	"github.com/davidahmann/dotscript/core/registry"
)

type compileOutput struct {
	OK             bool             `json:"ok"`
	IndexPath      string           `json:"index_path,omitempty"`
	Packages       []string         `json:"packages,omitempty"`
	Entries        []registry.Entry `json:"entries,omitempty"`
	Shims          []string         `json:"shims,omitempty"`
	Duplicates     []string         `json:"duplicates,omitempty"`
	ShimCollisions []string         `json:"shim_collisions,omitempty"`
	failure
}

func runCompile(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("compile")
	}
	flagSet := flag.NewFlagSet("compile", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var positional bool
	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&positional, "positional-types", false, "pair scripts[i] with script-types[i] instead of using script-types[0]")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeCompileOutput(jsonOutput, compileOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printCompileUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeCompileOutput(jsonOutput, compileOutput{failure: failureText("unexpected positional arguments")}, exitInvalidInput)
	}

	current, err := openSession(false)
	if err != nil {
		return writeCompileOutput(jsonOutput, compileOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()
	if err := current.requireInitialized(); err != nil {
		return writeCompileOutput(jsonOutput, compileOutput{failure: failureFrom(err)}, exitCodeForError(err, exitNotInitialized))
	}

	result, err := compiler.Compile(context.Background(), current.compileOptions(positional))
	if err != nil {
		return writeCompileOutput(jsonOutput, compileOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure))
	}
	return writeCompileOutput(jsonOutput, compileOutputFrom(result), exitOK)
}

func compileOutputFrom(result compiler.Result) compileOutput {
	return compileOutput{
		OK:             true,
		IndexPath:      result.IndexPath,
		Packages:       result.Packages,
		Entries:        result.Entries,
		Shims:          result.Shims,
		Duplicates:     result.Duplicates,
		ShimCollisions: result.ShimCollisions,
	}
}

func writeCompileOutput(jsonOutput bool, output compileOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		writeFailureText("compile", output.failure, exitCode)
		return exitCode
	}
	fmt.Printf("compiled %d scripts from %d packages into %s\n", len(output.Entries), len(output.Packages), output.IndexPath)
	if len(output.Duplicates) > 0 {
		fmt.Printf("duplicate script names (first package wins): %s\n", strings.Join(output.Duplicates, ", "))
	}
	if len(output.ShimCollisions) > 0 {
		fmt.Printf("no shim for (name already taken, use ds run): %s\n", strings.Join(output.ShimCollisions, ", "))
	}
	return exitCode
}

func printCompileUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds compile [--positional-types] [--json] [--explain]")
}
