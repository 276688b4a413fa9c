package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/davidahmann/dotscript/core/runner"
)

// runScript is `ds run`. Its stdout belongs to the script, so failures are
// only ever printed to stderr and there is no --json mode.
func runScript(arguments []string) int {
	dsFlags, script, passthrough := splitRunArguments(arguments)
	if hasExplainFlag(dsFlags) {
		return writeExplain("run")
	}
	flagSet := flag.NewFlagSet("run", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var assumeYes bool
	var helpFlag bool
	flagSet.BoolVar(&assumeYes, "yes", false, "run even when the script fails its integrity check")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(dsFlags); err != nil {
		writeFailureText("run", failureText(err.Error()), exitInvalidInput)
		return exitInvalidInput
	}
	if helpFlag {
		printRunUsage()
		return exitOK
	}

	current, err := openSession(assumeYes)
	if err != nil {
		exitCode := exitCodeForError(err, exitInvalidInput)
		writeFailureText("run", failureFrom(err), exitCode)
		return exitCode
	}
	defer current.close()
	if err := current.requireInitialized(); err != nil {
		exitCode := exitCodeForError(err, exitNotInitialized)
		writeFailureText("run", failureFrom(err), exitCode)
		return exitCode
	}

	// The child gets the terminal's interrupt; ds waits for it to exit.
	// A caught signal is reset to its default in the child, an ignored one
	// would be inherited.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)

	result, err := runner.Run(context.Background(), runner.Options{
		Layout:     current.layout,
		ScriptName: script,
		Args:       passthrough,
		Confirmer:  current.confirmer,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Logger:     current.logger,
	})
	if err != nil {
		exitCode := exitCodeForError(err, exitInternalFailure)
		writeFailureText("run", failureFrom(err), exitCode)
		return exitCode
	}
	return result.ExitCode
}

func printRunUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds run [--yes] <script> [args...]")
	fmt.Println("Arguments after the script name are passed to the script unchanged.")
}
