package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/registry"
	"go.uber.org/zap"
)

type hashOutput struct {
	OK         bool                `json:"ok"`
	Action     string              `json:"action,omitempty"`
	Script     string              `json:"script,omitempty"`
	Checked    int                 `json:"checked,omitempty"`
	Changed    []string            `json:"changed,omitempty"`
	Mismatches []registry.Mismatch `json:"mismatches,omitempty"`
	failure
}

func runHash(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("hash")
	}
	flagSet := flag.NewFlagSet("hash", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeHashOutput(jsonOutput, hashOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printHashUsage()
		return exitOK
	}
	positionals := flagSet.Args()
	if len(positionals) == 0 {
		return writeHashOutput(jsonOutput, hashOutput{failure: failureText("missing action: rehash, checkall or check <script>")}, exitInvalidInput)
	}

	action := strings.TrimSpace(positionals[0])
	switch action {
	case "rehash", "checkall":
		if len(positionals) > 1 {
			return writeHashOutput(jsonOutput, hashOutput{Action: action, failure: failureText("unexpected positional arguments")}, exitInvalidInput)
		}
	case "check":
		if len(positionals) != 2 {
			return writeHashOutput(jsonOutput, hashOutput{Action: action, failure: failureText("usage: ds hash check <script>")}, exitInvalidInput)
		}
	default:
		return writeHashOutput(jsonOutput, hashOutput{failure: failureText(fmt.Sprintf("unknown hash action %q", action))}, exitInvalidInput)
	}

	current, err := openSession(false)
	if err != nil {
		return writeHashOutput(jsonOutput, hashOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()
	if err := current.requireInitialized(); err != nil {
		return writeHashOutput(jsonOutput, hashOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitNotInitialized))
	}

	var output hashOutput
	var exitCode int
	switch action {
	case "rehash":
		output, exitCode = rehashScripts(current)
	case "checkall":
		output, exitCode = checkAllScripts(current)
	default:
		output, exitCode = checkOneScript(current, positionals[1])
	}
	return writeHashOutput(jsonOutput, output, exitCode)
}

func rehashScripts(current session) (hashOutput, int) {
	var result registry.RehashResult
	err := current.layout.WithLock(func() error {
		var rehashErr error
		result, rehashErr = registry.Rehash(current.layout.IndexPath())
		return rehashErr
	})
	if err != nil {
		return hashOutput{Action: "rehash", failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
	}
	for _, name := range result.Changed {
		current.logger.Info("digest updated", zap.String("script", name))
	}
	return hashOutput{OK: true, Action: "rehash", Checked: len(result.Entries), Changed: result.Changed}, exitOK
}

func checkAllScripts(current session) (hashOutput, int) {
	entries, err := registry.Load(current.layout.IndexPath())
	if err != nil {
		return hashOutput{Action: "checkall", failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
	}
	mismatches, err := registry.CheckEntries(entries)
	if err != nil {
		return hashOutput{Action: "checkall", failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
	}
	output := hashOutput{OK: len(mismatches) == 0, Action: "checkall", Checked: len(entries), Mismatches: mismatches}
	if len(mismatches) > 0 {
		for _, mismatch := range mismatches {
			current.logger.Warn("script does not match its digest",
				zap.String("script", mismatch.ScriptName),
				zap.String("reason", mismatch.Reason),
			)
		}
		output.failure = failure{
			Error:     fmt.Sprintf("%d of %d scripts failed the hash check", len(mismatches), len(entries)),
			ErrorCode: coreerrors.CodeIntegrityMismatch,
		}
		return output, exitIntegrityMismatch
	}
	return output, exitOK
}

func checkOneScript(current session, name string) (hashOutput, int) {
	mismatch, ok, err := registry.CheckScript(current.layout.IndexPath(), name)
	if err != nil {
		return hashOutput{Action: "check", Script: name, failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
	}
	if !ok {
		return hashOutput{
			Action:     "check",
			Script:     name,
			Checked:    1,
			Mismatches: []registry.Mismatch{mismatch},
			failure: failure{
				Error:     fmt.Sprintf("%s failed the hash check: %s", name, mismatch.Reason),
				ErrorCode: coreerrors.CodeIntegrityMismatch,
			},
		}, exitIntegrityMismatch
	}
	return hashOutput{OK: true, Action: "check", Script: name, Checked: 1}, exitOK
}

func writeHashOutput(jsonOutput bool, output hashOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	for _, mismatch := range output.Mismatches {
		fmt.Printf("- %s: %s (%s)\n", mismatch.ScriptName, mismatch.Reason, mismatch.ResolvedPath)
	}
	if output.Error != "" {
		writeFailureText("hash", output.failure, exitCode)
		return exitCode
	}
	switch output.Action {
	case "rehash":
		fmt.Printf("rehashed %d scripts\n", output.Checked)
		if len(output.Changed) > 0 {
			fmt.Printf("changed: %s\n", strings.Join(output.Changed, ", "))
		}
	case "checkall":
		fmt.Printf("all %d scripts match their digests\n", output.Checked)
	case "check":
		fmt.Printf("%s: ok\n", output.Script)
	}
	return exitCode
}

func printHashUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds hash rehash [--json] [--explain]")
	fmt.Println("  ds hash checkall [--json] [--explain]")
	fmt.Println("  ds hash check <script> [--json] [--explain]")
}
