package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/davidahmann/dotscript/core/installer"
)

type installOutput struct {
	OK             bool           `json:"ok"`
	Package        string         `json:"package,omitempty"`
	Version        string         `json:"version,omitempty"`
	ManifestPath   string         `json:"manifest_path,omitempty"`
	ManifestDigest string         `json:"manifest_digest,omitempty"`
	Scripts        []string       `json:"scripts,omitempty"`
	Compiled       *compileOutput `json:"compiled,omitempty"`
	failure
}

type uninstallOutput struct {
	OK       bool           `json:"ok"`
	Package  string         `json:"package,omitempty"`
	Removed  []string       `json:"removed,omitempty"`
	Retained []string       `json:"retained,omitempty"`
	Compiled *compileOutput `json:"compiled,omitempty"`
	failure
}

func runInstall(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("install")
	}
	flagSet := flag.NewFlagSet("install", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var assumeYes bool
	var noCompile bool
	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&assumeYes, "yes", false, "answer yes to confirmation prompts")
	flagSet.BoolVar(&noCompile, "no-compile", false, "skip recompiling the script index")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeInstallOutput(jsonOutput, installOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printInstallUsage()
		return exitOK
	}
	if len(flagSet.Args()) != 1 {
		return writeInstallOutput(jsonOutput, installOutput{failure: failureText("usage: ds install .")}, exitInvalidInput)
	}

	current, err := openSession(assumeYes)
	if err != nil {
		return writeInstallOutput(jsonOutput, installOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()
	if err := current.requireInitialized(); err != nil {
		return writeInstallOutput(jsonOutput, installOutput{failure: failureFrom(err)}, exitCodeForError(err, exitNotInitialized))
	}

	result, err := installer.Install(context.Background(), installer.InstallOptions{
		Source:      flagSet.Arg(0),
		Layout:      current.layout,
		Confirmer:   current.confirmer,
		SkipCompile: noCompile,
		Compile:     current.compileOptions(false),
		Logger:      current.logger,
	})
	output := installOutput{
		OK:             err == nil,
		Package:        result.Package.Name,
		Version:        result.Package.Version,
		ManifestPath:   result.ManifestPath,
		ManifestDigest: result.ManifestDigest,
		Scripts:        result.Scripts,
	}
	if result.Compiled != nil {
		compiled := compileOutputFrom(*result.Compiled)
		output.Compiled = &compiled
	}
	if err != nil {
		output.failure = failureFrom(err)
		return writeInstallOutput(jsonOutput, output, exitCodeForError(err, exitInternalFailure))
	}
	return writeInstallOutput(jsonOutput, output, exitOK)
}

func writeInstallOutput(jsonOutput bool, output installOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		if output.ManifestPath != "" {
			fmt.Printf("installed %s %s\n", output.Package, output.Version)
		}
		writeFailureText("install", output.failure, exitCode)
		return exitCode
	}
	fmt.Printf("installed %s %s (%s)\n", output.Package, output.Version, strings.Join(output.Scripts, ", "))
	if output.Compiled != nil {
		fmt.Printf("compiled %d scripts from %d packages\n", len(output.Compiled.Entries), len(output.Compiled.Packages))
	} else {
		fmt.Println("run `ds compile` to index the new scripts")
	}
	return exitCode
}

func runUninstall(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("uninstall")
	}
	flagSet := flag.NewFlagSet("uninstall", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var assumeYes bool
	var noCompile bool
	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&assumeYes, "yes", false, "answer yes to confirmation prompts")
	flagSet.BoolVar(&noCompile, "no-compile", false, "skip recompiling the script index")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeUninstallOutput(jsonOutput, uninstallOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printUninstallUsage()
		return exitOK
	}
	if len(flagSet.Args()) != 1 {
		return writeUninstallOutput(jsonOutput, uninstallOutput{failure: failureText("usage: ds uninstall <package>")}, exitInvalidInput)
	}

	current, err := openSession(assumeYes)
	if err != nil {
		return writeUninstallOutput(jsonOutput, uninstallOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()
	if err := current.requireInitialized(); err != nil {
		return writeUninstallOutput(jsonOutput, uninstallOutput{failure: failureFrom(err)}, exitCodeForError(err, exitNotInitialized))
	}

	result, err := installer.Uninstall(context.Background(), installer.UninstallOptions{
		PackageName: strings.TrimSpace(flagSet.Arg(0)),
		Layout:      current.layout,
		Confirmer:   current.confirmer,
		SkipCompile: noCompile,
		Compile:     current.compileOptions(false),
		Logger:      current.logger,
	})
	output := uninstallOutput{
		OK:       err == nil,
		Package:  result.Package.Name,
		Removed:  result.Removed,
		Retained: result.Retained,
	}
	if result.Compiled != nil {
		compiled := compileOutputFrom(*result.Compiled)
		output.Compiled = &compiled
	}
	if err != nil {
		output.failure = failureFrom(err)
		return writeUninstallOutput(jsonOutput, output, exitCodeForError(err, exitInternalFailure))
	}
	return writeUninstallOutput(jsonOutput, output, exitOK)
}

func writeUninstallOutput(jsonOutput bool, output uninstallOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		writeFailureText("uninstall", output.failure, exitCode)
		return exitCode
	}
	fmt.Printf("uninstalled %s\n", output.Package)
	if len(output.Removed) > 0 {
		fmt.Printf("removed: %s\n", strings.Join(output.Removed, ", "))
	}
	if len(output.Retained) > 0 {
		fmt.Printf("kept (listed by other packages): %s\n", strings.Join(output.Retained, ", "))
	}
	if output.Compiled == nil {
		fmt.Println("run `ds compile` to drop the removed scripts from the index")
	}
	return exitCode
}

func printInstallUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds install [--yes] [--no-compile] . [--json] [--explain]")
	fmt.Println("Run it from the package directory holding package.json and scripts/.")
}

func printUninstallUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds uninstall [--yes] [--no-compile] <package> [--json] [--explain]")
}
