package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/davidahmann/dotscript/core/consent"
	"github.com/davidahmann/dotscript/core/fsx"
	"github.com/davidahmann/dotscript/core/projectconfig"
	"github.com/davidahmann/dotscript/core/shim"
	"go.uber.org/zap"
)

type initOutput struct {
	OK                 bool   `json:"ok"`
	Home               string `json:"home,omitempty"`
	AlreadyInitialized bool   `json:"already_initialized,omitempty"`
	InitTime           string `json:"init_time,omitempty"`
	EntryPoint         string `json:"entry_point,omitempty"`
	failure
}

func runInit(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("init")
	}
	flagSet := flag.NewFlagSet("init", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeInitOutput(jsonOutput, initOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printInitUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeInitOutput(jsonOutput, initOutput{failure: failureText("unexpected positional arguments")}, exitInvalidInput)
	}

	current, err := openSession(false)
	if err != nil {
		return writeInitOutput(jsonOutput, initOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()
	tree := current.layout

	if tree.Initialized() {
		output := initOutput{OK: true, Home: tree.Home(), AlreadyInitialized: true}
		if initTime, err := tree.InitTime(); err == nil {
			output.InitTime = initTime.Format(time.RFC3339)
		}
		if jsonOutput || !consent.IsTerminal(os.Stdin) {
			return writeInitOutput(jsonOutput, output, exitOK)
		}
		prompter := consent.NewPrompter(os.Stdin, os.Stderr)
		repairNow, err := prompter.Confirm("ds is already initialized. Open the repair menu?", false)
		if err != nil || !repairNow {
			return writeInitOutput(jsonOutput, output, exitOK)
		}
		action, err := promptRepairAction(prompter)
		if err != nil {
			return writeInitOutput(jsonOutput, initOutput{failure: failureFrom(err)}, exitInternalFailure)
		}
		if action == "" {
			return writeInitOutput(jsonOutput, output, exitOK)
		}
		repaired, exitCode := runRepairAction(current, action)
		return writeRepairOutput(false, repaired, exitCode)
	}

	now := time.Now()
	err = tree.WithLock(func() error {
		if err := tree.Bootstrap(now); err != nil {
			return err
		}
		if !fsx.Exists(tree.ConfigPath()) {
			encoded, err := projectconfig.Marshal(projectconfig.Default())
			if err != nil {
				return err
			}
			if err := fsx.WriteFileAtomic(tree.ConfigPath(), encoded, 0o600); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return writeInitOutput(jsonOutput, initOutput{Home: tree.Home(), failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure))
	}
	entryPoint, err := shim.WriteEntryPoint(tree.BinDir(), current.runner)
	if err != nil {
		return writeInitOutput(jsonOutput, initOutput{Home: tree.Home(), failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure))
	}
	current.logger.Info("initialized", zap.String("home", tree.Home()))
	return writeInitOutput(jsonOutput, initOutput{
		OK:         true,
		Home:       tree.Home(),
		InitTime:   now.UTC().Format(time.RFC3339),
		EntryPoint: entryPoint,
	}, exitOK)
}

func writeInitOutput(jsonOutput bool, output initOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		writeFailureText("init", output.failure, exitCode)
		return exitCode
	}
	if output.AlreadyInitialized {
		fmt.Printf("ds is already initialized at %s\n", output.Home)
		fmt.Println("run `ds repair` to back up, reset or rebuild it")
		return exitCode
	}
	fmt.Printf("initialized %s\n", output.Home)
	fmt.Printf("add %s to your PATH\n", filepath.Dir(output.EntryPoint))
	return exitCode
}

func printInitUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds init [--json] [--explain]")
}
