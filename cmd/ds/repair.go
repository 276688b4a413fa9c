package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/davidahmann/dotscript/core/consent"
	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/registry"
	"github.com/davidahmann/dotscript/core/repair"
	"go.uber.org/zap"
)

var repairActions = []string{"backup", "reset", "rebuild-bin", "reset-config", "rehash", "checkhashes"}

var repairMenuLabels = []string{
	"Back up ~/.scripts to ~/.scripts.bak",
	"Reset ~/.scripts (removes every package)",
	"Rebuild bin shims",
	"Reset configuration",
	"Rehash every indexed script",
	"Check script hashes",
}

type repairOutput struct {
	OK         bool                 `json:"ok"`
	Action     string               `json:"action,omitempty"`
	Backup     *repair.BackupResult `json:"backup,omitempty"`
	Changed    []string             `json:"changed,omitempty"`
	Mismatches []registry.Mismatch  `json:"mismatches,omitempty"`
	Message    string               `json:"message,omitempty"`
	failure
}

func runRepair(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("repair")
	}
	flagSet := flag.NewFlagSet("repair", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var assumeYes bool
	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&assumeYes, "yes", false, "answer yes to confirmation prompts")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeRepairOutput(jsonOutput, repairOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printRepairUsage()
		return exitOK
	}
	positionals := flagSet.Args()
	if len(positionals) > 1 {
		return writeRepairOutput(jsonOutput, repairOutput{failure: failureText("unexpected positional arguments")}, exitInvalidInput)
	}
	if len(positionals) == 1 && !isRepairAction(positionals[0]) {
		return writeRepairOutput(jsonOutput, repairOutput{failure: failureText(fmt.Sprintf("unknown repair action %q; expected one of %s", positionals[0], strings.Join(repairActions, ", ")))}, exitInvalidInput)
	}

	current, err := openSession(assumeYes)
	if err != nil {
		return writeRepairOutput(jsonOutput, repairOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()

	action := ""
	if len(positionals) == 1 {
		action = strings.TrimSpace(positionals[0])
	} else {
		action, err = chooseRepairAction()
		if err != nil {
			return writeRepairOutput(jsonOutput, repairOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
		}
		if action == "" {
			return writeRepairOutput(jsonOutput, repairOutput{OK: true, Message: "no repair action chosen"}, exitOK)
		}
	}
	output, exitCode := runRepairAction(current, action)
	return writeRepairOutput(jsonOutput, output, exitCode)
}

func isRepairAction(action string) bool {
	for _, known := range repairActions {
		if strings.TrimSpace(action) == known {
			return true
		}
	}
	return false
}

// chooseRepairAction shows the interactive menu. An empty action means the
// user left the menu without choosing.
func chooseRepairAction() (string, error) {
	if !consent.IsTerminal(os.Stdin) {
		return "", coreerrors.New(
			coreerrors.CategoryInvalidInput,
			coreerrors.CodeInvalidInput,
			"name the action: ds repair "+strings.Join(repairActions, "|"),
			"the repair menu needs an interactive terminal",
		)
	}
	return promptRepairAction(consent.NewPrompter(os.Stdin, os.Stderr))
}

func promptRepairAction(prompter *consent.Prompter) (string, error) {
	choice, err := prompter.Choose("Repair options", repairMenuLabels)
	if err != nil {
		return "", err
	}
	if choice < 0 || choice >= len(repairActions) {
		return "", nil
	}
	return repairActions[choice], nil
}

func runRepairAction(current session, action string) (repairOutput, int) {
	tree := current.layout
	switch action {
	case "backup":
		var result repair.BackupResult
		err := tree.WithLock(func() error {
			var backupErr error
			result, backupErr = repair.Backup(tree)
			return backupErr
		})
		if err != nil {
			return repairOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
		}
		current.logger.Info("backup written", zap.String("path", result.Path), zap.Int("files", result.Files))
		return repairOutput{OK: true, Action: action, Backup: &result, Message: fmt.Sprintf("backed up %d files to %s", result.Files, result.Path)}, exitOK
	case "reset":
		approved, err := current.confirmer.Confirm(fmt.Sprintf("Remove everything under %s and start over?", tree.Home()), false)
		if err != nil {
			return repairOutput{Action: action, failure: failureFrom(err)}, exitInternalFailure
		}
		if !approved {
			declined := coreerrors.New(coreerrors.CategoryApprovalRequired, coreerrors.CodeDeclined, "", "reset declined")
			return repairOutput{Action: action, failure: failureFrom(declined)}, exitDeclined
		}
		if err := repair.Reset(tree, time.Now()); err != nil {
			return repairOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
		}
		if err := repair.RebuildBin(tree, current.runner); err != nil {
			return repairOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
		}
		current.logger.Info("tree reset", zap.String("home", tree.Home()))
		return repairOutput{OK: true, Action: action, Message: fmt.Sprintf("reset %s", tree.Home())}, exitOK
	}

	if err := current.requireInitialized(); err != nil {
		return repairOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitNotInitialized)
	}
	switch action {
	case "rebuild-bin":
		if err := tree.WithLock(func() error { return repair.RebuildBin(tree, current.runner) }); err != nil {
			return repairOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
		}
		return repairOutput{OK: true, Action: action, Message: "bin rebuilt; run `ds compile` to restore script shims"}, exitOK
	case "reset-config":
		if err := tree.WithLock(func() error { return repair.ResetConfig(tree) }); err != nil {
			return repairOutput{Action: action, failure: failureFrom(err)}, exitCodeForError(err, exitInternalFailure)
		}
		return repairOutput{OK: true, Action: action, Message: fmt.Sprintf("emptied %s", tree.ConfigDir())}, exitOK
	case "rehash":
		hashed, exitCode := rehashScripts(current)
		return repairOutput{OK: hashed.OK, Action: action, Changed: hashed.Changed, Message: fmt.Sprintf("rehashed %d scripts", hashed.Checked), failure: hashed.failure}, exitCode
	case "checkhashes":
		checked, exitCode := checkAllScripts(current)
		return repairOutput{OK: checked.OK, Action: action, Mismatches: checked.Mismatches, Message: fmt.Sprintf("all %d scripts match their digests", checked.Checked), failure: checked.failure}, exitCode
	default:
		return repairOutput{failure: failureText(fmt.Sprintf("unknown repair action %q; expected one of %s", action, strings.Join(repairActions, ", ")))}, exitInvalidInput
	}
}

func writeRepairOutput(jsonOutput bool, output repairOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	for _, mismatch := range output.Mismatches {
		fmt.Printf("- %s: %s (%s)\n", mismatch.ScriptName, mismatch.Reason, mismatch.ResolvedPath)
	}
	if output.Error != "" {
		writeFailureText("repair", output.failure, exitCode)
		return exitCode
	}
	if output.Message != "" {
		fmt.Println(output.Message)
	}
	if len(output.Changed) > 0 {
		fmt.Printf("changed: %s\n", strings.Join(output.Changed, ", "))
	}
	return exitCode
}

func printRepairUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds repair [--yes] [--json] [--explain]")
	fmt.Println("  ds repair backup|reset|rebuild-bin|reset-config|rehash|checkhashes [--yes] [--json] [--explain]")
}
