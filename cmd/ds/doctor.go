package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/davidahmann/dotscript/core/doctor"
)

type doctorOutput struct {
	OK              bool           `json:"ok"`
	CreatedAt       string         `json:"created_at,omitempty"`
	ProducerVersion string         `json:"producer_version,omitempty"`
	Root            string         `json:"root,omitempty"`
	Status          string         `json:"status,omitempty"`
	NonFixable      bool           `json:"non_fixable,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	FixCommands     []string       `json:"fix_commands,omitempty"`
	Checks          []doctor.Check `json:"checks,omitempty"`
	failure
}

func runDoctor(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("doctor")
	}
	flagSet := flag.NewFlagSet("doctor", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var jsonOutput bool
	var helpFlag bool
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(reorderFlags(arguments)); err != nil {
		return writeDoctorOutput(jsonOutput, doctorOutput{failure: failureText(err.Error())}, exitInvalidInput)
	}
	if helpFlag {
		printDoctorUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeDoctorOutput(jsonOutput, doctorOutput{failure: failureText("unexpected positional arguments")}, exitInvalidInput)
	}

	current, err := openSession(false)
	if err != nil {
		return writeDoctorOutput(jsonOutput, doctorOutput{failure: failureFrom(err)}, exitCodeForError(err, exitInvalidInput))
	}
	defer current.close()

	result := doctor.Run(doctor.Options{
		Layout:          current.layout,
		ProducerVersion: version,
	})
	exitCode := exitOK
	ok := result.Status != "fail"
	if !ok {
		exitCode = exitInternalFailure
	}
	return writeDoctorOutput(jsonOutput, doctorOutput{
		OK:              ok,
		CreatedAt:       result.CreatedAt,
		ProducerVersion: result.ProducerVersion,
		Root:            result.Root,
		Status:          result.Status,
		NonFixable:      result.NonFixable,
		Summary:         result.Summary,
		FixCommands:     result.FixCommands,
		Checks:          result.Checks,
	}, exitCode)
}

func writeDoctorOutput(jsonOutput bool, output doctorOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" {
		writeFailureText("doctor", output.failure, exitCode)
		return exitCode
	}
	fmt.Println(output.Summary)
	for _, check := range output.Checks {
		fmt.Printf("- %s: %s (%s)\n", check.Name, check.Status, check.Message)
		if check.FixCommand != "" {
			fmt.Printf("  fix: %s\n", check.FixCommand)
		}
	}
	return exitCode
}

func printDoctorUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds doctor [--json] [--explain]")
}
