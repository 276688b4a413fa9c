package main

import (
	"fmt"
	"os"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	setCurrentCorrelationID(newCorrelationID())
	exitCode := runDispatch(arguments)
	setCurrentCorrelationID("")
	return exitCode
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		printUsage()
		return exitOK
	}
	if arguments[1] == "--explain" {
		return writeExplain("ds")
	}

	switch arguments[1] {
	case "init":
		return runInit(arguments[2:])
	case "repair":
		return runRepair(arguments[2:])
	case "compile":
		return runCompile(arguments[2:])
	case "run":
		return runScript(arguments[2:])
	case "install":
		return runInstall(arguments[2:])
	case "uninstall":
		return runUninstall(arguments[2:])
	case "list":
		return runList(arguments[2:])
	case "hash":
		return runHash(arguments[2:])
	case "doctor":
		return runDoctor(arguments[2:])
	case "help", "--help", "-h":
		printUsage()
		return exitOK
	case "version", "--version", "-v":
		if hasExplainFlag(arguments[2:]) {
			return writeExplain("version")
		}
		fmt.Println("ds", version)
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ds init [--json] [--explain]")
	fmt.Println("  ds repair [backup|reset|rebuild-bin|reset-config|rehash|checkhashes] [--yes] [--json] [--explain]")
	fmt.Println("  ds compile [--positional-types] [--json] [--explain]")
	fmt.Println("  ds run [--yes] <script> [args...]")
	fmt.Println("  ds install [--yes] [--no-compile] . [--json] [--explain]")
	fmt.Println("  ds uninstall [--yes] [--no-compile] <package> [--json] [--explain]")
	fmt.Println("  ds list [a] [--json] [--explain]")
	fmt.Println("  ds hash rehash|checkall|check <script> [--json] [--explain]")
	fmt.Println("  ds doctor [--json] [--explain]")
	fmt.Println("  ds version")
}
