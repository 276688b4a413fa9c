package main

import (
	"fmt"
	"strings"
)

var explanations = map[string]string{
	"ds":        "ds installs packages of personal scripts under ~/.scripts, indexes them with content digests and runs them through the interpreter their package declares.",
	"init":      "Create the ~/.scripts tree, record the initialization time and write the ds entry shim. On an initialized tree, offer repair instead.",
	"repair":    "Back up, reset or rebuild parts of the ~/.scripts tree, or rehash and check script digests.",
	"compile":   "Rebuild the script index and bin shims from every installed package manifest.",
	"run":       "Verify an indexed script against its digest and run it with its interpreter, passing the remaining arguments through.",
	"install":   "Copy the package in the current directory (package.json plus scripts/) into ~/.scripts and recompile.",
	"uninstall": "Remove an installed package's manifest and the scripts no other package lists, then recompile.",
	"list":      "Print the indexed scripts with their interpreter; `a` adds the resolved path and digest.",
	"hash":      "Recompute digests for every indexed script, or check one or all scripts against the index.",
	"doctor":    "Check the ~/.scripts tree, index, digests and shims and print fix commands for what is off.",
	"version":   "Print the ds version.",
}

func hasExplainFlag(arguments []string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == "--explain" {
			return true
		}
	}
	return false
}

func writeExplain(command string) int {
	fmt.Println(explanations[command])
	return exitOK
}
