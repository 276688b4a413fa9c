package main

import "strings"

// reorderFlags moves flag tokens ahead of positionals so that flag.Parse sees
// them wherever they were typed. Every ds flag is boolean, so a flag never
// consumes the token after it. "--" is kept after the flags so that
// flag.Parse still treats everything behind it as positional.
func reorderFlags(arguments []string) []string {
	if len(arguments) == 0 {
		return arguments
	}
	flags := make([]string, 0, len(arguments))
	positionals := make([]string, 0, len(arguments))
	for index, argument := range arguments {
		if argument == "--" {
			positionals = append(positionals, arguments[index+1:]...)
			return append(append(flags, "--"), positionals...)
		}
		if isFlagToken(argument) {
			flags = append(flags, argument)
			continue
		}
		positionals = append(positionals, argument)
	}
	return append(flags, positionals...)
}

// splitRunArguments separates ds's own flags from the script invocation.
// Parsing stops at the first positional; it and everything after it belong
// to the script, flags included.
func splitRunArguments(arguments []string) (flags []string, script string, passthrough []string) {
	for index, argument := range arguments {
		if argument == "--" {
			if index+1 < len(arguments) {
				return flags, arguments[index+1], arguments[index+2:]
			}
			return flags, "", nil
		}
		if isFlagToken(argument) {
			flags = append(flags, argument)
			continue
		}
		return flags, argument, arguments[index+1:]
	}
	return flags, "", nil
}

func isFlagToken(argument string) bool {
	return len(argument) > 1 && strings.HasPrefix(argument, "-")
}
