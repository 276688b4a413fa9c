// Package interpreter enumerates the runtimes a script can be dispatched to.
package interpreter

import (
	"fmt"
	"strings"
)

// Type is the interpreter name as written in manifests and the registry.
type Type string

const (
	Python Type = "Python"
	Shell  Type = "Shell"
	Bash   Type = "Bash"
	Fish   Type = "Fish"
	Zsh    Type = "Zsh"
)

var binaries = map[Type]string{
	Python: "python3",
	Shell:  "sh",
	Bash:   "bash",
	Fish:   "fish",
	Zsh:    "zsh",
}

// All returns the supported types in declaration order.
func All() []Type {
	return []Type{Python, Shell, Bash, Fish, Zsh}
}

// Parse accepts the exact type names used in manifests.
func Parse(value string) (Type, error) {
	candidate := Type(strings.TrimSpace(value))
	if _, ok := binaries[candidate]; !ok {
		return "", fmt.Errorf("unknown interpreter type %q", value)
	}
	return candidate, nil
}

// Known reports whether t is a supported interpreter.
func (t Type) Known() bool {
	_, ok := binaries[t]
	return ok
}

// Binary is the executable name looked up on PATH for t.
func (t Type) Binary() (string, bool) {
	binary, ok := binaries[t]
	return binary, ok
}

func (t Type) String() string {
	return string(t)
}
