package main

import (
	"flag"
	"io"
	"reflect"
	"testing"
)

func TestReorderFlags(t *testing.T) {
	got := reorderFlags([]string{".", "--yes", "--json"})
	want := []string{"--yes", "--json", "."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reorder: expected %v got %v", want, got)
	}
	got = reorderFlags([]string{"demo", "--", "--not-a-flag"})
	want = []string{"--", "demo", "--not-a-flag"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reorder with terminator: expected %v got %v", want, got)
	}
	got = reorderFlags([]string{"--json", "demo", "--", "-dashed"})
	want = []string{"--json", "--", "demo", "-dashed"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reorder with flag and terminator: expected %v got %v", want, got)
	}
	if got := reorderFlags(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestReorderedTerminatorKeepsDashedPositionals(t *testing.T) {
	flagSet := flag.NewFlagSet("uninstall", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	jsonOutput := flagSet.Bool("json", false, "")
	if err := flagSet.Parse(reorderFlags([]string{"--", "-odd", "--json"})); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *jsonOutput {
		t.Fatalf("--json after the terminator must stay positional")
	}
	if want := []string{"-odd", "--json"}; !reflect.DeepEqual(flagSet.Args(), want) {
		t.Fatalf("positionals: expected %v got %v", want, flagSet.Args())
	}
}

func TestSplitRunArguments(t *testing.T) {
	cases := []struct {
		name        string
		arguments   []string
		flags       []string
		script      string
		passthrough []string
	}{
		{name: "plain", arguments: []string{"hello.py", "a", "b"}, script: "hello.py", passthrough: []string{"a", "b"}},
		{name: "ds flags first", arguments: []string{"--yes", "hello.py", "--yes"}, flags: []string{"--yes"}, script: "hello.py", passthrough: []string{"--yes"}},
		{name: "terminator", arguments: []string{"--", "-odd.sh", "x"}, script: "-odd.sh", passthrough: []string{"x"}},
		{name: "empty", arguments: nil},
		{name: "flags only", arguments: []string{"--help"}, flags: []string{"--help"}},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			flags, script, passthrough := splitRunArguments(testCase.arguments)
			if len(flags) != len(testCase.flags) || (len(flags) > 0 && !reflect.DeepEqual(flags, testCase.flags)) {
				t.Fatalf("flags: expected %v got %v", testCase.flags, flags)
			}
			if script != testCase.script {
				t.Fatalf("script: expected %q got %q", testCase.script, script)
			}
			if len(passthrough) != len(testCase.passthrough) || (len(passthrough) > 0 && !reflect.DeepEqual(passthrough, testCase.passthrough)) {
				t.Fatalf("passthrough: expected %v got %v", testCase.passthrough, passthrough)
			}
		})
	}
}
