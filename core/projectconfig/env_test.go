package projectconfig

import (
	"os"
	"testing"
)

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DS_ROOT", " /tmp/ds-root ")
	t.Setenv("DS_LOG_LEVEL", "WARN")
	t.Setenv("DS_SHOW_TRACE", "true")
	t.Setenv("DS_ASSUME_YES", "false")
	t.Setenv("DS_POSITIONAL_SCRIPT_TYPES", "true")
	t.Setenv("DS_RUNNER_COMMAND", "/opt/ds")

	environment, err := LoadEnvironment()
	if err != nil {
		t.Fatalf("load environment: %v", err)
	}
	if environment.Root != "/tmp/ds-root" {
		t.Fatalf("unexpected root: %q", environment.Root)
	}

	base := Default()
	base.Consent.AssumeYes = true
	applied := environment.Apply(base)
	if applied.Logging.Level != "warn" || !applied.Logging.ShowTrace {
		t.Fatalf("unexpected logging override: %#v", applied.Logging)
	}
	if applied.Consent.AssumeYes {
		t.Fatalf("expected DS_ASSUME_YES=false to override file value")
	}
	if !applied.Compile.PositionalScriptTypes || applied.Compile.RunnerCommand != "/opt/ds" {
		t.Fatalf("unexpected compile override: %#v", applied.Compile)
	}
}

func TestUnsetEnvironmentKeepsFileValues(t *testing.T) {
	for _, key := range []string{"DS_ROOT", "DS_LOG_LEVEL", "DS_SHOW_TRACE", "DS_ASSUME_YES", "DS_POSITIONAL_SCRIPT_TYPES", "DS_RUNNER_COMMAND"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
	environment, err := LoadEnvironment()
	if err != nil {
		t.Fatalf("load environment: %v", err)
	}
	base := Config{
		Logging: LoggingDefaults{Level: "debug", ShowTrace: true},
		Compile: CompileDefaults{PositionalScriptTypes: true, RunnerCommand: "/bin/ds"},
		Consent: ConsentDefaults{AssumeYes: true},
	}
	if applied := environment.Apply(base); applied != base {
		t.Fatalf("expected unchanged config, got %#v", applied)
	}
}

func TestLoadEnvironmentRejectsBadBool(t *testing.T) {
	t.Setenv("DS_ASSUME_YES", "sometimes")
	if _, err := LoadEnvironment(); err == nil {
		t.Fatalf("expected invalid bool error")
	}
}
