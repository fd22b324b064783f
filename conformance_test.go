package brewin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/brewin/internal/testutil"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/evaluator"
	"github.com/thomasrohde/brewin/pkg/runtime"
)

// outcome is what the brewin command would produce for a scenario.
type outcome struct {
	exitCode int
	stdout   string
	stderr   string
	diags    []diagnostics.Diagnostic
}

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, dir := range dirs {
		t.Run(filepath.Base(dir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}

			source, filename, err := testutil.ReadProgramFile(dir, scenario.Cmd)
			if err != nil {
				t.Fatalf("failed to read program file: %v", err)
			}

			pretty := false
			for _, arg := range scenario.Cmd {
				if arg == "--pretty" {
					pretty = true
				}
			}

			var got outcome
			switch cmd := scenario.Cmd[0]; cmd {
			case "run":
				got = runScenario(source, filename, scenario.Stdin, pretty)
			case "check":
				got = checkScenario(source, filename, pretty)
			default:
				t.Skipf("unsupported command: %s", cmd)
			}
			verify(t, scenario, got)
		})
	}
}

func runScenario(source, filename, stdin string, pretty bool) outcome {
	var stdout bytes.Buffer
	rt := runtime.New(
		runtime.WithStdout(&stdout),
		runtime.WithStdin(strings.NewReader(stdin)),
		runtime.WithRunID("test"),
	)
	_, err := rt.Run(context.Background(), source, filename)
	out := outcome{exitCode: runtime.ExitCode(err), stdout: stdout.String()}

	var de *runtime.DiagnosticError
	var re *evaluator.RuntimeError
	switch {
	case errors.As(err, &de):
		out.diags = de.Diagnostics
	case errors.As(err, &re):
		out.diags = []diagnostics.Diagnostic{re.Diagnostic()}
	}
	if out.diags != nil {
		out.stderr = diagnostics.FormatDiagnostics(out.diags, pretty)
	}
	return out
}

func checkScenario(source, filename string, pretty bool) outcome {
	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		return outcome{
			exitCode: runtime.ExitDiagnostics,
			stderr:   diagnostics.FormatDiagnostics(diags, pretty),
			diags:    diags,
		}
	}
	return outcome{exitCode: runtime.ExitOK, stdout: "[]\n"}
}

func verify(t *testing.T, scenario *testutil.Scenario, got outcome) {
	t.Helper()
	want := scenario.Expect

	if got.exitCode != want.ExitCode {
		t.Errorf("exit code: got %d, want %d (stderr: %s)", got.exitCode, want.ExitCode, got.stderr)
	}
	if want.StdoutText != nil && got.stdout != *want.StdoutText {
		t.Errorf("stdout: got %q, want %q", got.stdout, *want.StdoutText)
	}
	if want.StdoutContains != "" && !strings.Contains(got.stdout, want.StdoutContains) {
		t.Errorf("stdout should contain %q, got: %q", want.StdoutContains, got.stdout)
	}
	if want.StderrContains != "" && !strings.Contains(got.stderr, want.StderrContains) {
		t.Errorf("stderr should contain %q, got: %s", want.StderrContains, got.stderr)
	}

	if want.StderrJSONSubset != nil {
		var expectedSubset []map[string]any
		if err := json.Unmarshal(want.StderrJSONSubset, &expectedSubset); err != nil {
			t.Fatalf("failed to parse expected stderr JSON subset: %v", err)
		}
		diagsJSON, _ := json.Marshal(got.diags)
		var actualDiags []any
		if err := json.Unmarshal(diagsJSON, &actualDiags); err != nil {
			t.Fatalf("failed to parse actual diagnostics: %v", err)
		}
		for _, expected := range expectedSubset {
			found := false
			for _, actual := range actualDiags {
				if testutil.IsSubset(expected, actual) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("stderr JSON subset not found: %v\n  got: %s", expected, diagsJSON)
			}
		}
	}
}

func TestScenariosExist(t *testing.T) {
	info, err := os.Stat(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("scenarios directory not found: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("scenarios path is not a directory: %s", testutil.ScenariosDir)
	}
}
