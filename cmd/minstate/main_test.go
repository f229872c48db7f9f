package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionShort(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version output = %q", out)
	}
}

func TestDemo(t *testing.T) {
	out, _, err := execute(t, "demo")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"== type milk",
		"Congrats! You added your first todo!",
		"Todos (2)",
		"  [x] milk",
		"1 clicks",
		"== final state",
		`"name": "eggs"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("demo output missing %q", want)
		}
	}
	if strings.Count(out, "Congrats!") != 1 {
		t.Error("first-todo listener fired more than once")
	}
}

func TestDemoDebugLogsWrites(t *testing.T) {
	_, errOut, err := execute(t, "demo", "--debug")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, "msg=update") || !strings.Contains(errOut, "key=newTodo") {
		t.Errorf("debug log missing writes:\n%s", errOut)
	}
}

func TestDemoConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minstate.yaml")
	content := "name: groceries\ndebug: true\nlog:\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, errOut, err := execute(t, "demo", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, `"state":"groceries"`) {
		t.Errorf("expected JSON logs naming the state:\n%s", errOut)
	}
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minstate.json")
	if err := os.WriteFile(path, []byte(`{"log": {"level": "loud"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, "demo", "--config", path); err == nil {
		t.Error("expected an invalid config to fail")
	}
}
