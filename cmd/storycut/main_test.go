package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStylesCommandListsCatalog(t *testing.T) {
	output, err := runCommand(t, "styles")
	if err != nil {
		t.Fatalf("styles: %v", err)
	}
	for _, want := range []string{"oil_painting", "cyberpunk", "healing", "viral", "Default style: oil_painting"} {
		if !strings.Contains(output, want) {
			t.Fatalf("styles output missing %q:\n%s", want, output)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("output should name the target path:\n%s", output)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[gemini]") {
		t.Fatalf("sample config missing gemini section:\n%s", data)
	}

	// A second run without --overwrite must refuse.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestRootShowsHelpWithoutArgs(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test")
	t.Setenv("HOME", t.TempDir())

	output, err := runCommand(t)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	for _, want := range []string{"storyboard", "generate", "render", "status"} {
		if !strings.Contains(output, want) {
			t.Fatalf("help output missing %q:\n%s", want, output)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"My Project":      "My_Project",
		"weird/../name!!": "weirdname",
		"":                "storycut",
		"///":             "storycut",
	}
	for input, want := range cases {
		if got := sanitizeFileName(input); got != want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 10); got != "short" {
		t.Fatalf("truncateText short = %q", got)
	}
	got := truncateText("a very long piece of segment text", 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncateText long = %q", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "(unset)" {
		t.Fatalf("maskSecret empty = %q", got)
	}
	if got := maskSecret("shortkey"); got != "****" {
		t.Fatalf("maskSecret short = %q", got)
	}
	got := maskSecret("AIzaSyExampleExampleKey")
	if !strings.HasPrefix(got, "AIza") || !strings.HasSuffix(got, "eKey") || !strings.Contains(got, "...") {
		t.Fatalf("maskSecret long = %q", got)
	}
}

func TestReferenceMIMEType(t *testing.T) {
	if mime, err := referenceMIMEType("face.PNG"); err != nil || mime != "image/png" {
		t.Fatalf("png: %q, %v", mime, err)
	}
	if mime, err := referenceMIMEType("face.jpeg"); err != nil || mime != "image/jpeg" {
		t.Fatalf("jpeg: %q, %v", mime, err)
	}
	if _, err := referenceMIMEType("face.gif"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
