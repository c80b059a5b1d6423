package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with args and returns captured stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
client:
  api_base: http://monitor:9999
  ws_base: ws://monitor:9999
  poll:
    interval: 7s
`)
	out, err := execute(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, want := range []string{
		"Config is valid!",
		"http://monitor:9999/status/",
		"ws://monitor:9999/socket-status",
		"pushing",
		"7s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate_ForcePollReportsPolling(t *testing.T) {
	path := writeConfig(t, "client:\n  force_poll: true\n")
	out, err := execute(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Transport:     polling") {
		t.Errorf("output:\n%s", out)
	}
}

func TestValidate_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "client:\n  api_base: ftp://nope\n")
	if _, err := execute(t, "validate", "-c", path); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestOnce_PrintsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("service A is down")) //nolint:errcheck
	}))
	defer srv.Close()

	path := writeConfig(t, fmt.Sprintf("client:\n  api_base: %s\n  log_level: error\n", srv.URL))
	out, err := execute(t, "once", "-c", path, "--metrics=true")
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	if !strings.Contains(out, "[error] service A is down") {
		t.Errorf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, `statuswatch_renders_total{class="error"} 1`) {
		t.Errorf("missing metrics dump:\n%s", out)
	}
}

func TestOnce_FailedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	path := writeConfig(t, fmt.Sprintf("client:\n  api_base: %s\n  log_level: error\n", srv.URL))
	out, err := execute(t, "once", "-c", path, "--metrics=false")
	if err == nil {
		t.Fatal("expected error for failed fetch")
	}
	if !strings.Contains(out, "Error fetching status from monitor app") {
		t.Errorf("missing error line:\n%s", out)
	}
	if strings.Contains(out, "boom") {
		t.Errorf("server body leaked into output:\n%s", out)
	}
}

func TestOnce_ErrorTextFromServerSucceeds(t *testing.T) {
	// A 200 whose body matches the fixed error text is still a completed fetch.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Error fetching status from monitor app")) //nolint:errcheck
	}))
	defer srv.Close()

	path := writeConfig(t, fmt.Sprintf("client:\n  api_base: %s\n  log_level: error\n", srv.URL))
	out, err := execute(t, "once", "-c", path, "--metrics=false")
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	if !strings.Contains(out, "Error fetching status from monitor app") {
		t.Errorf("missing status line:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "statuswatch dev") {
		t.Errorf("output: %q", out)
	}
}
