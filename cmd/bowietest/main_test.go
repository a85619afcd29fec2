package main

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// closedPortURL returns a localhost base URL nothing listens on.
func closedPortURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return "http://localhost:" + strconv.Itoa(port)
}

func TestRunUnknownMode(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"bananas"}, &stdout, &stderr)

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if got := stderr.String(); !strings.Contains(got, `unknown mode "bananas"`) {
		t.Errorf("stderr = %q, want unknown-mode diagnostic", got)
	}
	if got := stderr.String(); !strings.Contains(got, "Usage:") {
		t.Errorf("stderr = %q, want usage text", got)
	}
}

func TestRunTooManyArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"test-only", "extra"}, &stdout, &stderr)

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if got := stderr.String(); !strings.Contains(got, "too many arguments") {
		t.Errorf("stderr = %q, want too-many-arguments diagnostic", got)
	}
}

func TestRunUndefinedFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := run([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "missing.toml")

	code := run([]string{"-config", path, "test-only"}, &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := stderr.String(); !strings.Contains(got, "configuration failed") {
		t.Errorf("stderr = %q, want configuration diagnostic", got)
	}
}

func TestRunTestOnlyFailedCheckStillExitsZero(t *testing.T) {
	t.Setenv("BOWIETEST_CHECKER__BASE_URL", closedPortURL(t))
	var stdout, stderr bytes.Buffer

	code := run([]string{"test-only"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, want 0 (test-only reports, it does not gate)", code)
	}
	if got := stdout.String(); !strings.Contains(got, "Some issues found") {
		t.Errorf("stdout = %q, want failure verdict in report", got)
	}
}

func TestRunTestOnlyAllPassing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("BOWIETEST_CHECKER__BASE_URL", srv.URL)
	var stdout, stderr bytes.Buffer

	code := run([]string{"test-only"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if got := stdout.String(); !strings.Contains(got, "all files accessible") {
		t.Errorf("stdout = %q, want success verdict", got)
	}
}

func TestRunCombinedGateBlocksCollector(t *testing.T) {
	t.Setenv("BOWIETEST_CHECKER__BASE_URL", closedPortURL(t))
	var stdout, stderr bytes.Buffer

	// run returning at all proves the collector was never started: in
	// combined mode it would otherwise block serving until a signal.
	code := run(nil, &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1 when the preliminary check fails", code)
	}
	if got := stdout.String(); !strings.Contains(got, "debug-only") {
		t.Errorf("stdout = %q, want the debug-only hint", got)
	}
	if got := stderr.String(); !strings.Contains(got, "not starting the debug log collector") {
		t.Errorf("stderr = %q, want the gate diagnostic", got)
	}
}
