package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config pointing at a throwaway database and the
// given endpoint, and returns its path.
func writeTestConfig(t *testing.T, endpoint string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`worker: w-test
db_path: %s
remote:
  mode: api
  endpoint: %s
  token: test-token
`, filepath.Join(dir, "cwc.db"), endpoint)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// run executes one cwc invocation and returns its combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInitCmd(t *testing.T) {
	// An unreachable endpoint: init never talks to the backend.
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1")

	out, err := run(t, "init", "-c", cfgPath)
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "initialized successfully") {
		t.Errorf("output = %s", out)
	}

	// Re-running is safe.
	if _, err := run(t, "init", "-c", cfgPath); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestOfflineLifecycle(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1")

	out, err := run(t, "start", "cleaning", "bldg-1", "--shift", "s-1", "--unit", "4B", "-c", cfgPath)
	if err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Started cleaning session") || !strings.Contains(out, "bldg-1/4B") {
		t.Errorf("start output = %s", out)
	}
	if !strings.Contains(out, "Offline") {
		t.Errorf("start output should note the session is unsynced: %s", out)
	}

	// A second start of any kind is refused.
	out, err = run(t, "start", "maintenance", "bldg-2", "--shift", "s-1", "-c", cfgPath)
	if err == nil {
		t.Fatalf("second start succeeded:\n%s", out)
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("error = %v", err)
	}

	out, err = run(t, "status", "-c", cfgPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Active session: cleaning") {
		t.Errorf("status output = %s", out)
	}

	out, err = run(t, "complete", "-c", cfgPath)
	if err != nil {
		t.Fatalf("complete: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Completed cleaning session") {
		t.Errorf("complete output = %s", out)
	}

	// Completing again: nothing active.
	if _, err = run(t, "complete", "-c", cfgPath); err == nil {
		t.Error("second complete succeeded with nothing active")
	}

	out, err = run(t, "status", "-c", cfgPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Active session: none") || !strings.Contains(out, "Unsynced sessions: 1") {
		t.Errorf("status output = %s", out)
	}
}

func TestCloseCmd_NoActive(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1")

	out, err := run(t, "close", "-c", cfgPath)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(out, "nothing to close") {
		t.Errorf("output = %s", out)
	}
}

func TestSyncCmd_OfflineThenOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/v1/sessions/") {
			json.NewEncoder(w).Encode(map[string]string{"remoteId": "r-100"})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfgPath := writeTestConfig(t, srv.URL)

	// Create a finished session whose shift is not linked yet.
	if out, err := run(t, "start", "cleaning", "bldg-1", "--shift", "s-1", "-c", cfgPath); err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	if out, err := run(t, "complete", "-c", cfgPath); err != nil {
		t.Fatalf("complete: %v\n%s", err, out)
	}

	// Unlinked shift: the sweep skips, nothing errors.
	out, err := run(t, "sync", "-c", cfgPath)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "1 skipped") {
		t.Errorf("sync output = %s", out)
	}

	if out, err := run(t, "shift-link", "s-1", "srv-77", "-c", cfgPath); err != nil {
		t.Fatalf("shift-link: %v\n%s", err, out)
	}

	out, err = run(t, "sync", "-c", cfgPath)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "1 synced") {
		t.Errorf("sync output = %s", out)
	}

	// Everything delivered.
	out, err = run(t, "sync", "-c", cfgPath)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "Nothing to sync") {
		t.Errorf("sync output = %s", out)
	}
}

func TestShiftEndCmd(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1")

	if out, err := run(t, "start", "maintenance", "bldg-9", "--shift", "s-2", "-c", cfgPath); err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}

	out, err := run(t, "shift-end", "s-2", "-c", cfgPath)
	if err != nil {
		t.Fatalf("shift-end: %v\n%s", err, out)
	}
	if !strings.Contains(out, "auto-closed 1 session") {
		t.Errorf("output = %s", out)
	}

	// Nothing left running.
	out, err = run(t, "shift-end", "s-2", "-c", cfgPath)
	if err != nil {
		t.Fatalf("second shift-end: %v", err)
	}
	if !strings.Contains(out, "no sessions were left running") {
		t.Errorf("output = %s", out)
	}
}

func TestLoginCmd_Stdin(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader("sekrit-token\n"))
	cmd.SetArgs([]string{"login", "--stdin"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("login: %v\n%s", err, buf.String())
	}

	path := filepath.Join(os.Getenv("HOME"), ".crewclock", "credentials")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	if strings.TrimSpace(string(data)) != "sekrit-token" {
		t.Errorf("stored token = %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("credentials mode = %o, want 600", info.Mode().Perm())
	}
}
