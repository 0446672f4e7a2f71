package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "cwc dev") {
		t.Errorf("expected output to contain 'cwc dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"start", "complete", "close", "shift-end", "sync", "daemon", "status", "login"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q subcommand", sub)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		minutes float64
		want    string
	}{
		{0, "0m"},
		{47.3, "47m"},
		{60, "1h00m"},
		{125, "2h05m"},
	}
	for _, tc := range cases {
		if got := formatMinutes(tc.minutes); got != tc.want {
			t.Errorf("formatMinutes(%v) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestDescribeLocation(t *testing.T) {
	if got := describeLocation("bldg-1", ""); got != "bldg-1" {
		t.Errorf("got %q", got)
	}
	if got := describeLocation("bldg-1", "4B"); got != "bldg-1/4B" {
		t.Errorf("got %q", got)
	}
}
