package version

import (
	"bytes"
	"runtime/debug"
	"strings"
	"testing"
)

func TestShortVersion(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"release", BuildInfo{Version: "1.2.0", GitCommit: "0123456789abcdef"}, "1.2.0"},
		{"dev without vcs", BuildInfo{Version: "dev", GitCommit: "unknown"}, "dev"},
		{"dev with vcs", BuildInfo{Version: "dev", GitCommit: "0123456789abcdef"}, "dev-0123456"},
		{"dirty tree", BuildInfo{Version: "dev", GitCommit: "0123456789abcdef", Modified: true}, "dev-0123456+dirty"},
		{"short hash", BuildInfo{Version: "dev", GitCommit: "abc"}, "dev-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.short(); got != tt.want {
				t.Errorf("short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyKeepsLinkerValues(t *testing.T) {
	info := BuildInfo{GitCommit: "fromldflags", BuildTime: "unknown"}
	info.apply([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "fromvcs"},
		{Key: "vcs.time", Value: "2024-03-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	if info.GitCommit != "fromldflags" {
		t.Errorf("GitCommit = %q, want linker value kept", info.GitCommit)
	}
	if info.BuildTime != "2024-03-01T10:00:00Z" {
		t.Errorf("BuildTime = %q, want vcs time", info.BuildTime)
	}
	if !info.Modified {
		t.Error("Modified not set from vcs.modified")
	}
}

func TestString(t *testing.T) {
	info := BuildInfo{
		Version:   "1.0.0",
		GitCommit: "unknown",
		BuildTime: "2024-03-01T10:00:00Z",
		GoVersion: "go1.23.4",
		Platform:  "linux",
		Arch:      "amd64",
	}

	want := "dmgo 1.0.0 (DMG-01) built 2024-03-01 10:00 go1.23.4 linux/amd64"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestWriteBuildInfo(t *testing.T) {
	var buf bytes.Buffer
	WriteBuildInfo(&buf)

	for _, field := range []string{"Version:", "Git Commit:", "Go Version:", "Platform:"} {
		if !strings.Contains(buf.String(), field) {
			t.Errorf("build info missing %q:\n%s", field, buf.String())
		}
	}
}
