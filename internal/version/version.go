// Package version provides build information for dmgo
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"time"
)

var (
	// These will be set at build time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Target is the hardware the emulator reproduces
const Target = "DMG-01"

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
	Modified  bool   `json:"modified"`
}

// GetBuildInfo returns build information, filling gaps from the VCS stamp
// the Go toolchain embeds
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.apply(bi.Settings)
	}
	return info
}

func (info *BuildInfo) apply(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
}

// ShortCommit returns the first seven characters of the commit hash
func (info BuildInfo) ShortCommit() string {
	if len(info.GitCommit) > 7 {
		return info.GitCommit[:7]
	}
	return info.GitCommit
}

// GetVersion returns a simple version string
func GetVersion() string {
	return GetBuildInfo().short()
}

func (info BuildInfo) short() string {
	if info.Version != "dev" || info.GitCommit == "unknown" {
		return info.Version
	}
	v := "dev-" + info.ShortCommit()
	if info.Modified {
		v += "+dirty"
	}
	return v
}

// String returns the one line version used in logs and window titles
func (info BuildInfo) String() string {
	s := fmt.Sprintf("dmgo %s (%s)", info.short(), Target)

	if info.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			s += " built " + t.UTC().Format("2006-01-02 15:04")
		} else {
			s += " built " + info.BuildTime
		}
	}

	return s + fmt.Sprintf(" %s %s/%s", info.GoVersion, info.Platform, info.Arch)
}

// GetDetailedVersion returns the one line version of this build
func GetDetailedVersion() string {
	return GetBuildInfo().String()
}

// WriteBuildInfo writes build information as a table
func WriteBuildInfo(w io.Writer) {
	info := GetBuildInfo()

	fmt.Fprintf(w, "dmgo - %s Game Boy emulator\n", Target)
	fmt.Fprintf(w, "Version:     %s\n", info.short())
	fmt.Fprintf(w, "Git Commit:  %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", info.BuildTime)
	fmt.Fprintf(w, "Go Version:  %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", info.Platform, info.Arch)
}
