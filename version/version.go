// Package version reports the version of slotguard and the VCS metadata the Go toolchain embeds at build time.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// The version fields may be overridden with -ldflags "-X github.com/crytic/slotguard/version.<Name>=<value>", which
// takes precedence over the embedded VCS metadata.
var (
	// Version is the semantic version of slotguard.
	Version = "0.3.0"
	// GitCommit is the commit slotguard was built from.
	GitCommit = ""
	// GitCommitTime is the RFC 3339 time of GitCommit.
	GitCommitTime = ""
	// GitTreeDirty is "true" if the working tree had uncommitted changes at build time.
	GitTreeDirty = ""
)

// Info describes a slotguard build.
type Info struct {
	Version       string `json:"version"`
	GitCommit     string `json:"gitCommit,omitempty"`
	GitCommitTime string `json:"gitCommitTime,omitempty"`
	GitTreeDirty  bool   `json:"gitTreeDirty"`
	GoVersion     string `json:"goVersion"`
}

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	applyBuildSettings(buildInfo.Settings)
}

// applyBuildSettings fills the version fields which were not set through ldflags from the VCS build settings.
func applyBuildSettings(settings []debug.BuildSetting) {
	fields := map[string]*string{
		"vcs.revision": &GitCommit,
		"vcs.time":     &GitCommitTime,
		"vcs.modified": &GitTreeDirty,
	}
	for _, setting := range settings {
		if field, ok := fields[setting.Key]; ok && *field == "" {
			*field = setting.Value
		}
	}
}

// GetInfo returns the information of the running build.
func GetInfo() Info {
	return Info{
		Version:       Version,
		GitCommit:     GitCommit,
		GitCommitTime: GitCommitTime,
		GitTreeDirty:  GitTreeDirty == "true",
		GoVersion:     runtime.Version(),
	}
}

// ShortCommit returns the abbreviated commit hash, suffixed with "-dirty" for builds of a modified tree.
func (i Info) ShortCommit() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit != "" && i.GitTreeDirty {
		commit += "-dirty"
	}
	return commit
}

// Short returns the version with the abbreviated commit as build metadata, e.g. "0.3.0+1a2b3c4".
func (i Info) Short() string {
	if commit := i.ShortCommit(); commit != "" {
		return i.Version + "+" + commit
	}
	return i.Version
}

// String returns the multi-line description printed by the version command.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "slotguard version %s\n", i.Version)
	if commit := i.ShortCommit(); commit != "" {
		fmt.Fprintf(&sb, "  Commit:     %s\n", commit)
	}
	if i.GitCommitTime != "" {
		built := i.GitCommitTime
		if t, err := time.Parse(time.RFC3339, i.GitCommitTime); err == nil {
			built = t.Format(time.DateTime + " MST")
		}
		fmt.Fprintf(&sb, "  Built:      %s\n", built)
	}
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	return sb.String()
}
