package assetfs

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/jackfish212/assetfs.version=...".
var (
	version   = "dev"
	buildDate = ""
	gitCommit = ""
)

type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String formats the info as one line, e.g. for a version command.
func (v VersionInfo) String() string {
	commit := v.GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if commit != "" {
		commit = " (" + commit + ")"
	}
	s := fmt.Sprintf("assetfs %s%s %s %s", v.Version, commit, v.GoVersion, v.Platform)
	if v.BuildDate != "" {
		s += " built " + v.BuildDate
	}
	return s
}
