package common

import (
	"fmt"
	"runtime"
	"strings"
)

// Build information, set with -ldflags "-X"
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// PV is the version of the running binary
var PV = ProgramVersion{
	Name:       "adstxt-crawler",
	Version:    Version,
	CommitHash: CommitHash,
	BuildTime:  BuildTime,
}

// ProgramVersion describes a build of the program
type ProgramVersion struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
}

// Short returns the one-word version
func (v ProgramVersion) Short() string {
	return fmt.Sprintf("v%s-%s", strings.TrimPrefix(v.Version, "v"), v.CommitHash)
}

// String returns the verbose version
func (v ProgramVersion) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", v.Name, v.Short())
	fmt.Fprintf(&b, "Commit: %s\n", v.CommitHash)
	fmt.Fprintf(&b, "Build Date: %s\n", v.BuildTime)
	fmt.Fprintf(&b, "Go: %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return b.String()
}

