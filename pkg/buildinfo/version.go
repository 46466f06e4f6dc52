// Package buildinfo reports the procmeta build.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/procmeta/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/procmeta/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/procmeta/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries from `go install ...@version` carry no ldflags; [Resolve] then
// falls back to the module version and VCS settings embedded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the resolved build identity.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Resolve returns the stamped values, filling unstamped ones from the
// embedded build information when it is available.
func Resolve() Info {
	return resolve(debug.ReadBuildInfo())
}

func resolve(bi *debug.BuildInfo, ok bool) Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	if !ok || bi == nil {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

// Template returns the cobra version template.
func Template() string {
	info := Resolve()
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", info.Version, info.Commit, info.Date)
}
