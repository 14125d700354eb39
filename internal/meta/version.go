package meta

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Info describes how an eppctl binary was built. The string fields are
// stamped by the linker, see the vars below.
type Info struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	Branch    string `json:"branch"`
	BuildTime string `json:"buildTime"`
	Platform  string `json:"platform"`
	GoVersion string `json:"goVersion"`
}

// These will be filled in using the linker -X flag, e.g.
//
//	go build -ldflags "-X github.com/luma/epp/internal/meta.Version=1.2.0"
var (
	// Version as an arbitrary string
	Version = "dev"

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		Platform:  platform,
	}
}

func (i Info) String() string {
	if i.Build == "" {
		return fmt.Sprintf("eppctl %s (%s, %s)", i.Version, i.Platform, i.GoVersion)
	}
	return fmt.Sprintf("eppctl %s %s@%s (%s, %s)", i.Version, i.Branch, i.Build, i.Platform, i.GoVersion)
}

// Fields renders i for structured logs.
func (i Info) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", i.Version),
		zap.String("build", i.Build),
		zap.String("platform", i.Platform),
	}
}
