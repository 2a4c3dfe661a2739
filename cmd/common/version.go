package common

import (
	"fmt"
	"io"
	"runtime"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	ProjectName    = "Trend Breakout Bot"
	ProjectVersion = "1.0.0"
	ProjectRepo    = "github.com/ducminhle1904/trend-breakout-bot"
)

// Set during build via -ldflags "-X .../cmd/common.BuildCommit=..."
var (
	BuildDate   = "unknown"
	BuildCommit = "dev"
)

// VersionInfo contains version and build information
type VersionInfo struct {
	ProjectName  string `json:"project_name"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	BuildCommit  string `json:"build_commit"`
	GoVersion    string `json:"go_version"`
	Architecture string `json:"architecture"`
	Repository   string `json:"repository"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		ProjectName:  ProjectName,
		Version:      ProjectVersion,
		BuildDate:    BuildDate,
		BuildCommit:  BuildCommit,
		GoVersion:    runtime.Version(),
		Architecture: runtime.GOOS + "/" + runtime.GOARCH,
		Repository:   ProjectRepo,
	}
}

// GetFullVersion returns a full version string with build info
func GetFullVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s-%s (%s)", info.Version, info.BuildCommit, info.BuildDate)
}

func IsDevBuild() bool {
	return BuildCommit == "dev"
}

// PrintVersion renders the version table to w
func PrintVersion(w io.Writer, appName string) {
	info := GetVersionInfo()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("VERSION INFORMATION")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Application", appName},
		{"Version", info.Version},
		{"Project", info.ProjectName},
		{"Repository", info.Repository},
		{"Build Date", info.BuildDate},
		{"Build Hash", info.BuildCommit},
		{"Go Version", info.GoVersion},
		{"Platform", info.Architecture},
	})
	t.Render()
}
