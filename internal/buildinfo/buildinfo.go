// Package buildinfo reports the version stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/matchdesk/internal/buildinfo.buildVersion=v1.2.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func PrintBuildData(w io.Writer) {
	tmpl := `Build version: %s
Build date: %s
Build commit: %s
`
	fmt.Fprintf(w, tmpl, buildVersion, buildDate, buildCommit)
}
