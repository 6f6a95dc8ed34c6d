package version

import (
	"fmt"
	"strings"
)

// Set via -ldflags at build time.
var (
	Version    = "dev"
	Commit     = "unknown"
	BuildTime  = ""
	SourceRepo = "https://github.com/gitmanhimanshu/verdantia"
)

type Info struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildTime  string `json:"build_time,omitempty"`
	SourceRepo string `json:"source_repo"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
}

func Current() Info {
	i := Info{
		Version:    orDefault(Version, "dev"),
		Commit:     orDefault(Commit, "unknown"),
		BuildTime:  strings.TrimSpace(BuildTime),
		SourceRepo: strings.TrimSpace(SourceRepo),
	}
	return i
}

func orDefault(v, d string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return d
	}
	return v
}
