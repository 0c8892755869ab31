// Package version carries the build version reported by --version.
package version

// Version is overridable at build time:
//
//	go build -ldflags "-X nhlstats/internal/version.Version=1.2.3"
var Version = "0.4.0"
