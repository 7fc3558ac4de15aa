// Package version exposes the trimwatch build version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}

// UserAgent is sent with every request to the controller.
func UserAgent() string {
	return "trimwatch/" + Get()
}
