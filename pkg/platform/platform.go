// Package platform maps the running OS and CPU architecture onto the naming
// convention used by the release distribution endpoint.
package platform

import (
	"runtime"
	"strings"

	"github.com/tfup/tfup/pkg/failure"
)

// Platform identifies a supported operating system and architecture pair.
type Platform struct {
	OS   string
	Arch string
}

// String formats the pair the way release archive names spell it.
func (p Platform) String() string { return p.OS + "_" + p.Arch }

var osNames = map[string]string{
	"linux":  "linux",
	"darwin": "darwin",
}

// archNames accepts the common synonym pairs reported by uname alongside the
// Go runtime names.
var archNames = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
}

// Normalize maps raw kernel and machine names onto the release naming
// convention. Anything outside the supported set is a hard failure; there is
// no generic fallback.
func Normalize(osName, arch string) (Platform, error) {
	o, ok := osNames[strings.ToLower(osName)]
	if !ok {
		return Platform{}, failure.Newf(failure.Platform, "platform", "unsupported operating system %q", osName)
	}
	a, ok := archNames[strings.ToLower(arch)]
	if !ok {
		return Platform{}, failure.Newf(failure.Platform, "platform", "unsupported architecture %q", arch)
	}
	return Platform{OS: o, Arch: a}, nil
}

// Resolve detects the platform of the running process.
func Resolve() (Platform, error) {
	return Normalize(runtime.GOOS, runtime.GOARCH)
}
