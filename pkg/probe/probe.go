// Package probe detects an installed terraform binary and extracts its
// version through two fallback strategies.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/version"
)

const toolName = "terraform"

// Status is the tri-state outcome of a probe. A binary that is present but
// whose version cannot be determined is distinct from an absent binary,
// because the caller's messaging differs.
type Status int

const (
	StatusAbsent Status = iota
	StatusKnown
	StatusUnknown
)

// Result of probing for an installed binary.
type Result struct {
	Status  Status
	Path    string
	Version version.Version
}

// Prober locates the binary on the search path and queries its version.
type Prober struct {
	diag     *diaglog.Logger
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New returns a Prober using the real executable search path.
func New(diag *diaglog.Logger) *Prober {
	return &Prober{
		diag:     diag,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Probe never fails: absence and an undeterminable version are both ordinary
// outcomes. The structured -json query is tried first; on any miss the
// plain-text banner is parsed as a fallback.
func (p *Prober) Probe(ctx context.Context) Result {
	path, err := p.lookPath(toolName)
	if err != nil {
		return Result{Status: StatusAbsent}
	}

	if v, ok := p.structuredVersion(ctx); ok {
		return Result{Status: StatusKnown, Path: path, Version: v}
	}
	if v, ok := p.bannerVersion(ctx); ok {
		return Result{Status: StatusKnown, Path: path, Version: v}
	}

	p.diag.Record(diaglog.Warning, "probe", fmt.Sprintf("%s found at %s but its version could not be determined", toolName, path))
	return Result{Status: StatusUnknown, Path: path}
}

func (p *Prober) structuredVersion(ctx context.Context) (version.Version, bool) {
	out, err := p.run(ctx, toolName, "version", "-json")
	if err != nil {
		return version.Version{}, false
	}
	var doc struct {
		TerraformVersion string `json:"terraform_version"`
	}
	if err := json.Unmarshal(out, &doc); err != nil || doc.TerraformVersion == "" {
		return version.Version{}, false
	}
	v, err := version.Parse(doc.TerraformVersion)
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}

var bannerRE = regexp.MustCompile(`v(\d+\.\d+\.\d+)`)

func (p *Prober) bannerVersion(ctx context.Context) (version.Version, bool) {
	out, err := p.run(ctx, toolName, "version")
	if err != nil {
		return version.Version{}, false
	}
	first, _, _ := strings.Cut(string(out), "\n")
	m := bannerRE.FindStringSubmatch(first)
	if m == nil {
		return version.Version{}, false
	}
	v, err := version.Parse(m[1])
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}
