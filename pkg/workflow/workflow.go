// Package workflow drives the top-level decision flow: report version state
// when the tool is present, or resolve, download, and install it when
// absent.
package workflow

import (
	"context"

	"github.com/tfup/tfup/pkg/platform"
	"github.com/tfup/tfup/pkg/probe"
	"github.com/tfup/tfup/pkg/version"
)

// Prober detects an installed binary.
type Prober interface {
	Probe(ctx context.Context) probe.Result
}

// LatestFetcher resolves the latest published version.
type LatestFetcher interface {
	FetchLatest(ctx context.Context) (version.Version, error)
}

// DependencyEnsurer makes the extraction utility available.
type DependencyEnsurer interface {
	Ensure(ctx context.Context, tool string) (string, error)
}

// BinaryInstaller downloads and places the release binary.
type BinaryInstaller interface {
	DownloadAndInstall(ctx context.Context, v version.Version, p platform.Platform) (string, error)
}

// OutcomeKind is the terminal state of a successful run.
type OutcomeKind int

const (
	// OutcomeInstalled means a fresh install completed.
	OutcomeInstalled OutcomeKind = iota
	// OutcomeUpToDate means the installed version matches the latest.
	OutcomeUpToDate
	// OutcomeUpdateAvailable means a newer version is published.
	OutcomeUpdateAvailable
	// OutcomeVersionUnknown means the tool is installed but neither version
	// query strategy produced a parseable version.
	OutcomeVersionUnknown
	// OutcomeStaleCheck means the tool is installed but the latest-version
	// lookup failed. The tool is usable, so this is not fatal.
	OutcomeStaleCheck
)

// Outcome describes how a run ended.
type Outcome struct {
	Kind      OutcomeKind
	Installed version.Version
	Latest    version.Version
	Path      string
}

// Runner wires the components together. Fields are interfaces so every
// failure surface can be exercised in tests.
type Runner struct {
	Prober      Prober
	Checkpoint  LatestFetcher
	Deps        DependencyEnsurer
	Platform    func() (platform.Platform, error)
	Installer   BinaryInstaller
	ExtractTool string
}

// Run executes the state machine. When the tool is already present a failed
// latest-version lookup degrades gracefully; when it is absent every step is
// fatal, since nothing can be installed without it.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	res := r.Prober.Probe(ctx)

	switch res.Status {
	case probe.StatusKnown:
		latest, err := r.Checkpoint.FetchLatest(ctx)
		if err != nil {
			return Outcome{Kind: OutcomeStaleCheck, Installed: res.Version, Path: res.Path}, nil
		}
		if version.Less(res.Version, latest) {
			return Outcome{Kind: OutcomeUpdateAvailable, Installed: res.Version, Latest: latest, Path: res.Path}, nil
		}
		return Outcome{Kind: OutcomeUpToDate, Installed: res.Version, Latest: latest, Path: res.Path}, nil

	case probe.StatusUnknown:
		return Outcome{Kind: OutcomeVersionUnknown, Path: res.Path}, nil
	}

	latest, err := r.Checkpoint.FetchLatest(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if _, err := r.Deps.Ensure(ctx, r.ExtractTool); err != nil {
		return Outcome{}, err
	}

	plat, err := r.Platform()
	if err != nil {
		return Outcome{}, err
	}

	path, err := r.Installer.DownloadAndInstall(ctx, latest, plat)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Kind: OutcomeInstalled, Installed: latest, Path: path}, nil
}
