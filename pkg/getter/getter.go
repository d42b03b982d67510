// Package getter downloads a release archive, extracts it, and places the
// binary into a resolved install directory.
package getter

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tfup/tfup/pkg/deps"
	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/failure"
	"github.com/tfup/tfup/pkg/platform"
	"github.com/tfup/tfup/pkg/version"
)

// ReleaseBaseURL is the release distribution root. This is a variable so it
// can be overridden in tests.
var ReleaseBaseURL = "https://releases.hashicorp.com/terraform"

// SystemInstallDir is the system-wide directory tried first during
// placement.
var SystemInstallDir = "/usr/local/bin"

const binaryName = "terraform"

// ExtractTool is the archive-extraction utility the install pipeline shells
// out to; the dependency installer ensures it is present beforehand.
const ExtractTool = "unzip"

// ArchiveURL builds the download URL for a version and platform.
func ArchiveURL(v version.Version, p platform.Platform) string {
	return fmt.Sprintf("%s/%s/%s", ReleaseBaseURL, v, archiveName(v, p))
}

func archiveName(v version.Version, p platform.Platform) string {
	return fmt.Sprintf("%s_%s_%s.zip", binaryName, v, p)
}

// Installer performs the download-extract-place pipeline.
type Installer struct {
	diag *diaglog.Logger
	esc  deps.Escalator
	http *http.Client
	run  func(ctx context.Context, argv []string) ([]byte, error)
}

// New returns an Installer backed by the real process environment.
func New(diag *diaglog.Logger, esc deps.Escalator) *Installer {
	return &Installer{
		diag: diag,
		esc:  esc,
		http: &http.Client{Timeout: 5 * time.Minute},
		run: func(ctx context.Context, argv []string) ([]byte, error) {
			return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
		},
	}
}

// DownloadAndInstall fetches the release archive for the given version and
// platform, extracts it, and places the binary. The temporary working
// directory is removed on every exit path.
func (i *Installer) DownloadAndInstall(ctx context.Context, v version.Version, p platform.Platform) (string, error) {
	tmpDir, err := os.MkdirTemp("", "tfup-")
	if err != nil {
		return "", failure.Newf(failure.Download, "download", "failed to create work directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	archive := filepath.Join(tmpDir, archiveName(v, p))
	if err := i.download(ctx, ArchiveURL(v, p), archive); err != nil {
		return "", err
	}

	binPath, err := i.extract(ctx, archive, tmpDir)
	if err != nil {
		return "", err
	}

	return i.place(ctx, binPath)
}

// extract invokes the extraction utility and then checks for the expected
// binary. The subprocess exit status alone is not trusted: absence of the
// binary after extraction is a failure regardless of what unzip reported.
func (i *Installer) extract(ctx context.Context, archive, destDir string) (string, error) {
	out, err := i.run(ctx, []string{ExtractTool, "-o", archive, "-d", destDir})
	i.diag.RecordOutput("extract", out)
	if err != nil {
		i.diag.Record(diaglog.Error, "extract", err.Error())
	}

	binPath := filepath.Join(destDir, binaryName)
	if fi, serr := os.Stat(binPath); serr != nil || fi.IsDir() {
		return "", failure.Newf(failure.Extract, "extract", "archive did not contain the %s binary", binaryName)
	}
	return binPath, nil
}
