package getter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/failure"
	"github.com/tfup/tfup/pkg/pathenv"
)

// UserInstallDir resolves the user-scoped fallback directory, honoring the
// TFUP_BIN_DIR override.
func UserInstallDir() (string, error) {
	if envBin := os.Getenv("TFUP_BIN_DIR"); envBin != "" {
		return filepath.Abs(envBin)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine install directory")
	}
	return filepath.Join(home, ".local", "bin"), nil
}

// place tries each install target in order: the system directory when
// directly writable, then an elevated move, then the user-scoped fallback.
// Each attempt's failure is logged and the next fallback tried; only
// exhausting all of them is terminal.
func (i *Installer) place(ctx context.Context, src string) (string, error) {
	if i.dirWritable(SystemInstallDir) {
		path, err := moveBinary(src, SystemInstallDir)
		if err == nil {
			return i.finish(path)
		}
		i.diag.Record(diaglog.Warning, "place", err.Error())
	}

	if i.esc.CanEscalate() {
		path, err := i.placeElevated(ctx, src)
		if err == nil {
			return i.finish(path)
		}
		i.diag.Record(diaglog.Warning, "place", err.Error())
	}

	userDir, err := UserInstallDir()
	if err == nil {
		var path string
		path, err = moveBinary(src, userDir)
		if err == nil {
			return i.finish(path)
		}
	}
	i.diag.Record(diaglog.Error, "place", err.Error())
	return "", failure.Newf(failure.Placement, "place", "no install location accepted the binary")
}

// finish marks the binary executable and extends the session search path
// when the chosen directory is not already on it.
func (i *Installer) finish(path string) (string, error) {
	if err := os.Chmod(path, 0o755); err != nil {
		i.diag.Record(diaglog.Error, "place", err.Error())
		return "", failure.New(failure.Placement, "place", errors.Wrap(err, "failed to mark binary executable"))
	}
	dir := filepath.Dir(path)
	if pathenv.Extend(dir) {
		log.WithField("op", "place").Warnf("%s is not on your PATH; extended for this session only", dir)
		log.WithField("op", "place").Warn(pathenv.PermanenceHint(dir))
	}
	return path, nil
}

// placeElevated moves the binary into the system directory through the
// escalation mechanism, then verifies the result independently of the
// subprocess exit status.
func (i *Installer) placeElevated(ctx context.Context, src string) (string, error) {
	target := filepath.Join(SystemInstallDir, binaryName)

	for _, argv := range [][]string{
		{"mv", src, target},
		{"chmod", "0755", target},
	} {
		argv = i.esc.Wrap(argv)
		out, err := i.run(ctx, argv)
		i.diag.RecordOutput("place", out)
		if err != nil {
			i.diag.Record(diaglog.Warning, "place", strings.Join(argv, " ")+": "+err.Error())
		}
	}

	if fi, err := os.Stat(target); err != nil || fi.IsDir() {
		return "", errors.Errorf("elevated move did not produce %s", target)
	}
	return target, nil
}

// dirWritable reports whether dir exists and accepts new files, probed by
// actually creating one rather than by inspecting permission bits.
func (i *Installer) dirWritable(dir string) bool {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return false
	}
	probe, err := os.CreateTemp(dir, ".tfup-probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}

// moveBinary copies src into targetDir through a temporary file and an
// atomic rename, then verifies the result exists.
func moveBinary(src, targetDir string) (string, error) {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create install directory")
	}

	targetPath := filepath.Join(targetDir, binaryName)

	source, err := os.Open(src)
	if err != nil {
		return "", errors.Wrap(err, "failed to open extracted binary")
	}
	defer source.Close()

	tmpFile, err := os.CreateTemp(targetDir, "."+binaryName+"-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, source); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to copy binary")
	}
	if err := tmpFile.Chmod(0o755); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to set permissions")
	}
	if err := tmpFile.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close temporary file")
	}

	if err := os.Rename(tmpPath, targetPath); err != nil {
		return "", errors.Wrap(err, "failed to install binary")
	}

	if _, err := os.Stat(targetPath); err != nil {
		return "", errors.Wrap(err, "binary missing after install")
	}

	success = true
	return targetPath, nil
}
