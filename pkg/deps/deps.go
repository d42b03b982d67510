// Package deps ensures the archive-extraction utility is present, installing
// it through the system package manager with privilege escalation when
// needed.
package deps

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/failure"
	"github.com/tfup/tfup/pkg/pathenv"
)

// Escalator is the privilege-escalation capability injected into installers,
// so the mechanism is substitutable in tests.
type Escalator interface {
	// CanEscalate reports whether an escalation mechanism is available.
	CanEscalate() bool
	// Wrap prefixes argv with the escalation command.
	Wrap(argv []string) []string
}

// SudoEscalator escalates through sudo when it is present on the search path.
type SudoEscalator struct{}

func (SudoEscalator) CanEscalate() bool {
	_, err := exec.LookPath("sudo")
	return err == nil
}

func (SudoEscalator) Wrap(argv []string) []string {
	return append([]string{"sudo"}, argv...)
}

// manager describes one supported package manager. The first one found on
// the search path wins.
type manager struct {
	name        string
	installArgs []string
}

var managers = []manager{
	{"apt-get", []string{"install", "-y"}},
	{"dnf", []string{"install", "-y"}},
	{"yum", []string{"install", "-y"}},
	{"zypper", []string{"install", "-y"}},
	{"pacman", []string{"-S", "--noconfirm"}},
	{"apk", []string{"add"}},
	{"brew", []string{"install"}},
}

// extraBinDirs are checked after an install when the tool is still not on
// PATH; package managers may drop binaries into directories the current
// session does not search.
var extraBinDirs = []string{"/usr/bin", "/usr/local/bin", "/opt/homebrew/bin"}

// Installer installs missing tools via the system package manager.
type Installer struct {
	diag     *diaglog.Logger
	esc      Escalator
	lookPath func(string) (string, error)
	run      func(ctx context.Context, argv []string) ([]byte, error)
	geteuid  func() int
	stat     func(string) (os.FileInfo, error)
}

// New returns an Installer backed by the real process environment.
func New(diag *diaglog.Logger, esc Escalator) *Installer {
	return &Installer{
		diag:     diag,
		esc:      esc,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, argv []string) ([]byte, error) {
			return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
		},
		geteuid: os.Geteuid,
		stat:    os.Stat,
	}
}

// Ensure makes the named tool available, installing it if absent. It returns
// the tool's version string best-effort; an unparseable version is not an
// error here. Presence is re-verified after the install attempt regardless
// of the subprocess exit status, since some package managers exit zero
// without actually installing.
func (i *Installer) Ensure(ctx context.Context, tool string) (string, error) {
	if _, err := i.lookPath(tool); err == nil {
		return i.toolVersion(ctx, tool), nil
	}

	mgr, ok := i.findManager()
	if !ok {
		return "", failure.Newf(failure.Install, "deps", "no supported package manager available to install %s", tool)
	}

	argv := append(append([]string{mgr.name}, mgr.installArgs...), tool)
	switch {
	case i.geteuid() == 0:
		// root runs the manager directly
	case i.esc.CanEscalate():
		argv = i.esc.Wrap(argv)
	default:
		return "", failure.Newf(failure.Privilege, "deps", "installing %s requires elevated privileges and no escalation mechanism is available", tool)
	}

	log.WithField("op", "deps").Infof("installing %s via %s", tool, mgr.name)
	out, err := i.run(ctx, argv)
	i.diag.RecordOutput("deps", out)
	if err != nil {
		i.diag.Record(diaglog.Error, "deps", strings.Join(argv, " ")+": "+err.Error())
	}

	if _, lerr := i.lookPath(tool); lerr != nil {
		if dir, found := i.findOffPath(tool); found {
			if pathenv.Extend(dir) {
				log.WithField("op", "deps").Warnf("%s installed to %s, which is not on your PATH; extended for this session only", tool, dir)
				log.WithField("op", "deps").Warn(pathenv.PermanenceHint(dir))
			}
		} else {
			return "", failure.Newf(failure.Install, "deps", "%s still missing after install attempt", tool)
		}
	}
	return i.toolVersion(ctx, tool), nil
}

func (i *Installer) findManager() (manager, bool) {
	for _, m := range managers {
		if _, err := i.lookPath(m.name); err == nil {
			return m, true
		}
	}
	return manager{}, false
}

// findOffPath looks for the tool in well-known binary directories that may
// not be on the current search path.
func (i *Installer) findOffPath(tool string) (string, bool) {
	for _, dir := range extraBinDirs {
		if fi, err := i.stat(filepath.Join(dir, tool)); err == nil && !fi.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// toolVersion reports the first line of the tool's version banner,
// best-effort.
func (i *Installer) toolVersion(ctx context.Context, tool string) string {
	out, err := i.run(ctx, []string{tool, "-v"})
	if err != nil || len(out) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(first)
}
