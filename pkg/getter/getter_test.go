package getter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/failure"
	"github.com/tfup/tfup/pkg/platform"
	"github.com/tfup/tfup/pkg/version"
)

type fakeEscalator struct {
	can bool
}

func (f fakeEscalator) CanEscalate() bool { return f.can }
func (f fakeEscalator) Wrap(argv []string) []string {
	return append([]string{"sudo"}, argv...)
}

func withReleaseBaseURL(t *testing.T, url string) {
	t.Helper()
	orig := ReleaseBaseURL
	ReleaseBaseURL = url
	t.Cleanup(func() { ReleaseBaseURL = orig })
}

func withSystemInstallDir(t *testing.T, dir string) {
	t.Helper()
	orig := SystemInstallDir
	SystemInstallDir = dir
	t.Cleanup(func() { SystemInstallDir = orig })
}

func newTestInstaller(t *testing.T, esc fakeEscalator) *Installer {
	t.Helper()
	return New(diaglog.New(filepath.Join(t.TempDir(), "diag.log"), 20), esc)
}

// unzipFake scripts the extraction subprocess: when succeed is true it drops
// a terraform binary into the -d directory, mimicking a real unzip run.
func unzipFake(t *testing.T, succeed bool) func(ctx context.Context, argv []string) ([]byte, error) {
	t.Helper()
	return func(ctx context.Context, argv []string) ([]byte, error) {
		require.Equal(t, "unzip", argv[0])
		destDir := argv[len(argv)-1]
		if succeed {
			require.NoError(t, os.WriteFile(filepath.Join(destDir, "terraform"), []byte("#!/bin/sh\n"), 0o644))
		}
		return []byte("Archive:  terraform.zip\n"), nil
	}
}

func TestArchiveURL(t *testing.T) {
	withReleaseBaseURL(t, "https://releases.example.com/terraform")

	v := version.Version{Major: 1, Minor: 9}
	p := platform.Platform{OS: "linux", Arch: "amd64"}
	assert.Equal(t,
		"https://releases.example.com/terraform/1.9.0/terraform_1.9.0_linux_amd64.zip",
		ArchiveURL(v, p))
}

func TestDownloadAndInstallToUserDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.9.0/terraform_1.9.0_linux_amd64.zip", r.URL.Path)
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()
	withReleaseBaseURL(t, srv.URL)

	// system dir absent, no escalation: must fall back to the user dir
	withSystemInstallDir(t, filepath.Join(t.TempDir(), "does-not-exist"))
	userDir := filepath.Join(t.TempDir(), "bin")
	t.Setenv("TFUP_BIN_DIR", userDir)
	t.Setenv("PATH", "/usr/bin")

	i := newTestInstaller(t, fakeEscalator{can: false})
	i.run = unzipFake(t, true)

	path, err := i.DownloadAndInstall(context.Background(),
		version.Version{Major: 1, Minor: 9}, platform.Platform{OS: "linux", Arch: "amd64"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(userDir, "terraform"), path)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), fi.Mode().Perm())

	// the session search path was extended to cover the fallback dir
	assert.Contains(t, os.Getenv("PATH"), userDir)
}

func TestDownloadAndInstallPrefersWritableSystemDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()
	withReleaseBaseURL(t, srv.URL)

	sysDir := t.TempDir()
	withSystemInstallDir(t, sysDir)
	t.Setenv("PATH", sysDir)

	i := newTestInstaller(t, fakeEscalator{can: false})
	i.run = unzipFake(t, true)

	path, err := i.DownloadAndInstall(context.Background(),
		version.Version{Major: 1, Minor: 9}, platform.Platform{OS: "linux", Arch: "amd64"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sysDir, "terraform"), path)
}

func TestDownloadAndInstallElevatedFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()
	withReleaseBaseURL(t, srv.URL)

	// the directory exists but refuses the writability probe by not existing
	// until sudo mv creates the file
	sysDir := filepath.Join(t.TempDir(), "system-bin")
	withSystemInstallDir(t, sysDir)
	t.Setenv("PATH", sysDir)

	i := newTestInstaller(t, fakeEscalator{can: true})
	i.run = func(ctx context.Context, argv []string) ([]byte, error) {
		switch argv[0] {
		case "unzip":
			dest := argv[len(argv)-1]
			require.NoError(t, os.WriteFile(filepath.Join(dest, "terraform"), []byte("bin"), 0o644))
			return nil, nil
		case "sudo":
			// simulate the elevated move side effect
			if argv[1] == "mv" {
				require.NoError(t, os.MkdirAll(sysDir, 0o755))
				require.NoError(t, os.Rename(argv[2], argv[3]))
			}
			return nil, nil
		}
		t.Fatalf("unexpected command %v", argv)
		return nil, nil
	}

	path, err := i.DownloadAndInstall(context.Background(),
		version.Version{Major: 1, Minor: 9}, platform.Platform{OS: "linux", Arch: "amd64"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sysDir, "terraform"), path)
}

func TestDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	withReleaseBaseURL(t, srv.URL)

	i := newTestInstaller(t, fakeEscalator{})
	i.run = unzipFake(t, true)

	_, err := i.DownloadAndInstall(context.Background(),
		version.Version{Major: 1, Minor: 9}, platform.Platform{OS: "linux", Arch: "amd64"})
	require.Error(t, err)
	assert.Equal(t, failure.Download, failure.CategoryOf(err))
}

func TestExtractWithoutBinaryIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()
	withReleaseBaseURL(t, srv.URL)

	i := newTestInstaller(t, fakeEscalator{})
	// unzip reports success but produces nothing
	i.run = unzipFake(t, false)

	_, err := i.DownloadAndInstall(context.Background(),
		version.Version{Major: 1, Minor: 9}, platform.Platform{OS: "linux", Arch: "amd64"})
	require.Error(t, err)
	assert.Equal(t, failure.Extract, failure.CategoryOf(err))
}
