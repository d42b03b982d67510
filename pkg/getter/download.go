package getter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/failure"
)

// download fetches url into destPath through a temporary file in the same
// directory, renamed into place only once the body has been fully written.
func (i *Installer) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failure.New(failure.Download, "download", errors.Wrap(err, "failed to create request"))
	}

	resp, err := i.http.Do(req)
	if err != nil {
		i.diag.Record(diaglog.Error, "download", err.Error())
		return failure.New(failure.Download, "download", errors.Wrap(err, "failed to fetch release archive"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		i.diag.Record(diaglog.Error, "download", fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url))
		return failure.Newf(failure.Download, "download", "unexpected status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return failure.New(failure.Download, "download", errors.Wrap(err, "failed to create temporary file"))
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	body, finish := progress(resp.Body, resp.ContentLength)
	_, err = io.Copy(tmpFile, body)
	finish()
	if cerr := tmpFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		i.diag.Record(diaglog.Error, "download", err.Error())
		return failure.New(failure.Download, "download", errors.Wrap(err, "failed to write release archive"))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return failure.New(failure.Download, "download", errors.Wrap(err, "failed to move downloaded file"))
	}
	return nil
}

// progress wraps a reader with a progress bar when stderr is a terminal.
// Returns the wrapped reader and a function to finalize the display.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if size <= 0 || !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`{{counters . }} {{bar . "[" "=" ">" " " "]" }} {{percent . }} {{speed . }}`,
				),
			),
		).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
