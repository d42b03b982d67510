// Package checkpoint resolves the latest published tool version from the
// checkpoint metadata service.
package checkpoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/tfup/tfup/pkg/diaglog"
	"github.com/tfup/tfup/pkg/failure"
	"github.com/tfup/tfup/pkg/version"
)

// BaseURL is the checkpoint service root. This is a variable so it can be
// overridden in tests.
var BaseURL = "https://checkpoint-api.hashicorp.com/v1/check"

const product = "terraform"

// currentVersionRE extracts the one field we need. A full JSON decode is
// deliberately avoided: the rest of the document is irrelevant and malformed
// sibling fields must not cause failure.
var currentVersionRE = regexp.MustCompile(`"current_version"\s*:\s*"(v?[0-9]+\.[0-9]+\.[0-9]+)"`)

// Client fetches version metadata over HTTP.
type Client struct {
	http *http.Client
	diag *diaglog.Logger
}

// NewClient returns a Client routing diagnostics through diag.
func NewClient(diag *diaglog.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		diag: diag,
	}
}

// FetchLatest issues a single GET to the checkpoint endpoint and extracts
// the current_version field. Transport failures and non-200 responses are
// network failures; a response without a well-formed current_version is a
// parse failure.
func (c *Client) FetchLatest(ctx context.Context) (version.Version, error) {
	url := fmt.Sprintf("%s/%s", BaseURL, product)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return version.Version{}, failure.New(failure.Network, "checkpoint", errors.Wrap(err, "failed to create request"))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.diag.Record(diaglog.Error, "checkpoint", err.Error())
		return version.Version{}, failure.New(failure.Network, "checkpoint", errors.Wrap(err, "failed to reach checkpoint endpoint"))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		c.diag.Record(diaglog.Error, "checkpoint", fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url))
		return version.Version{}, failure.Newf(failure.Network, "checkpoint", "unexpected status %d", resp.StatusCode)
	}

	m := currentVersionRE.FindSubmatch(body)
	if m == nil {
		c.diag.Record(diaglog.Error, "checkpoint", "response has no parseable current_version field")
		return version.Version{}, failure.Newf(failure.Parse, "checkpoint", "no current_version field in response")
	}

	v, err := version.Parse(string(m[1]))
	if err != nil {
		c.diag.Record(diaglog.Error, "checkpoint", err.Error())
		return version.Version{}, failure.New(failure.Parse, "checkpoint", err)
	}
	return v, nil
}
